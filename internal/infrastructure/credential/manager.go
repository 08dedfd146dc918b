// Package credential implements the refresh-token-to-access-token exchange
// against Upstream's token endpoint, the per-token manager cache, the
// scored allocator that picks a credential for an incoming request, and
// the background health checker — spec.md §4.6–§4.8.
package credential

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"go.uber.org/zap"
)

const (
	defaultSocialTokenURL = "https://prod.us-east-1.auth.desktop.kiro.dev/refreshToken"
	defaultIDCTokenURL    = "https://oidc.us-east-1.amazonaws.com/token"
	// refreshMargin is how far ahead of the access token's reported
	// expiry the manager preemptively refreshes, avoiding a request
	// that races an in-flight expiry.
	refreshMargin = 2 * time.Minute
)

// refreshResponse covers both the social and IDC refresh shapes; fields
// absent from one flow are simply left zero.
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	ProfileArn   string `json:"profileArn"`
}

// idcRefreshRequest is the OIDC-shaped refresh_token grant body.
type idcRefreshRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	GrantType    string `json:"grantType"`
	RefreshToken string `json:"refreshToken"`
}

// socialRefreshRequest is the simpler social-login refresh body.
type socialRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Manager owns the refresh/access-token lifecycle for exactly one
// credential. One Manager is created per (refreshToken, region) pair and
// is safe for concurrent use — concurrent callers racing to refresh the
// same expired access token serialize on mu instead of issuing duplicate
// refresh calls upstream.
type Manager struct {
	mu     sync.Mutex
	cred   *entity.Credential
	client *http.Client
	logger *zap.Logger

	// socialTokenURL/idcTokenURL default to Upstream's real endpoints;
	// overridable per-Manager so tests can point at a local server.
	socialTokenURL string
	idcTokenURL    string

	accessToken string
	profileArn  string
	expiresAt   time.Time
}

// NewManager creates a Manager for the given credential. The returned
// Manager does not perform a refresh until AccessToken is first called.
func NewManager(cred *entity.Credential, logger *zap.Logger) *Manager {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 5,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Manager{
		cred:           cred,
		client:         &http.Client{Transport: transport, Timeout: 20 * time.Second},
		logger:         logger.With(zap.String("credential_id", cred.ID())),
		profileArn:     cred.ProfileArn(),
		socialTokenURL: defaultSocialTokenURL,
		idcTokenURL:    defaultIDCTokenURL,
	}
}

// Credential returns the credential this manager was built for.
func (m *Manager) Credential() *entity.Credential { return m.cred }

// ProfileArn returns the most recently known profile ARN — either the
// one the credential was reconstructed with, or one returned by a
// refresh call since.
func (m *Manager) ProfileArn() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileArn
}

// AccessToken returns a currently-valid access token, refreshing against
// Upstream's token endpoint if the cached one is absent or within
// refreshMargin of expiry.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && time.Now().Add(refreshMargin).Before(m.expiresAt) {
		return m.accessToken, nil
	}

	resp, err := m.refresh(ctx)
	if err != nil {
		return "", err
	}

	m.accessToken = resp.AccessToken
	if resp.ExpiresIn > 0 {
		m.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	} else {
		m.expiresAt = time.Now().Add(15 * time.Minute)
	}
	if resp.RefreshToken != "" {
		m.cred.UpdateRefreshToken(resp.RefreshToken)
	}
	if resp.ProfileArn != "" {
		m.profileArn = resp.ProfileArn
		m.cred.UpdateProfileArn(resp.ProfileArn)
	}
	return m.accessToken, nil
}

func (m *Manager) refresh(ctx context.Context) (*refreshResponse, error) {
	var (
		url  string
		body []byte
		err  error
	)

	switch m.cred.AuthType() {
	case entity.AuthTypeIDC:
		url = m.idcTokenURL
		body, err = json.Marshal(idcRefreshRequest{
			ClientID:     m.cred.ClientID(),
			ClientSecret: m.cred.ClientSecret(),
			GrantType:    "refresh_token",
			RefreshToken: m.cred.RefreshToken(),
		})
	default: // social
		url = m.socialTokenURL
		body, err = json.Marshal(socialRefreshRequest{RefreshToken: m.cred.RefreshToken()})
	}
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("token refresh rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(respBody), 200)),
		)
		return nil, fmt.Errorf("refresh rejected: %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed refreshResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse refresh response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, fmt.Errorf("refresh response missing accessToken")
	}
	return &parsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// cacheKey mirrors the Python cache's "refresh_token:region" composition
// exactly, so operators migrating a dump of cached managers can reuse the
// same key derivation.
func cacheKey(refreshToken, region string) string {
	return refreshToken + ":" + strings.TrimSpace(region)
}
