// Package customapi delegates a request to a user-supplied external API
// account when the allocator picks one (a user with no usable private
// credential and an external account that supports the model),
// forwarding to the account's own OpenAI- or Anthropic-compatible
// endpoint. Grounded on
// _examples/original_source/kiro_gateway/custom_api/handler.go
// (handle_openai_format_stream / handle_claude_format_stream): a 429
// response is retried with capped exponential backoff, anything else
// non-2xx is surfaced to the caller untranslated.
package customapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
)

const (
	defaultTimeout  = 300 * time.Second
	maxRetries      = 3
	baseRetryDelay  = 5 * time.Second
	maxRetryDelay   = 60 * time.Second
)

// Client issues outbound requests to external API accounts.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// New creates a delegation client.
func New(logger *zap.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		http:   &http.Client{Transport: transport, Timeout: defaultTimeout},
		logger: logger,
	}
}

// rateLimited marks a response that should be retried under the backoff
// policy; it carries the 429 response so Send can return it if the
// policy stops on this error.
type rateLimited struct {
	resp *http.Response
}

func (e *rateLimited) Error() string { return "rate limited" }

// Send POSTs body to account's path (either "/v1/chat/completions" for
// FormatOpenAI or "/v1/messages" for FormatAnthropic), retrying a 429
// response up to maxRetries times with exponential backoff. A
// Retry-After header on the 429 is not read; the delay always comes
// from the backoff schedule. The caller owns closing the returned body.
func (c *Client) Send(ctx context.Context, account *entity.ExternalAPIAccount, path string, body []byte) (*http.Response, error) {
	url := account.APIBase() + path
	attempt := 0

	policy := backoff.WithContext(backoff.WithMaxRetries(newDelegationBackOff(), maxRetries), ctx)

	resp, err := backoff.RetryWithData(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create delegated request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		switch account.Format() {
		case entity.FormatAnthropic:
			req.Header.Set("x-api-key", account.APIKey())
			req.Header.Set("anthropic-version", "2023-06-01")
		default:
			req.Header.Set("Authorization", "Bearer "+account.APIKey())
		}

		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			attempt++
			c.logger.Warn("external API account rate limited, retrying",
				zap.String("account_id", account.ID()),
				zap.Int("attempt", attempt),
			)
			r.Body.Close()
			return nil, &rateLimited{resp: r}
		}
		return r, nil
	}, policy)
	if err != nil {
		var rl *rateLimited
		if ok := asRateLimited(err, &rl); ok {
			return rl.resp, nil
		}
		return nil, err
	}
	return resp, nil
}

func asRateLimited(err error, target **rateLimited) bool {
	if rl, ok := err.(*rateLimited); ok {
		*target = rl
		return true
	}
	return false
}

// newDelegationBackOff mirrors the Python handler's capped exponential
// delay (5s, 10s, 20s, ... capped at 60s).
func newDelegationBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseRetryDelay
	b.Multiplier = 2
	b.MaxInterval = maxRetryDelay
	b.MaxElapsedTime = 0
	return b
}
