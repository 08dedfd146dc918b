// Package upstreamclient issues the translated request to Upstream's
// generateAssistantResponse endpoint and hands the raw event-stream body
// to the streaming engine.
package upstreamclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	wire "github.com/ngoclaw/relaygate/internal/wire/upstreamreq"
)

const defaultBaseURL = "https://codewhisperer.us-east-1.amazonaws.com"

// Client posts normalized Upstream payloads and returns their streamed
// response bodies for the streaming engine to decode.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// New creates an Upstream client. baseURL defaults to Upstream's
// production endpoint when empty.
func New(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Transport: transport},
		logger:  logger,
	}
}

// Open POSTs payload with the given bearer access token and returns the
// response body for streaming consumption. The caller owns closing the
// returned body. A non-2xx response is drained and returned as an error
// instead of a body, so the streaming engine never has to special-case
// error payloads shaped like event-stream frames.
func (c *Client) Open(ctx context.Context, accessToken string, payload *wire.Payload) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generateAssistantResponse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.amazon.eventstream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("upstream rejected request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", errBody),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	return resp.Body, nil
}

// StatusError carries a non-2xx Upstream response for the caller to
// classify (quota exhaustion, auth rejection, rate limit, ...).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}
