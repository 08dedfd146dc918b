// Package gwerrors classifies errors surfaced from Upstream and external
// API accounts into a wire-neutral taxonomy each format converter maps
// onto its own error shape (Anthropic's {type:"error",...}, OpenAI's
// {error:{...}}).
package gwerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for retry decisions, logging, and wire mapping.
type Kind int

const (
	// KindTransport covers network failures: connection reset, DNS,
	// TLS handshake, unexpected EOF mid-stream.
	KindTransport Kind = iota
	// KindAuthentication covers refresh/access token rejection.
	KindAuthentication
	// KindQuota covers MONTHLY_REQUEST_COUNT and similar account-level
	// exhaustion signals from Upstream.
	KindQuota
	// KindInput covers CONTENT_LENGTH_EXCEEDS_THRESHOLD and other
	// client-supplied-request validation failures.
	KindInput
	// KindRateLimit covers 429-shaped throttling that a caller can
	// retry after backing off.
	KindRateLimit
	// KindTimeout covers context deadline/idle-read timeouts.
	KindTimeout
	// KindProtocol covers malformed or unexpected wire frames from
	// Upstream or an external API account that the parser could not
	// make sense of.
	KindProtocol
	// KindInternal covers everything else: a bug, not a caller or
	// upstream problem.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindQuota:
		return "quota"
	case KindInput:
		return "input"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	default:
		return "internal"
	}
}

// Retryable reports whether a caller of the classified operation should
// retry without modifying the request.
func (k Kind) Retryable() bool {
	switch k {
	case KindTransport, KindRateLimit, KindTimeout:
		return true
	default:
		return false
	}
}

// Error is a structured, classified gateway error.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether this error's kind permits a retry.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// New builds a classified error directly, for call sites that already
// know the kind (e.g. a credential refresh failure).
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Classify examines an arbitrary error — typically surfaced from an
// HTTP round trip to Upstream or an external API account — and returns
// its best-guess classification. An error that is already a *Error is
// returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "deadline exceeded", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Message: "request cancelled", Cause: err}
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case containsAny(errStr, "monthly_request_count", "quota exceeded", "insufficient_quota", "billing"):
		return &Error{Kind: KindQuota, Message: "account quota exhausted", Cause: err}

	case containsAny(errStr, "content_length_exceeds_threshold", "invalid_request", "bad request", "validationexception"):
		return &Error{Kind: KindInput, Message: "request rejected as invalid", StatusCode: extractStatusCode(errStr), Cause: err}

	case containsAny(errStr, "unauthorized", "invalid api key", "invalid_grant", "authentication", "403", "401", "accessdeniedexception"):
		return &Error{Kind: KindAuthentication, Message: "authentication failed", StatusCode: extractStatusCode(errStr), Cause: err}

	case containsAny(errStr, "429", "too many requests", "throttl", "rate limit"):
		return &Error{Kind: KindRateLimit, Message: "rate limited", StatusCode: 429, Cause: err}

	case containsAny(errStr, "idle timeout", "deadline exceeded", "timed out", "i/o timeout"):
		return &Error{Kind: KindTimeout, Message: "operation timed out", Cause: err}

	case containsAny(errStr, "connection reset", "broken pipe", "eof", "no such host", "dial tcp", "tls handshake"):
		return &Error{Kind: KindTransport, Message: "transport failure", Cause: err}

	case containsAny(errStr, "unexpected event", "malformed", "decode", "unmarshal"):
		return &Error{Kind: KindProtocol, Message: "malformed upstream frame", Cause: err}

	default:
		return &Error{Kind: KindInternal, Message: "unclassified error", StatusCode: extractStatusCode(errStr), Cause: err}
	}
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func extractStatusCode(errStr string) int {
	codes := []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529}
	for _, code := range codes {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			return code
		}
	}
	return 0
}
