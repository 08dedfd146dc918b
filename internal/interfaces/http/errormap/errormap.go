// Package errormap maps the gateway's classified gwerrors.Error onto
// each client-facing wire format's error shape, per spec.md §6/§7.
package errormap

import (
	"net/http"

	"github.com/ngoclaw/relaygate/internal/domain/gwerrors"
	wireanthropic "github.com/ngoclaw/relaygate/internal/wire/anthropic"
	wireopenai "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// statusFor picks the HTTP status code a classified error should
// surface as, falling back to the error's own StatusCode when the
// kind doesn't imply one.
func statusFor(e *gwerrors.Error) int {
	switch e.Kind {
	case gwerrors.KindAuthentication:
		return http.StatusUnauthorized
	case gwerrors.KindQuota:
		return http.StatusForbidden
	case gwerrors.KindInput:
		return http.StatusBadRequest
	case gwerrors.KindRateLimit:
		return http.StatusTooManyRequests
	case gwerrors.KindTimeout:
		return http.StatusGatewayTimeout
	case gwerrors.KindTransport:
		return http.StatusBadGateway
	}
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Anthropic renders err as the Anthropic {type:"error",...} error body
// and the HTTP status it should be sent with.
func Anthropic(err error) (int, wireanthropic.ErrorBody) {
	e := gwerrors.Classify(err)
	status := statusFor(e)

	errType := wireanthropic.ErrTypeAPIError
	switch e.Kind {
	case gwerrors.KindInput:
		errType = wireanthropic.ErrTypeInvalidRequest
	case gwerrors.KindAuthentication:
		errType = wireanthropic.ErrTypeAuthentication
	case gwerrors.KindQuota:
		errType = wireanthropic.ErrTypePermission
	case gwerrors.KindRateLimit:
		errType = wireanthropic.ErrTypeRateLimit
	case gwerrors.KindTimeout:
		errType = wireanthropic.ErrTypeAPIError
	case gwerrors.KindTransport:
		errType = wireanthropic.ErrTypeOverloaded
	}

	return status, wireanthropic.ErrorBody{
		Type:  "error",
		Error: wireanthropic.ErrorInfo{Type: errType, Message: e.Message},
	}
}

// OpenAI renders err as the OpenAI {error:{...}} error body and the
// HTTP status it should be sent with.
func OpenAI(err error) (int, wireopenai.ErrorBody) {
	e := gwerrors.Classify(err)
	status := statusFor(e)

	return status, wireopenai.ErrorBody{
		Error: wireopenai.ErrorInfo{
			Message: e.Message,
			Type:    e.Kind.String(),
		},
	}
}
