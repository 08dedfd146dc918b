package errormap

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngoclaw/relaygate/internal/domain/gwerrors"
	wireanthropic "github.com/ngoclaw/relaygate/internal/wire/anthropic"
)

func TestAnthropic_RateLimitMapsToRateLimitErrorType(t *testing.T) {
	err := gwerrors.New(gwerrors.KindRateLimit, "too many requests", nil)
	status, body := Anthropic(err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "error", body.Type)
	assert.Equal(t, wireanthropic.ErrTypeRateLimit, body.Error.Type)
	assert.Equal(t, "too many requests", body.Error.Message)
}

func TestAnthropic_QuotaMapsToPermissionErrorAndForbidden(t *testing.T) {
	err := gwerrors.New(gwerrors.KindQuota, "account quota exhausted", nil)
	status, body := Anthropic(err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, wireanthropic.ErrTypePermission, body.Error.Type)
}

func TestAnthropic_TransportMapsToOverloaded(t *testing.T) {
	err := gwerrors.New(gwerrors.KindTransport, "connection reset", nil)
	status, body := Anthropic(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, wireanthropic.ErrTypeOverloaded, body.Error.Type)
}

func TestAnthropic_UnclassifiedErrorFallsBackToStatusCodeOrInternal(t *testing.T) {
	status, body := Anthropic(assertErr{})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, wireanthropic.ErrTypeAPIError, body.Error.Type)
}

func TestOpenAI_InputErrorMapsToBadRequest(t *testing.T) {
	err := gwerrors.New(gwerrors.KindInput, "request rejected as invalid", nil)
	status, body := OpenAI(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "input", body.Error.Type)
	assert.Equal(t, "request rejected as invalid", body.Error.Message)
}

func TestOpenAI_AuthenticationErrorMapsToUnauthorized(t *testing.T) {
	err := gwerrors.New(gwerrors.KindAuthentication, "authentication failed", nil)
	status, _ := OpenAI(err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOpenAI_ExplicitStatusCodeUsedWhenKindHasNoDefault(t *testing.T) {
	err := &gwerrors.Error{Kind: gwerrors.KindInternal, Message: "odd", StatusCode: 418}
	status, _ := OpenAI(err)
	assert.Equal(t, 418, status)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
