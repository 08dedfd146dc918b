package gwerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Quota(t *testing.T) {
	e := Classify(errors.New("MONTHLY_REQUEST_COUNT exceeded for account"))
	assert.Equal(t, KindQuota, e.Kind)
	assert.False(t, e.Retryable())
}

func TestClassify_Input(t *testing.T) {
	e := Classify(errors.New("CONTENT_LENGTH_EXCEEDS_THRESHOLD: trim your prompt"))
	assert.Equal(t, KindInput, e.Kind)
	assert.False(t, e.Retryable())
}

func TestClassify_RateLimit(t *testing.T) {
	e := Classify(errors.New("429 Too Many Requests"))
	assert.Equal(t, KindRateLimit, e.Kind)
	assert.True(t, e.Retryable())
	assert.Equal(t, 429, e.StatusCode)
}

func TestClassify_Transport(t *testing.T) {
	e := Classify(errors.New("dial tcp: connection reset by peer"))
	assert.Equal(t, KindTransport, e.Kind)
	assert.True(t, e.Retryable())
}

func TestClassify_AlreadyClassifiedPassesThrough(t *testing.T) {
	orig := New(KindProtocol, "bad frame", nil)
	assert.Same(t, orig, Classify(orig))
}

func TestClassify_Default(t *testing.T) {
	e := Classify(errors.New("something unexpected happened"))
	assert.Equal(t, KindInternal, e.Kind)
}
