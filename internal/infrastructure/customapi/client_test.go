package customapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
)

func TestClient_Send_OpenAIAccountUsesBearerAuth(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	account, err := entity.NewExternalAPIAccount("acc-1", srv.URL, "sk-test", entity.FormatOpenAI, "user-1")
	require.NoError(t, err)

	c := New(zap.NewNop())
	resp, err := c.Send(context.Background(), account, "/v1/chat/completions", []byte(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}

func TestClient_Send_AnthropicAccountUsesAPIKeyHeader(t *testing.T) {
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	account, err := entity.NewExternalAPIAccount("acc-2", srv.URL, "sk-ant-test", entity.FormatAnthropic, "user-1")
	require.NoError(t, err)

	c := New(zap.NewNop())
	resp, err := c.Send(context.Background(), account, "/v1/messages", []byte(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
}

func TestClient_Send_NonRateLimitedErrorPassesThroughUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	account, err := entity.NewExternalAPIAccount("acc-3", srv.URL, "sk-test", entity.FormatOpenAI, "user-1")
	require.NoError(t, err)

	c := New(zap.NewNop())
	resp, err := c.Send(context.Background(), account, "/v1/chat/completions", []byte(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "bad request")
}
