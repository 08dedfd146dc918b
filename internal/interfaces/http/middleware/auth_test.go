package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runAuth(req *http.Request) (*httptest.ResponseRecorder, string) {
	w := httptest.NewRecorder()
	r := gin.New()
	var seen string
	r.Use(ClientAuth())
	r.GET("/", func(c *gin.Context) {
		seen = UserID(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(w, req)
	return w, seen
}

func TestClientAuth_AcceptsBearerAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sk-test-123")

	w, seen := runAuth(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk-test-123", seen)
}

func TestClientAuth_AcceptsXAPIKeyHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-api-key", "key-456")

	w, seen := runAuth(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "key-456", seen)
}

func TestClientAuth_XAPIKeyTakesPrecedenceOverAuthorization(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-api-key", "key-456")
	req.Header.Set("Authorization", "Bearer sk-test-123")

	_, seen := runAuth(req)
	assert.Equal(t, "key-456", seen)
}

func TestClientAuth_MissingCredentialsRejectedWithUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w, _ := runAuth(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserID_EmptyWhenNotSet(t *testing.T) {
	r := gin.New()
	w := httptest.NewRecorder()
	r.GET("/", func(c *gin.Context) {
		assert.Equal(t, "", UserID(c))
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
}
