package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
)

func TestManager_AccessToken_RefreshesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(refreshResponse{
			AccessToken: "access-1",
			ExpiresIn:   3600,
			ProfileArn:  "arn:aws:iam::123:profile/abc",
		})
	}))
	defer srv.Close()

	cred, err := entity.NewCredential("cred-1", "refresh-1", "us-east-1", entity.AuthTypeSocial, entity.VisibilityPublic)
	require.NoError(t, err)

	m := NewManager(cred, zap.NewNop())
	m.socialTokenURL = srv.URL

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", token)
	require.Equal(t, "arn:aws:iam::123:profile/abc", m.ProfileArn())

	// Second call within the expiry window must not hit the server again.
	token2, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", token2)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestManager_AccessToken_RejectedRefreshReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	cred, err := entity.NewCredential("cred-2", "refresh-2", "us-east-1", entity.AuthTypeSocial, entity.VisibilityPublic)
	require.NoError(t, err)

	m := NewManager(cred, zap.NewNop())
	m.socialTokenURL = srv.URL

	_, err = m.AccessToken(context.Background())
	require.Error(t, err)
}

func TestManagerCache_GetOrCreate_ReusesManagerForSameKey(t *testing.T) {
	cache := NewManagerCache(10, zap.NewNop())
	cred, err := entity.NewCredential("cred-3", "refresh-3", "us-east-1", entity.AuthTypeSocial, entity.VisibilityPublic)
	require.NoError(t, err)

	m1 := cache.GetOrCreate(cred)
	m2 := cache.GetOrCreate(cred)
	require.Same(t, m1, m2)
	require.Equal(t, 1, cache.Len())
}
