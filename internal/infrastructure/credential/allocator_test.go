package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/infrastructure/persistence"
)

func mustCredential(t *testing.T, id, userID string, visibility entity.CredentialVisibility, opusEnabled bool) *entity.Credential {
	t.Helper()
	c, err := entity.NewCredential(id, "refresh-"+id, "us-east-1", entity.AuthTypeSocial, visibility)
	require.NoError(t, err)
	c = entity.ReconstructCredential(
		c.ID(), c.RefreshToken(), c.Region(), c.AuthType(),
		"", "", "", userID,
		c.Visibility(), c.Status(), opusEnabled,
		0, 0, time.Time{}, time.Time{}, c.CreatedAt(),
	)
	return c
}

func newTestAllocator(t *testing.T) (*Allocator, *persistence.MemoryCredentialRepository, func(ctx context.Context, c *entity.Credential)) {
	t.Helper()
	credRepo := persistence.NewMemoryCredentialRepository()
	extRepo := persistence.NewMemoryExternalAPIAccountRepository()
	cache := NewManagerCache(10, zap.NewNop())
	a := NewAllocator(credRepo, extRepo, cache, zap.NewNop())

	memRepo, ok := credRepo.(*persistence.MemoryCredentialRepository)
	require.True(t, ok)
	save := func(ctx context.Context, c *entity.Credential) {
		require.NoError(t, memRepo.Save(ctx, c))
	}
	return a, memRepo, save
}

func TestAllocator_PrefersPrivateCredentialOverPublicPool(t *testing.T) {
	a, _, save := newTestAllocator(t)
	ctx := context.Background()

	private := mustCredential(t, "private-1", "user-1", entity.VisibilityPrivate, false)
	public := mustCredential(t, "public-1", "", entity.VisibilityPublic, false)
	save(ctx, private)
	save(ctx, public)

	alloc, err := a.Allocate(ctx, "user-1", "claude-sonnet-4-5")
	require.NoError(t, err)
	require.NotNil(t, alloc.Credential)
	require.Equal(t, "private-1", alloc.Credential.ID())
}

func TestAllocator_FallsBackToPublicPoolForAnonymousRequest(t *testing.T) {
	a, _, save := newTestAllocator(t)
	ctx := context.Background()

	public := mustCredential(t, "public-1", "", entity.VisibilityPublic, false)
	save(ctx, public)

	alloc, err := a.Allocate(ctx, "", "claude-sonnet-4-5")
	require.NoError(t, err)
	require.Equal(t, "public-1", alloc.Credential.ID())
}

func TestAllocator_ProPlusModelPrefersOpusEnabledCredential(t *testing.T) {
	a, _, save := newTestAllocator(t)
	ctx := context.Background()

	regular := mustCredential(t, "regular-1", "", entity.VisibilityPublic, false)
	pro := mustCredential(t, "pro-1", "", entity.VisibilityPublic, true)
	save(ctx, regular)
	save(ctx, pro)

	for i := 0; i < 10; i++ {
		alloc, err := a.Allocate(ctx, "", "claude-opus-4-1")
		require.NoError(t, err)
		require.Equal(t, "pro-1", alloc.Credential.ID())
	}
}

func TestAllocator_NoCredentialAvailableReturnsSentinelError(t *testing.T) {
	a, _, _ := newTestAllocator(t)
	_, err := a.Allocate(context.Background(), "", "claude-sonnet-4-5")
	require.ErrorIs(t, err, ErrNoCredentialAvailable)
}

func TestAllocator_SelfUseModeDisablesPublicPool(t *testing.T) {
	a, _, save := newTestAllocator(t)
	a.SelfUseMode = true
	ctx := context.Background()

	public := mustCredential(t, "public-1", "", entity.VisibilityPublic, false)
	save(ctx, public)

	_, err := a.Allocate(ctx, "", "claude-sonnet-4-5")
	require.ErrorIs(t, err, ErrNoCredentialAvailable)
}

func TestAllocator_ScoreGivesNewCredentialFullSuccessCredit(t *testing.T) {
	a, _, _ := newTestAllocator(t)
	c := mustCredential(t, "fresh-1", "", entity.VisibilityPublic, false)
	score := a.score(c)
	// No usage yet: success=40 (full), cooldown=30 (never used), balance=30 (no recent hits).
	require.InDelta(t, 100.0, score, 0.001)
}
