package credential

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/pkg/safego"
)

// HealthChecker periodically verifies that every active credential can
// still exchange its refresh token for an access token, marking the ones
// that can't as invalid.
type HealthChecker struct {
	credentials repository.CredentialRepository
	cache       *ManagerCache
	logger      *zap.Logger
	interval    time.Duration
	betweenGap  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewHealthChecker creates a HealthChecker. interval is the time between
// full sweeps; a zero interval defaults to 30 minutes, matching the
// teacher's conservative polling cadence for background maintenance loops.
func NewHealthChecker(credentials repository.CredentialRepository, cache *ManagerCache, logger *zap.Logger, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &HealthChecker{
		credentials: credentials,
		cache:       cache,
		logger:      logger,
		interval:    interval,
		betweenGap:  time.Second,
	}
}

// Start begins the background sweep loop. Calling Start twice is a no-op.
func (h *HealthChecker) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.running = true

	safego.Go(h.logger, "credential-health-checker", func() {
		h.loop(ctx)
	})
}

// Stop halts the background sweep loop.
func (h *HealthChecker) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		h.cancel()
		h.running = false
	}
}

func (h *HealthChecker) loop(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CheckAll(ctx)
		}
	}
}

// CheckResult summarizes one sweep.
type CheckResult struct {
	Checked int
	Valid   int
	Invalid int
}

// CheckAll checks every active credential, marking failures invalid.
func (h *HealthChecker) CheckAll(ctx context.Context) CheckResult {
	creds, err := h.credentials.FindAllActive(ctx)
	if err != nil {
		h.logger.Error("health check: failed to list active credentials", zap.Error(err))
		return CheckResult{}
	}
	if len(creds) == 0 {
		return CheckResult{}
	}

	h.logger.Info("starting credential health sweep", zap.Int("count", len(creds)))
	result := CheckResult{Checked: len(creds)}

	for _, cred := range creds {
		if h.checkOne(ctx, cred) {
			result.Valid++
		} else {
			result.Invalid++
			if err := h.credentials.MarkStatus(ctx, cred.ID(), entity.CredentialStatusInvalid); err != nil {
				h.logger.Error("failed to mark credential invalid", zap.String("credential_id", cred.ID()), zap.Error(err))
			}
			h.cache.Remove(cred)
		}

		select {
		case <-ctx.Done():
			return result
		case <-time.After(h.betweenGap):
		}
	}

	h.logger.Info("credential health sweep complete",
		zap.Int("valid", result.Valid),
		zap.Int("invalid", result.Invalid),
	)
	return result
}

func (h *HealthChecker) checkOne(ctx context.Context, cred *entity.Credential) bool {
	manager := h.cache.GetOrCreate(cred)
	checkCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	token, err := manager.AccessToken(checkCtx)
	healthy := err == nil && token != ""
	cred.RecordHealthCheck(time.Now(), healthy)
	if err != nil {
		h.logger.Warn("credential health check failed",
			zap.String("credential_id", cred.ID()),
			zap.String("error", truncate(err.Error(), 200)),
		)
	}
	return healthy
}
