package credential

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/modelcatalog"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
)

// ErrNoCredentialAvailable is returned when no credential can be
// allocated for a request under the current eligibility rules.
var ErrNoCredentialAvailable = errors.New("no credential available")

// scoring weights from spec.md §4.7, preserved exactly from the
// teacher's calculate_score: success rate 40%, cooldown 30%, short-term
// load balance 30%.
const (
	successWeight  = 40.0
	cooldownWeight = 30.0
	balanceWeight  = 30.0

	recentUsageResetInterval = time.Minute
	recentUsagePenaltyPerHit = 10.0
)

// Allocator picks the best credential for an incoming request, following
// the teacher's SmartTokenAllocator: private credentials first for a
// logged-in user, then external API accounts, then the public pool,
// weighted-random among same-tier candidates by score.
type Allocator struct {
	credentials repository.CredentialRepository
	externals   repository.ExternalAPIAccountRepository
	cache       *ManagerCache
	logger      *zap.Logger

	// MinSuccessRate is the success-rate threshold. score gives a
	// credential below it with more than 10 uses a reduced success
	// component (rate×20 instead of rate×40); the public pool also
	// leaves out credentials below it with at least 10 uses, unless
	// every public credential is below it.
	MinSuccessRate float64

	// SelfUseMode, when true, disables the public pool entirely —
	// every request must be served by the caller's own private
	// credential or external API account.
	SelfUseMode bool

	mu           sync.Mutex
	recentUsage  map[string]int
	lastReset    time.Time
	rng          *rand.Rand
}

// NewAllocator creates an Allocator with MinSuccessRate set to 0.5;
// callers may overwrite the field.
func NewAllocator(credentials repository.CredentialRepository, externals repository.ExternalAPIAccountRepository, cache *ManagerCache, logger *zap.Logger) *Allocator {
	return &Allocator{
		credentials:    credentials,
		externals:      externals,
		cache:          cache,
		logger:         logger,
		MinSuccessRate: 0.5,
		recentUsage:    make(map[string]int),
		lastReset:      time.Now(),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allocation is the result of a successful allocation: exactly one of
// Credential or ExternalAccount is set.
type Allocation struct {
	Credential      *entity.Credential
	ExternalAccount *entity.ExternalAPIAccount
	Manager         *Manager // nil when ExternalAccount is set
	Score           float64  // the weightedChoice score for Credential; 0 when ExternalAccount is set
}

// Allocate picks a credential or external API account for userID (empty
// for the public pool) and model.
func (a *Allocator) Allocate(ctx context.Context, userID, model string) (*Allocation, error) {
	requestingProPlus := modelcatalog.RequiresProPlus(model)

	if userID != "" {
		if alloc, ok, err := a.allocateForUser(ctx, userID, model, requestingProPlus); err != nil {
			return nil, err
		} else if ok {
			return alloc, nil
		}
	}

	if a.SelfUseMode {
		return nil, ErrNoCredentialAvailable
	}

	return a.allocateFromPublicPool(ctx, requestingProPlus)
}

func (a *Allocator) allocateForUser(ctx context.Context, userID, model string, requestingProPlus bool) (*Allocation, bool, error) {
	privateCreds, err := a.credentials.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	externalAccounts, err := a.externals.FindByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	eligibleExternals := make([]*entity.ExternalAPIAccount, 0, len(externalAccounts))
	for _, acc := range externalAccounts {
		if acc.SupportsModel(model) {
			eligibleExternals = append(eligibleExternals, acc)
		}
	}

	if requestingProPlus {
		var proCreds []*entity.Credential
		for _, c := range privateCreds {
			if c.OpusEnabled() {
				proCreds = append(proCreds, c)
			}
		}
		if len(proCreds) > 0 {
			return a.pickCredential(proCreds), true, nil
		}
		a.logger.Warn("user has no Pro+ credential, falling back to regular tier", zap.String("user_id", userID))
	}

	if len(privateCreds) > 0 {
		return a.pickCredential(privateCreds), true, nil
	}
	if len(eligibleExternals) > 0 {
		return a.pickExternal(eligibleExternals), true, nil
	}
	return nil, false, nil
}

func (a *Allocator) allocateFromPublicPool(ctx context.Context, requestingProPlus bool) (*Allocation, error) {
	publicCreds, err := a.credentials.FindActivePublic(ctx)
	if err != nil {
		return nil, err
	}
	if len(publicCreds) == 0 {
		return nil, ErrNoCredentialAvailable
	}

	good := make([]*entity.Credential, 0, len(publicCreds))
	for _, c := range publicCreds {
		if c.SuccessRate() >= a.MinSuccessRate || c.TotalUses() < 10 {
			good = append(good, c)
		}
	}
	if len(good) == 0 {
		good = publicCreds
	}

	if requestingProPlus {
		var pro []*entity.Credential
		for _, c := range good {
			if c.OpusEnabled() {
				pro = append(pro, c)
			}
		}
		if len(pro) > 0 {
			return a.pickCredential(pro), nil
		}
		a.logger.Warn("no Pro+ credential in public pool, falling back to regular tier")
	}

	return a.pickCredential(good), nil
}

func (a *Allocator) pickCredential(candidates []*entity.Credential) *Allocation {
	best := a.weightedChoice(candidates)
	a.recordUsage(best.ID())
	return &Allocation{
		Credential: best,
		Manager:    a.cache.GetOrCreate(best),
		Score:      a.score(best),
	}
}

func (a *Allocator) pickExternal(candidates []*entity.ExternalAPIAccount) *Allocation {
	// External accounts don't carry the success/cooldown/load signals a
	// credential does; pick uniformly at random among eligible ones.
	chosen := candidates[a.rng.Intn(len(candidates))]
	return &Allocation{ExternalAccount: chosen}
}

// weightedChoice mirrors _weighted_random_choice: compute a score per
// candidate, shift scores positive if needed, draw uniformly over the
// cumulative weight.
func (a *Allocator) weightedChoice(candidates []*entity.Credential) *entity.Credential {
	if len(candidates) == 1 {
		return candidates[0]
	}

	scores := make([]float64, len(candidates))
	minScore := 0.0
	for i, c := range candidates {
		scores[i] = a.score(c)
		if i == 0 || scores[i] < minScore {
			minScore = scores[i]
		}
	}
	if minScore <= 0 {
		for i := range scores {
			scores[i] = scores[i] - minScore + 1
		}
	}

	total := 0.0
	for _, s := range scores {
		total += s
	}

	r := a.rng.Float64() * total
	cumulative := 0.0
	for i, s := range scores {
		cumulative += s
		if r <= cumulative {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

// score reproduces calculate_score: success-rate (40), cooldown (30),
// short-term load balance (30).
func (a *Allocator) score(c *entity.Credential) float64 {
	a.resetRecentUsageIfNeeded()

	total := c.TotalUses()
	var successRate float64
	if total == 0 {
		successRate = 1.0
	} else {
		successRate = float64(c.SuccessCount()) / float64(total)
	}

	var base float64
	if successRate < a.MinSuccessRate && total > 10 {
		base = successRate * 20
	} else {
		base = successRate * successWeight
	}

	var secondsSinceUse float64
	if c.LastUsed().IsZero() {
		secondsSinceUse = 3600
	} else {
		secondsSinceUse = time.Since(c.LastUsed()).Seconds()
	}
	var cooldown float64
	switch {
	case secondsSinceUse < 30:
		cooldown = 5
	case secondsSinceUse < 60:
		cooldown = 15
	case secondsSinceUse < 300:
		cooldown = 25
	default:
		cooldown = cooldownWeight
	}

	a.mu.Lock()
	recent := a.recentUsage[c.ID()]
	a.mu.Unlock()
	balance := balanceWeight - float64(recent)*recentUsagePenaltyPerHit
	if balance < 0 {
		balance = 0
	}

	return base + cooldown + balance
}

func (a *Allocator) resetRecentUsageIfNeeded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastReset) > recentUsageResetInterval {
		a.recentUsage = make(map[string]int)
		a.lastReset = time.Now()
	}
}

func (a *Allocator) recordUsage(credentialID string) {
	a.resetRecentUsageIfNeeded()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recentUsage[credentialID]++
}
