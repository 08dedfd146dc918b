package customapi

import (
	"sync"
	"time"

	"github.com/ngoclaw/relaygate/internal/infrastructure/llm"
)

// BreakerRegistry hands out one CircuitBreaker per external API
// account, lazily created on first use. The breaker itself is the
// teacher's own llm.CircuitBreaker, unmodified; an account that keeps
// failing trips it the same way a misbehaving upstream model would.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*llm.CircuitBreaker
}

// NewBreakerRegistry returns an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*llm.CircuitBreaker)}
}

// For returns the breaker for accountID, creating one with the
// default threshold (5 failures, 30s recovery) on first use.
func (r *BreakerRegistry) For(accountID string) *llm.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[accountID]
	if !ok {
		b = llm.NewCircuitBreaker(5, 30*time.Second)
		r.breakers[accountID] = b
	}
	return b
}
