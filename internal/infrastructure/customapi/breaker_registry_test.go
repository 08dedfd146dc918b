package customapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerRegistry_ForReturnsSameBreakerForSameAccount(t *testing.T) {
	r := NewBreakerRegistry()
	b1 := r.For("account-1")
	b2 := r.For("account-1")
	assert.Same(t, b1, b2)
}

func TestBreakerRegistry_ForReturnsDistinctBreakersPerAccount(t *testing.T) {
	r := NewBreakerRegistry()
	b1 := r.For("account-1")
	b2 := r.For("account-2")
	assert.NotSame(t, b1, b2)
}
