package credential

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
)

const defaultManagerCacheSize = 100

// ManagerCache is an LRU cache of Managers keyed by refreshToken+region,
// so that concurrent requests reusing the same credential share one
// in-flight refresh instead of racing separate ones. Grounded 1:1 on the
// teacher's multi-tenant auth-manager cache shape, reimplemented over
// golang-lru instead of a Python OrderedDict.
type ManagerCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, *Manager]
	logger *zap.Logger
}

// NewManagerCache creates a ManagerCache holding up to size Managers. A
// non-positive size falls back to defaultManagerCacheSize.
func NewManagerCache(size int, logger *zap.Logger) *ManagerCache {
	if size <= 0 {
		size = defaultManagerCacheSize
	}
	cache, _ := lru.New[string, *Manager](size)
	return &ManagerCache{lru: cache, logger: logger}
}

// GetOrCreate returns the cached Manager for cred, creating and caching a
// fresh one on a miss. Cache eviction is by refresh-token+region identity,
// not by credential ID, so two Credential rows sharing the same refresh
// token and region reuse a single Manager.
func (c *ManagerCache) GetOrCreate(cred *entity.Credential) *Manager {
	key := cacheKey(cred.RefreshToken(), cred.Region())

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.lru.Get(key); ok {
		return m
	}

	m := NewManager(cred, c.logger)
	c.lru.Add(key, m)
	c.logger.Debug("credential manager cache miss, created new manager",
		zap.Int("cache_size", c.lru.Len()))
	return m
}

// Remove evicts the Manager for cred, forcing the next GetOrCreate to
// build a fresh one — used when a credential is marked invalid/expired
// and its cached access token must not be reused.
func (c *ManagerCache) Remove(cred *entity.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(cacheKey(cred.RefreshToken(), cred.Region()))
}

// Len returns the current number of cached managers.
func (c *ManagerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
