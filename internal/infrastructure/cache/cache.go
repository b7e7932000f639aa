// Package cache implementaciones de la caché de política por tenant.
package cache

import (
	"context"
	"sync"
	"time"

	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

var (
	_ appinv.PolicyCache = NoopPolicyCache{}
	_ appinv.PolicyCache = (*MemoryPolicyCache)(nil)
	_ appinv.PolicyCache = (*RedisPolicyCache)(nil)
)

// NoopPolicyCache nunca guarda nada; cada lectura va al repositorio.
type NoopPolicyCache struct{}

func (NoopPolicyCache) Get(_ context.Context, _ string) (*inventory.PolicySet, bool, error) {
	return nil, false, nil
}

func (NoopPolicyCache) Set(_ context.Context, _ *inventory.PolicySet, _ time.Duration) error {
	return nil
}

func (NoopPolicyCache) Delete(_ context.Context, _ string) error {
	return nil
}

type memoryEntry struct {
	set     *inventory.PolicySet
	expires time.Time
}

// MemoryPolicyCache caché local del proceso con expiración.
type MemoryPolicyCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryPolicyCache caché vacía.
func NewMemoryPolicyCache() *MemoryPolicyCache {
	return &MemoryPolicyCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryPolicyCache) Get(_ context.Context, tenantID string) (*inventory.PolicySet, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.set, true, nil
}

func (c *MemoryPolicyCache) Set(_ context.Context, set *inventory.PolicySet, ttl time.Duration) error {
	if set == nil {
		return nil
	}
	c.mu.Lock()
	c.entries[set.TenantID] = memoryEntry{set: set, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryPolicyCache) Delete(_ context.Context, tenantID string) error {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
	return nil
}
