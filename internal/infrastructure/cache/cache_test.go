package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/infrastructure/cache"
)

func policySet(tenantID string) *inventory.PolicySet {
	return inventory.NewPolicySet(tenantID, inventory.DefaultMovementTypes(), time.Now().UTC())
}

// ──── MemoryPolicyCache ──────────────────────────────────────────────────────

func TestMemoryPolicyCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryPolicyCache()

	_, ok, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, policySet("t1"), time.Minute))
	got, ok, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t1", got.TenantID)

	require.NoError(t, c.Delete(ctx, "t1"))
	_, ok, _ = c.Get(ctx, "t1")
	assert.False(t, ok)
}

func TestMemoryPolicyCache_Expira(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryPolicyCache()
	require.NoError(t, c.Set(ctx, policySet("t1"), -time.Second))

	_, ok, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopPolicyCache_NuncaDevuelve(t *testing.T) {
	ctx := context.Background()
	var c cache.NoopPolicyCache
	require.NoError(t, c.Set(ctx, policySet("t1"), time.Minute))
	_, ok, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ──── RedisPolicyCache (requiere ESTOQUE_TEST_REDIS_ADDR) ────────────────────

func TestRedisPolicyCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("ESTOQUE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ESTOQUE_TEST_REDIS_ADDR no definido")
	}
	ctx := context.Background()
	c := cache.NewRedisPolicyCache(addr, "", 0)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	tenant := "test-" + time.Now().Format("150405.000000")
	set := policySet(tenant)
	require.NoError(t, c.Set(ctx, set, time.Minute))

	got, ok, err := c.Get(ctx, tenant)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, set.Version, got.Version)
	venda, found := got.Lookup("venda")
	require.True(t, found)
	assert.True(t, venda.Active)

	require.NoError(t, c.Delete(ctx, tenant))
	_, ok, err = c.Get(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPolicyCache_EntradaIlegibleCuentaComoAusente(t *testing.T) {
	addr := os.Getenv("ESTOQUE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ESTOQUE_TEST_REDIS_ADDR no definido")
	}
	ctx := context.Background()
	raw := redis.NewClient(&redis.Options{Addr: addr})
	defer raw.Close()
	c := cache.NewRedisPolicyCache(addr, "", 0)
	defer c.Close()

	tenant := "corrupt-" + time.Now().Format("150405.000000")
	require.NoError(t, raw.Set(ctx, "estoque:policy:v1:"+tenant, "{no-json", time.Minute).Err())

	_, ok, err := c.Get(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := raw.Exists(ctx, "estoque:policy:v1:"+tenant).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "la entrada ilegible se borra")
}

func TestRedisPolicyCache_SinServidorDevuelveError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c := cache.NewRedisPolicyCache("127.0.0.1:1", "", 0)
	defer c.Close()

	_, ok, err := c.Get(ctx, "t1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}
