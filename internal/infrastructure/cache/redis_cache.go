package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// policyKeyPrefix lleva la versión del formato serializado de PolicySet; al
// cambiar el formato se sube y las entradas viejas simplemente expiran.
const policyKeyPrefix = "estoque:policy:v1:"

// RedisPolicyCache comparte la política de cada farmacia entre instancias del
// servicio. Invalidate en una instancia borra la clave para todas.
type RedisPolicyCache struct {
	client *redis.Client
}

// NewRedisPolicyCache abre el cliente; no verifica la conexión (ver Ping).
func NewRedisPolicyCache(addr, password string, db int) *RedisPolicyCache {
	return &RedisPolicyCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping lo usa el arranque para decidir entre Redis y la caché en proceso.
func (c *RedisPolicyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close libera el pool de conexiones.
func (c *RedisPolicyCache) Close() error {
	return c.client.Close()
}

// Get devuelve (nil, false, nil) si el tenant no tiene política cacheada. Una
// entrada ilegible se borra y cuenta como ausente.
func (c *RedisPolicyCache) Get(ctx context.Context, tenantID string) (*inventory.PolicySet, bool, error) {
	key := policyKey(tenantID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var set inventory.PolicySet
	if err := json.Unmarshal(raw, &set); err != nil || set.TenantID != tenantID {
		_ = c.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &set, true, nil
}

// Set guarda la política con expiración ttl.
func (c *RedisPolicyCache) Set(ctx context.Context, set *inventory.PolicySet, ttl time.Duration) error {
	if set == nil {
		return nil
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("serializar política %s: %w", set.TenantID, err)
	}
	key := policyKey(set.TenantID)
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete descarta la política del tenant; borrar una clave inexistente no es error.
func (c *RedisPolicyCache) Delete(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, policyKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", policyKey(tenantID), err)
	}
	return nil
}

func policyKey(tenantID string) string {
	return policyKeyPrefix + tenantID
}
