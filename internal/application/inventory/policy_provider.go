package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// PolicyProvider entrega la política tipada de cada tenant, cargada una vez y
// cacheada. Las cargas concurrentes del mismo tenant se colapsan en una.
type PolicyProvider struct {
	repo  repository.MovementTypeRepository
	cache PolicyCache
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
	log   zerolog.Logger

	// gens sube en cada Invalidate; una carga iniciada antes no se cachea.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewPolicyProvider construye el proveedor. ttl <= 0 usa 5 minutos.
func NewPolicyProvider(repo repository.MovementTypeRepository, cache PolicyCache, ttl time.Duration, log zerolog.Logger) *PolicyProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PolicyProvider{repo: repo, cache: cache, ttl: ttl, now: time.Now, log: log, gens: make(map[string]uint64)}
}

// Get devuelve la política del tenant. Un fallo de la caché no es fatal: se
// registra y se lee del repositorio.
func (p *PolicyProvider) Get(ctx context.Context, tenantID string) (*inventory.PolicySet, error) {
	set, ok, err := p.cache.Get(ctx, tenantID)
	if err != nil {
		p.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("caché de política no disponible")
	}
	if ok && set != nil {
		return set, nil
	}

	// la carga compartida no depende de la cancelación del primer llamador
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do(tenantID, func() (interface{}, error) {
		gen := p.generation(tenantID)
		types, err := p.repo.ListForTenant(loadCtx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("cargar tipos de movimiento: %w", err)
		}
		loaded := inventory.NewPolicySet(tenantID, types, p.now().UTC())
		p.store(loadCtx, loaded, gen)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*inventory.PolicySet), nil
}

// Invalidate descarta la política cacheada tras una edición.
func (p *PolicyProvider) Invalidate(ctx context.Context, tenantID string) {
	p.mu.Lock()
	p.gens[tenantID]++
	p.mu.Unlock()

	p.group.Forget(tenantID)
	if err := p.cache.Delete(ctx, tenantID); err != nil {
		p.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("no se pudo invalidar la política cacheada")
	}
}

func (p *PolicyProvider) generation(tenantID string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gens[tenantID]
}

// store cachea set solo si no hubo Invalidate desde que empezó la carga (gen).
func (p *PolicyProvider) store(ctx context.Context, set *inventory.PolicySet, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gens[set.TenantID] != gen {
		p.log.Debug().Str("tenant_id", set.TenantID).Msg("política invalidada durante la carga, no se cachea")
		return
	}
	if err := p.cache.Set(ctx, set, p.ttl); err != nil {
		p.log.Warn().Err(err).Str("tenant_id", set.TenantID).Msg("no se pudo cachear la política")
	}
}
