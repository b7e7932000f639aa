package inventory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
	"github.com/jhoicas/estoque-api/internal/infrastructure/cache"
	"github.com/jhoicas/estoque-api/internal/infrastructure/memory"
)

type countingTypes struct {
	repository.MovementTypeRepository
	loads int32
}

func (c *countingTypes) ListForTenant(ctx context.Context, tenantID string) ([]entity.MovementType, error) {
	atomic.AddInt32(&c.loads, 1)
	return c.MovementTypeRepository.ListForTenant(ctx, tenantID)
}

func TestPolicyProvider_CargaUnaVezYCachea(t *testing.T) {
	repo := &countingTypes{MovementTypeRepository: memory.NewStore().MovementTypes()}
	p := appinv.NewPolicyProvider(repo, cache.NewMemoryPolicyCache(), time.Minute, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Get(context.Background(), tenant)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	before := atomic.LoadInt32(&repo.loads)
	assert.GreaterOrEqual(t, before, int32(1))

	_, err := p.Get(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&repo.loads), "servido desde la caché")

	p.Invalidate(context.Background(), tenant)
	_, err = p.Get(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, before+1, atomic.LoadInt32(&repo.loads))
}

func TestPolicyProvider_SinCacheLeeSiempre(t *testing.T) {
	repo := &countingTypes{MovementTypeRepository: memory.NewStore().MovementTypes()}
	p := appinv.NewPolicyProvider(repo, cache.NoopPolicyCache{}, 0, zerolog.Nop())

	set, err := p.Get(context.Background(), tenant)
	require.NoError(t, err)
	_, ok := set.Lookup(entity.TypeVenda)
	assert.True(t, ok)
	_, err = p.Get(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&repo.loads))
}

// blockingTypes detiene la primera carga después de leer hasta que el test la libera.
type blockingTypes struct {
	repository.MovementTypeRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newBlockingTypes(repo repository.MovementTypeRepository) *blockingTypes {
	return &blockingTypes{MovementTypeRepository: repo, read: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingTypes) ListForTenant(ctx context.Context, tenantID string) ([]entity.MovementType, error) {
	types, err := b.MovementTypeRepository.ListForTenant(ctx, tenantID)
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.read)
		<-b.release
	}
	if err == nil {
		err = ctx.Err()
	}
	return types, err
}

func TestPolicyProvider_EdicionDuranteLaCargaNoQuedaCacheada(t *testing.T) {
	store := memory.NewStore()
	repo := newBlockingTypes(store.MovementTypes())
	p := appinv.NewPolicyProvider(repo, cache.NewMemoryPolicyCache(), time.Minute, zerolog.Nop())
	types := appinv.NewMovementTypeUseCase(store.MovementTypes(), p, zerolog.Nop())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := p.Get(ctx, tenant)
		done <- err
	}()
	<-repo.read

	inactive := false
	_, err := types.Upsert(ctx, tenant, entity.TypeVenda, dto.MovementTypeRequest{Direction: "OUT", Active: &inactive})
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-done)

	set, err := p.Get(ctx, tenant)
	require.NoError(t, err)
	venda, ok := set.Lookup(entity.TypeVenda)
	require.True(t, ok)
	assert.False(t, venda.Active, "la política previa a la edición no debe servirse desde la caché")
}

func TestPolicyProvider_CargaNoDependeDelContextoDelLlamador(t *testing.T) {
	repo := newBlockingTypes(memory.NewStore().MovementTypes())
	p := appinv.NewPolicyProvider(repo, cache.NewMemoryPolicyCache(), time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Get(ctx, tenant)
		done <- err
	}()
	<-repo.read
	cancel()
	close(repo.release)
	require.NoError(t, <-done)

	_, err := p.Get(context.Background(), tenant)
	require.NoError(t, err)
}

// ──── Administración de tipos ────────────────────────────────────────────────

func TestMovementTypes_RedefinicionCambiaLaPolitica(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	types := appinv.NewMovementTypeUseCase(f.store.MovementTypes(), f.policies, zerolog.Nop())
	f.mustRegister(t, cmd(dipirona, entity.TypeAjustePositivo, 5, "carga"))

	before, err := f.policies.Get(ctx, tenant)
	require.NoError(t, err)

	mt, err := types.Upsert(ctx, tenant, "venda", dto.MovementTypeRequest{
		Description: "Venda com conferência", Direction: "out",
		RequiresApproval: true, AllowsControlledSubstances: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TypeVenda, mt.Code)
	assert.Equal(t, tenant, mt.TenantID)

	after, err := f.policies.Get(ctx, tenant)
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)

	res := f.mustRegister(t, cmd(dipirona, entity.TypeVenda, -1, "venda-1"))
	assert.True(t, res.PendingApproval)

	// otros tenants siguen con el default
	other, err := f.policies.Get(ctx, "farmacia-2")
	require.NoError(t, err)
	venda, _ := other.Lookup(entity.TypeVenda)
	assert.False(t, venda.RequiresApproval)
}

func TestMovementTypes_DesactivarRechazaNuevosMovimientos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	types := appinv.NewMovementTypeUseCase(f.store.MovementTypes(), f.policies, zerolog.Nop())

	mt, err := types.Deactivate(ctx, tenant, entity.TypeDevolucaoCliente)
	require.NoError(t, err)
	assert.False(t, mt.Active)
	assert.Equal(t, entity.LifecycleSoftDeleted, mt.Lifecycle)

	_, err = f.register.RegisterMovement(ctx, cmd(dipirona, entity.TypeDevolucaoCliente, 1, "dev-1"))
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)

	_, err = types.Deactivate(ctx, tenant, "NAO_EXISTE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMovementTypes_SentidoInvalido(t *testing.T) {
	f := newFixture(t)
	types := appinv.NewMovementTypeUseCase(f.store.MovementTypes(), f.policies, zerolog.Nop())

	_, err := types.Upsert(context.Background(), tenant, "BRINDE", dto.MovementTypeRequest{Direction: "SIDEWAYS"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
