package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/infrastructure/postgres"
	"github.com/jhoicas/estoque-api/pkg/config"
)

// Requiere una base descartable: ESTOQUE_TEST_DATABASE_URL=postgres://...
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("ESTOQUE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ESTOQUE_TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

func record(tenantID, productID, typeCode string, qty int64) *entity.MovementRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	r := &entity.MovementRecord{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ProductID:       productID,
		TypeCode:        typeCode,
		Quantity:        decimal.NewFromInt(qty),
		UnitCost:        decimal.Zero,
		ClientID:        uuid.NewString(),
		ClientTimestamp: now,
		ServerTimestamp: now,
		SyncStatus:      entity.SyncSynced,
		ApprovalStatus:  entity.ApprovalNotRequired,
		Reason:          "integração",
		ActorID:         "tester",
		Lifecycle:       entity.LifecycleActive,
	}
	r.IntegrityHash = inventory.ComputeIntegrityHash(inventory.IntegrityFields{
		ClientID: r.ClientID, ProductID: productID, TypeCode: typeCode,
		Quantity: r.Quantity, ClientTimestamp: now, Reason: r.Reason,
	})
	return r
}

func TestLedgerStore_AppendVersionYReplay(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := postgres.NewLedgerStore(pool)
	tenant, product := "t-"+uuid.NewString(), "p-"+uuid.NewString()

	in := record(tenant, product, entity.TypeAjustePositivo, 10)
	committed, v, err := store.Append(ctx, in, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.True(t, committed.QuantityAfter.Equal(decimal.NewFromInt(10)))

	_, _, err = store.Append(ctx, record(tenant, product, entity.TypeVenda, -1), 0)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	_, _, err = store.Append(ctx, record(tenant, product, entity.TypeVenda, -11), 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, v, err = store.Append(ctx, record(tenant, product, entity.TypeVenda, -4), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	dup := *in
	dup.ID = uuid.NewString()
	_, _, err = store.Append(ctx, &dup, 2)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	agg, err := store.GetAggregate(ctx, tenant, product)
	require.NoError(t, err)
	records, err := store.Replay(ctx, tenant, product)
	require.NoError(t, err)
	require.Len(t, records, 2)
	rebuilt, err := inventory.Replay(tenant, product, records)
	require.NoError(t, err)
	assert.True(t, rebuilt.SameState(*agg))
	assert.True(t, agg.Quantity.Equal(decimal.NewFromInt(6)))

	byClient, err := store.GetByClientID(ctx, tenant, in.ClientID)
	require.NoError(t, err)
	require.NotNil(t, byClient)
	assert.Equal(t, in.IntegrityHash, byClient.IntegrityHash)
}

func TestLedgerStore_AsignacionesDeLote(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := postgres.NewLedgerStore(pool)
	lots := postgres.NewLotRepository(pool)
	tenant, product := "t-"+uuid.NewString(), "p-"+uuid.NewString()

	lot := &entity.Lot{ID: uuid.NewString(), TenantID: tenant, ProductID: product, LotNumber: "L1", Remaining: decimal.Zero, CreatedAt: time.Now().UTC()}
	require.NoError(t, lots.Create(ctx, lot))
	assert.ErrorIs(t, lots.Create(ctx, &entity.Lot{ID: uuid.NewString(), TenantID: tenant, ProductID: product, LotNumber: "L1", CreatedAt: time.Now().UTC()}), domain.ErrDuplicate)

	in := record(tenant, product, entity.TypeEntradaCompra, 5)
	in.LotID = lot.ID
	in.Allocations = []entity.LotAllocation{{LotID: lot.ID, LotNumber: "L1", Delta: decimal.NewFromInt(5)}}
	_, _, err := store.Append(ctx, in, 0)
	require.NoError(t, err)

	out := record(tenant, product, entity.TypeVenda, -2)
	out.Allocations = []entity.LotAllocation{{LotID: lot.ID, LotNumber: "L1", Delta: decimal.NewFromInt(-6)}}
	_, _, err = store.Append(ctx, out, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientLotStock)

	got, err := lots.GetByID(ctx, tenant, lot.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(decimal.NewFromInt(5)), "rollback completo")
}

func TestLedgerStore_StageYAprobar(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := postgres.NewLedgerStore(pool)
	tenant, product := "t-"+uuid.NewString(), "p-"+uuid.NewString()

	_, _, err := store.Append(ctx, record(tenant, product, entity.TypeAjustePositivo, 3), 0)
	require.NoError(t, err)

	pending := record(tenant, product, entity.TypePerda, -1)
	staged, err := store.Stage(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalPending, staged.ApprovalStatus)

	approved, v, err := store.Approve(ctx, tenant, pending.ID, "admin-1", nil, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, entity.ApprovalApproved, approved.ApprovalStatus)

	_, err = store.Reject(ctx, tenant, pending.ID, "admin-1", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotPending)
}
