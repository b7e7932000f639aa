package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
	"github.com/jhoicas/estoque-api/internal/infrastructure/sqlite"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "estoque.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(tenantID, productID, typeCode string, qty int64) *entity.MovementRecord {
	now := time.Now().UTC()
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
		Reason:          "local",
		ActorID:         "tester",
		Lifecycle:       entity.LifecycleActive,
	}
	r.IntegrityHash = inventory.ComputeIntegrityHash(inventory.IntegrityFields{
		ClientID: r.ClientID, ProductID: productID, TypeCode: typeCode,
		Quantity: r.Quantity, ClientTimestamp: now, Reason: r.Reason,
	})
	return r
}

// ──── Ledger ────

func TestLedgerStore_AppendVersionYReplay(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := sqlite.NewLedgerStore(db)

	in := record("t1", "p1", entity.TypeAjustePositivo, 10)
	committed, v, err := store.Append(ctx, in, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.True(t, committed.QuantityAfter.Equal(decimal.NewFromInt(10)))

	_, _, err = store.Append(ctx, record("t1", "p1", entity.TypeVenda, -1), 0)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	_, _, err = store.Append(ctx, record("t1", "p1", entity.TypeVenda, -11), 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, v, err = store.Append(ctx, record("t1", "p1", entity.TypeVenda, -4), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	dup := *in
	dup.ID = uuid.NewString()
	_, _, err = store.Append(ctx, &dup, 2)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	agg, err := store.GetAggregate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Version)
	assert.True(t, agg.Quantity.Equal(decimal.NewFromInt(6)))

	records, err := store.Replay(ctx, "t1", "p1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	rebuilt, err := inventory.Replay("t1", "p1", records)
	require.NoError(t, err)
	assert.True(t, rebuilt.SameState(*agg))

	byClient, err := store.GetByClientID(ctx, "t1", in.ClientID)
	require.NoError(t, err)
	require.NotNil(t, byClient)
	assert.Equal(t, in.IntegrityHash, byClient.IntegrityHash)
	assert.True(t, byClient.ClientTimestamp.Equal(in.ClientTimestamp))

	missing, err := store.GetByID(ctx, "t1", "no-existe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := store.GetAggregate(ctx, "t1", "otro")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Version)
	assert.True(t, empty.Quantity.IsZero())
}

func TestLedgerStore_DecimalesExactos(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := sqlite.NewLedgerStore(db)

	in := record("t1", "p1", entity.TypeAjustePositivo, 0)
	in.Quantity = decimal.RequireFromString("0.1")
	_, _, err := store.Append(ctx, in, 0)
	require.NoError(t, err)
	in2 := record("t1", "p1", entity.TypeAjustePositivo, 0)
	in2.Quantity = decimal.RequireFromString("0.2")
	_, _, err = store.Append(ctx, in2, 1)
	require.NoError(t, err)

	agg, err := store.GetAggregate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "0.3", agg.Quantity.String())
}

func TestLedgerStore_AsignacionesDeLote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := sqlite.NewLedgerStore(db)
	lots := sqlite.NewLotRepository(db)

	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	lot := &entity.Lot{ID: uuid.NewString(), TenantID: "t1", ProductID: "p1", LotNumber: "L1", ExpiryDate: &expiry, Remaining: decimal.Zero, CreatedAt: time.Now().UTC()}
	require.NoError(t, lots.Create(ctx, lot))
	assert.Positive(t, lot.Seq)
	assert.ErrorIs(t, lots.Create(ctx, &entity.Lot{ID: uuid.NewString(), TenantID: "t1", ProductID: "p1", LotNumber: "L1", CreatedAt: time.Now().UTC()}), domain.ErrDuplicate)

	in := record("t1", "p1", entity.TypeEntradaCompra, 5)
	in.LotID = lot.ID
	in.Allocations = []entity.LotAllocation{{LotID: lot.ID, LotNumber: "L1", Delta: decimal.NewFromInt(5)}}
	_, _, err := store.Append(ctx, in, 0)
	require.NoError(t, err)

	out := record("t1", "p1", entity.TypeVenda, -2)
	out.Allocations = []entity.LotAllocation{{LotID: lot.ID, LotNumber: "L1", Delta: decimal.NewFromInt(-6)}}
	_, _, err = store.Append(ctx, out, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientLotStock)

	got, err := lots.GetByNumber(ctx, "t1", "p1", "L1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Remaining.Equal(decimal.NewFromInt(5)), "rollback completo")
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, got.ExpiryDate.Equal(expiry))

	agg, err := store.GetAggregate(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.Version)

	stored, err := store.GetByClientID(ctx, "t1", in.ClientID)
	require.NoError(t, err)
	require.Len(t, stored.Allocations, 1)
	assert.Equal(t, lot.ID, stored.Allocations[0].LotID)
}

func TestLedgerStore_StageAprobarRechazar(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := sqlite.NewLedgerStore(db)

	_, _, err := store.Append(ctx, record("t1", "p1", entity.TypeAjustePositivo, 3), 0)
	require.NoError(t, err)

	pending := record("t1", "p1", entity.TypePerda, -1)
	staged, err := store.Stage(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalPending, staged.ApprovalStatus)

	records, err := store.Replay(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Len(t, records, 1, "pendiente no entra en el replay")

	approved, v, err := store.Approve(ctx, "t1", pending.ID, "admin-1", nil, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, entity.ApprovalApproved, approved.ApprovalStatus)
	assert.True(t, approved.QuantityAfter.Equal(decimal.NewFromInt(2)))

	_, err = store.Reject(ctx, "t1", pending.ID, "admin-1", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotPending)

	other := record("t1", "p1", entity.TypePerda, -1)
	_, err = store.Stage(ctx, other)
	require.NoError(t, err)
	rejected, err := store.Reject(ctx, "t1", other.ID, "admin-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalRejected, rejected.ApprovalStatus)

	_, err = store.Reject(ctx, "t1", "no-existe", "admin-1", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedgerStore_RepairYRange(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := sqlite.NewLedgerStore(db)

	for i := int64(0); i < 3; i++ {
		_, _, err := store.Append(ctx, record("t1", "p1", entity.TypeAjustePositivo, 1), i)
		require.NoError(t, err)
	}

	bad := entity.NewStockAggregate("t1", "p1")
	bad.Quantity = decimal.NewFromInt(99)
	_, err := store.RepairAggregate(ctx, bad, 1)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	v, err := store.RepairAggregate(ctx, bad, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	aggs, err := store.ListAggregates(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.True(t, aggs[0].Quantity.Equal(decimal.NewFromInt(99)))

	page, total, err := store.Range(ctx, "t1", repositoryFilter("p1"), pageOf(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
}

// ──── Catálogo ────

func TestRepositorios_ProductosTiposYModulos(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	products := sqlite.NewProductRepository(db)
	require.NoError(t, products.Upsert(ctx, &entity.Product{ID: "p2", TenantID: "t1", SKU: "B", Name: "Amoxicilina", LotTracked: true, MinStock: decimal.NewFromInt(2)}))
	require.NoError(t, products.Upsert(ctx, &entity.Product{ID: "p1", TenantID: "t1", SKU: "A", Name: "Dipirona", MinStock: decimal.NewFromInt(5)}))
	require.NoError(t, products.UpdateCachedQuantity(ctx, "t1", "p1", decimal.NewFromInt(7)))

	p, err := products.GetByID(ctx, "t1", "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.CachedQuantity.Equal(decimal.NewFromInt(7)))
	list, err := products.ListByTenant(ctx, "t1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].SKU)
	assert.True(t, list[1].LotTracked)

	types := sqlite.NewMovementTypeRepository(db)
	defaults, err := types.ListForTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, defaults, len(inventory.DefaultMovementTypes()))

	override := &entity.MovementType{TenantID: "t1", Code: entity.TypeVenda, Direction: entity.DirectionOut, RequiresApproval: true, Active: true}
	require.NoError(t, types.Upsert(ctx, override))
	assert.Equal(t, int64(1), override.Version)
	require.NoError(t, types.Upsert(ctx, override))
	assert.Equal(t, int64(2), override.Version)

	withOverride, err := types.ListForTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, withOverride, len(defaults)+1)

	companies := sqlite.NewCompanyRepository(db)
	ok, err := companies.HasActiveModule(ctx, "t1", entity.ModuleEstoque)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, companies.Entitle(ctx, "t1", entity.ModuleEstoque))
	ok, err = companies.HasActiveModule(ctx, "t1", entity.ModuleEstoque)
	require.NoError(t, err)
	assert.True(t, ok)
}

func repositoryFilter(productID string) repository.MovementFilter {
	return repository.MovementFilter{ProductID: productID}
}

func pageOf(number, size int) repository.Page {
	return repository.Page{Number: number, Size: size}
}
