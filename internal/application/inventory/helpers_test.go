package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
	"github.com/jhoicas/estoque-api/internal/infrastructure/cache"
	"github.com/jhoicas/estoque-api/internal/infrastructure/memory"
)

const (
	tenant   = "farmacia-1"
	actor    = "user-1"
	dipirona = "prod-dipirona"
	amoxi    = "prod-amoxicilina"
	rivotril = "prod-rivotril"
)

type fixture struct {
	store    *memory.Store
	ledger   repository.LedgerStore
	policies *appinv.PolicyProvider
	register *appinv.RegisterMovementUseCase
	approval *appinv.ApprovalUseCase
	sync     *appinv.SyncCoordinator
	rebuild  *appinv.RebuildUseCase
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLedger(t, nil)
}

// newFixtureWithLedger permite envolver el ledger en memoria (p.ej. para forzar conflictos).
func newFixtureWithLedger(t *testing.T, wrap func(repository.LedgerStore) repository.LedgerStore) *fixture {
	t.Helper()
	store := memory.NewStore()
	products := store.Products()
	products.Put(&entity.Product{ID: dipirona, TenantID: tenant, SKU: "DIP-500", Name: "Dipirona 500mg", MinStock: decimal.NewFromInt(5)})
	products.Put(&entity.Product{ID: amoxi, TenantID: tenant, SKU: "AMX-875", Name: "Amoxicilina 875mg", LotTracked: true, MinStock: decimal.NewFromInt(2)})
	products.Put(&entity.Product{ID: rivotril, TenantID: tenant, SKU: "RIV-2", Name: "Rivotril 2mg", Controlled: true})

	var ledger repository.LedgerStore = store.Ledger()
	if wrap != nil {
		ledger = wrap(ledger)
	}
	log := zerolog.Nop()
	policies := appinv.NewPolicyProvider(store.MovementTypes(), cache.NewMemoryPolicyCache(), time.Minute, log)
	register := appinv.NewRegisterMovementUseCase(ledger, store.Lots(), products, policies, log)
	return &fixture{
		store:    store,
		ledger:   ledger,
		policies: policies,
		register: register,
		approval: appinv.NewApprovalUseCase(register),
		sync:     appinv.NewSyncCoordinator(register, 50, log),
		rebuild:  appinv.NewRebuildUseCase(ledger, store.Lots(), products, 4, log),
	}
}

func cmd(productID, typeCode string, qty int64, clientID string) appinv.MovementCommand {
	return appinv.MovementCommand{
		TenantID:  tenant,
		ActorID:   actor,
		Role:      entity.RoleEstoquista,
		ClientID:  clientID,
		ProductID: productID,
		TypeCode:  typeCode,
		Quantity:  decimal.NewFromInt(qty),
		Reason:    "teste",
	}
}

func (f *fixture) mustRegister(t *testing.T, c appinv.MovementCommand) *appinv.MovementResult {
	t.Helper()
	res, err := f.register.RegisterMovement(context.Background(), c)
	require.NoError(t, err)
	return res
}

// receiveLot entrada de compra con lote para un producto con rastreo de lote.
func (f *fixture) receiveLot(t *testing.T, lotNumber string, qty int64, expiry time.Time) *appinv.MovementResult {
	t.Helper()
	c := cmd(amoxi, entity.TypeEntradaCompra, qty, "entrada-"+lotNumber)
	c.LotNumber = lotNumber
	c.LotExpiry = &expiry
	c.SupplierID = "fornecedor-1"
	c.InvoiceNumber = "NF-" + lotNumber
	c.UnitCost = decimal.NewFromInt(10)
	return f.mustRegister(t, c)
}

func (f *fixture) quantity(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	agg, err := f.ledger.GetAggregate(context.Background(), tenant, productID)
	require.NoError(t, err)
	return agg.Quantity
}

func signedHash(id, productID, typeCode string, qty int64, at time.Time, reason string) string {
	return inventory.ComputeIntegrityHash(inventory.IntegrityFields{
		ClientID: id, ProductID: productID, TypeCode: typeCode,
		Quantity: decimal.NewFromInt(qty), ClientTimestamp: at, Reason: reason,
	})
}
