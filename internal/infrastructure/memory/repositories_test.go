package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/infrastructure/memory"
)

func TestCompanyRepo_Modulos(t *testing.T) {
	ctx := context.Background()
	companies := memory.NewStore().Companies()

	ok, err := companies.HasActiveModule(ctx, "farmacia-1", entity.ModuleEstoque)
	require.NoError(t, err)
	assert.False(t, ok)

	companies.Entitle("farmacia-1", entity.ModuleEstoque)
	ok, err = companies.HasActiveModule(ctx, "farmacia-1", entity.ModuleEstoque)
	require.NoError(t, err)
	assert.True(t, ok)

	past := time.Now().Add(-time.Hour)
	companies.EntitleUntil("farmacia-2", entity.ModuleEstoque, &past)
	ok, err = companies.HasActiveModule(ctx, "farmacia-2", entity.ModuleEstoque)
	require.NoError(t, err)
	assert.False(t, ok, "vencido")

	ok, err = companies.HasActiveModule(ctx, "farmacia-1", entity.ModuleFiscal)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompanyModule_Entitled(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	assert.True(t, entity.CompanyModule{IsActive: true}.Entitled(now))
	assert.True(t, entity.CompanyModule{IsActive: true, ExpiresAt: &future}.Entitled(now))
	assert.False(t, entity.CompanyModule{IsActive: false}.Entitled(now))
}

func TestProductRepo_UpsertConservaCache(t *testing.T) {
	ctx := context.Background()
	products := memory.NewStore().Products()

	require.NoError(t, products.Upsert(ctx, &entity.Product{ID: "p1", TenantID: "t", SKU: "A", Name: "A"}))
	require.NoError(t, products.UpdateCachedQuantity(ctx, "t", "p1", mustDecimal(t, "7.5")))
	require.NoError(t, products.Upsert(ctx, &entity.Product{ID: "p1", TenantID: "t", SKU: "A", Name: "A2"}))

	got, err := products.GetByID(ctx, "t", "p1")
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
	assert.Equal(t, "7.5", got.CachedQuantity.String())
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
