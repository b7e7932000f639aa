package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

func TestProductUseCase_UpsertConservaEstoque(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := appinv.NewProductUseCase(f.store.Products(), f.ledger)

	f.mustRegister(t, cmd(dipirona, entity.TypeAjustePositivo, 12, "c1"))

	out, err := uc.Upsert(ctx, tenant, dipirona, dto.UpsertProductRequest{
		SKU: "DIP-500", Name: "Dipirona Sódica 500mg", MinStock: decimal.NewFromInt(8), Controlled: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dipirona Sódica 500mg", out.Name)
	assert.True(t, out.MinStock.Equal(decimal.NewFromInt(8)))
	assert.True(t, out.CachedQuantity.Equal(decimal.NewFromInt(12)), "estoque_atual no se pisa")
}

func TestProductUseCase_Validacion(t *testing.T) {
	f := newFixture(t)
	uc := appinv.NewProductUseCase(f.store.Products(), f.ledger)

	_, err := uc.Upsert(context.Background(), tenant, " ", dto.UpsertProductRequest{MinStock: decimal.NewFromInt(-1)})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 3)

	_, err = uc.GetByID(context.Background(), tenant, "nao-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductUseCase_ListPaginado(t *testing.T) {
	f := newFixture(t)
	uc := appinv.NewProductUseCase(f.store.Products(), f.ledger)

	first, err := uc.List(context.Background(), tenant, dto.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "AMX-875", first.Items[0].SKU)

	second, err := uc.List(context.Background(), tenant, dto.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "RIV-2", second.Items[0].SKU)
}

func TestProductUseCase_RastreoDeLoteSoloConSaldoCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := appinv.NewProductUseCase(f.store.Products(), f.ledger)
	f.mustRegister(t, cmd(dipirona, entity.TypeAjustePositivo, 3, "c1"))

	_, err := uc.Upsert(ctx, tenant, dipirona, dto.UpsertProductRequest{SKU: "DIP-500", Name: "Dipirona 500mg", LotTracked: true})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "LOT_TRACKING_WITH_STOCK", ve.Violations[0].Code)

	p, err := f.store.Products().GetByID(ctx, tenant, dipirona)
	require.NoError(t, err)
	assert.False(t, p.LotTracked, "sin cambios")

	f.mustRegister(t, cmd(dipirona, entity.TypeVenda, -3, "v1"))
	out, err := uc.Upsert(ctx, tenant, dipirona, dto.UpsertProductRequest{SKU: "DIP-500", Name: "Dipirona 500mg", LotTracked: true})
	require.NoError(t, err)
	assert.True(t, out.LotTracked)
}
