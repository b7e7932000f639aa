package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

func TestSummary_ClasificaPorEstado(t *testing.T) {
	f := newFixture(t)
	f.mustRegister(t, cmd(dipirona, entity.TypeAjustePositivo, 3, "m-1")) // mínimo 5 → BAIXO
	f.mustRegister(t, cmd(rivotril, entity.TypeDevolucaoCliente, 4, "m-2"))

	uc := appinv.NewSummaryUseCase(f.ledger, f.store.Products())
	res, err := uc.Summary(context.Background(), tenant, "")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Zerado)
	assert.Equal(t, 1, res.Baixo)
	assert.Equal(t, 1, res.Normal)
	require.Len(t, res.Items, 3)
	assert.Equal(t, amoxi, res.Items[0].ProductID)
	assert.Equal(t, inventory.StatusZerado, res.Items[0].Status)
	assert.Equal(t, dipirona, res.Items[1].ProductID)

	baixo, err := uc.Summary(context.Background(), tenant, inventory.StatusBaixo)
	require.NoError(t, err)
	assert.Equal(t, 3, baixo.Total)
	require.Len(t, baixo.Items, 1)
	assert.True(t, baixo.Items[0].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestLots_RegistroYListadoFEFO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := appinv.NewLotUseCase(f.store.Lots(), f.store.Products())
	now := time.Now().UTC()
	late, early := now.AddDate(0, 6, 0), now.AddDate(0, 1, 0)

	_, err := uc.Register(ctx, tenant, dto.RegisterLotRequest{ProductID: amoxi, LotNumber: "L-B", ExpiryDate: &late})
	require.NoError(t, err)
	created, err := uc.Register(ctx, tenant, dto.RegisterLotRequest{ProductID: amoxi, LotNumber: "L-A", ExpiryDate: &early})
	require.NoError(t, err)
	assert.True(t, created.Remaining.IsZero())

	_, err = uc.Register(ctx, tenant, dto.RegisterLotRequest{ProductID: amoxi, LotNumber: "L-A"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	_, err = uc.Register(ctx, tenant, dto.RegisterLotRequest{ProductID: "nope", LotNumber: "L-C"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	lots, err := uc.List(ctx, tenant, amoxi)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "L-A", lots[0].LotNumber)
	assert.False(t, lots[0].Expired)
}
