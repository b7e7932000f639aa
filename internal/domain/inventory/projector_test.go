package inventory_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

func rec(id string, qty int64, cost string) *entity.MovementRecord {
	return &entity.MovementRecord{
		ID: id, TenantID: "t1", ProductID: "p1",
		Quantity:        decimal.NewFromInt(qty),
		UnitCost:        decimal.RequireFromString(cost),
		ServerTimestamp: time.Unix(0, 0).UTC(),
		SyncStatus:      entity.SyncSynced,
		ApprovalStatus:  entity.ApprovalNotRequired,
		Lifecycle:       entity.LifecycleActive,
	}
}

func TestApply_VentaRestaYSubeVersion(t *testing.T) {
	agg := entity.NewStockAggregate("t1", "p1")
	agg.Quantity = decimal.NewFromInt(10)
	agg.Version = 3

	next, err := inventory.Apply(agg, rec("m1", -4, "0"))
	require.NoError(t, err)
	assert.True(t, next.Quantity.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, int64(4), next.Version)
	assert.Equal(t, "m1", next.LastMovementID)

	// el original no cambia
	assert.True(t, agg.Quantity.Equal(decimal.NewFromInt(10)))
}

func TestApply_NegativoRechazado(t *testing.T) {
	agg := entity.NewStockAggregate("t1", "p1")
	agg.Quantity = decimal.NewFromInt(6)

	next, err := inventory.Apply(agg, rec("m2", -10, "0"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.True(t, next.Quantity.Equal(decimal.NewFromInt(6)))

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Current.Equal(decimal.NewFromInt(6)))
	assert.True(t, stockErr.Requested.Equal(decimal.NewFromInt(10)))
}

func TestApply_EntradaRecalculaCostoPromedio(t *testing.T) {
	agg := entity.NewStockAggregate("t1", "p1")
	agg.Quantity = decimal.NewFromInt(10)
	agg.AverageCost = decimal.NewFromInt(2)

	next, err := inventory.Apply(agg, rec("m3", 10, "4"))
	require.NoError(t, err)
	assert.Equal(t, "3", next.AverageCost.String())
}

func TestReplay_IgnoraPendientesYRechazados(t *testing.T) {
	pend := rec("p", -100, "0")
	pend.ApprovalStatus = entity.ApprovalPending
	rej := rec("r", -100, "0")
	rej.ApprovalStatus = entity.ApprovalRejected
	arch := rec("a", 50, "0")
	arch.Lifecycle = entity.LifecycleArchived

	records := []entity.MovementRecord{*rec("e", 5, "1"), *pend, *rej, *arch}
	agg, err := inventory.Replay("t1", "p1", records)
	require.NoError(t, err)
	assert.True(t, agg.Quantity.Equal(decimal.NewFromInt(5)))
}

// Ley de replay: aplicar incrementalmente y reconstruir desde el ledger
// producen la misma cantidad, igual a la suma de los deltas aceptados.
func TestReplay_LeyDeReplayIdempotente(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		agg := entity.NewStockAggregate("t1", "p1")
		var committed []entity.MovementRecord
		sum := decimal.Zero

		for i := 0; i < 40; i++ {
			delta := int64(rng.Intn(21) - 10)
			if delta == 0 {
				continue
			}
			r := rec("", delta, "1")
			r.ID = time.Duration(i).String()
			next, err := inventory.Apply(agg, r)
			if err != nil {
				require.True(t, errors.Is(err, domain.ErrInsufficientStock))
				continue
			}
			r.AppliedVersion = next.Version
			agg = next
			sum = sum.Add(r.Quantity)
			committed = append(committed, *r)
		}

		rng.Shuffle(len(committed), func(i, j int) { committed[i], committed[j] = committed[j], committed[i] })
		rebuilt, err := inventory.Replay("t1", "p1", committed)
		require.NoError(t, err)
		assert.True(t, rebuilt.Quantity.Equal(agg.Quantity), "round %d", round)
		assert.True(t, rebuilt.Quantity.Equal(sum), "round %d", round)
		assert.False(t, rebuilt.Quantity.IsNegative())
		assert.True(t, rebuilt.SameState(agg))
	}
}

func TestReplayLots_SumaAsignaciones(t *testing.T) {
	in := rec("in", 8, "0")
	in.Allocations = []entity.LotAllocation{{LotID: "l1", Delta: decimal.NewFromInt(8)}}
	out := rec("out", -3, "0")
	out.Allocations = []entity.LotAllocation{{LotID: "l1", Delta: decimal.NewFromInt(-3)}}

	got := inventory.ReplayLots([]entity.MovementRecord{*in, *out})
	assert.True(t, got["l1"].Equal(decimal.NewFromInt(5)))
}

func TestWeightedAverageCost(t *testing.T) {
	cost := inventory.WeightedAverageCost(decimal.Zero, decimal.Zero, decimal.NewFromInt(5), decimal.NewFromInt(7))
	assert.Equal(t, "7", cost.String())

	cost = inventory.WeightedAverageCost(decimal.NewFromInt(-2), decimal.NewFromInt(100), decimal.NewFromInt(4), decimal.NewFromInt(3))
	assert.Equal(t, "3", cost.String(), "saldo negativo no pondera")
}
