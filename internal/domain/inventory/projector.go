package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// Apply proyecta rec sobre agg y devuelve el nuevo agregado. agg no se modifica.
// Una salida que deje la cantidad en negativo devuelve InsufficientStockError.
// Las entradas con costo recalculan el costo promedio ponderado.
func Apply(agg entity.StockAggregate, rec *entity.MovementRecord) (entity.StockAggregate, error) {
	newQty := agg.Quantity.Add(rec.Quantity)
	if newQty.IsNegative() {
		return agg, &domain.InsufficientStockError{
			ProductID: agg.ProductID,
			Current:   agg.Quantity,
			Requested: rec.Quantity.Neg(),
		}
	}

	next := agg
	if rec.Quantity.IsPositive() && rec.UnitCost.IsPositive() {
		next.AverageCost = WeightedAverageCost(agg.Quantity, agg.AverageCost, rec.Quantity, rec.UnitCost)
	}
	next.Quantity = newQty
	next.Version = agg.Version + 1
	next.LastMovementID = rec.ID
	next.LastMovementAt = rec.ServerTimestamp
	return next, nil
}

// Replay reconstruye el agregado a partir del ledger completo del producto.
// Los registros se aplican en orden de aplicación (AppliedVersion, luego
// timestamp del servidor); los que no afectan al estoque se ignoran.
func Replay(tenantID, productID string, records []entity.MovementRecord) (entity.StockAggregate, error) {
	agg := entity.NewStockAggregate(tenantID, productID)
	for _, r := range SortForReplay(records) {
		if !r.AffectsStock() {
			continue
		}
		next, err := Apply(agg, &r)
		if err != nil {
			return agg, err
		}
		agg = next
	}
	return agg, nil
}

// ReplayLots saldo por lote según las asignaciones de los registros vigentes.
func ReplayLots(records []entity.MovementRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		if !r.AffectsStock() {
			continue
		}
		for _, a := range r.Allocations {
			out[a.LotID] = out[a.LotID].Add(a.Delta)
		}
	}
	return out
}

// SortForReplay copia ordenada de records.
func SortForReplay(records []entity.MovementRecord) []entity.MovementRecord {
	out := make([]entity.MovementRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AppliedVersion != b.AppliedVersion {
			return a.AppliedVersion < b.AppliedVersion
		}
		if !a.ServerTimestamp.Equal(b.ServerTimestamp) {
			return a.ServerTimestamp.Before(b.ServerTimestamp)
		}
		return a.ID < b.ID
	})
	return out
}

// Commit aplica rec sobre agg y devuelve también el registro tal como se
// persiste: cantidades antes/después, versión de aplicación y estado SYNCED.
func Commit(agg entity.StockAggregate, rec *entity.MovementRecord) (entity.StockAggregate, entity.MovementRecord, error) {
	next, err := Apply(agg, rec)
	if err != nil {
		return agg, entity.MovementRecord{}, err
	}
	out := *rec
	out.Allocations = append([]entity.LotAllocation(nil), rec.Allocations...)
	out.QuantityBefore = agg.Quantity
	out.QuantityAfter = next.Quantity
	out.AppliedVersion = next.Version
	out.SyncStatus = entity.SyncSynced
	return next, out, nil
}
