package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// LotExpiredWarning lote vencido con saldo. Used indica que entró en la
// selección por una autorización explícita.
type LotExpiredWarning struct {
	LotID      string          `json:"lotId"`
	LotNumber  string          `json:"lotNumber"`
	ExpiryDate time.Time       `json:"expiryDate"`
	Remaining  decimal.Decimal `json:"remaining"`
	Used       bool            `json:"used"`
}

// Selection asignación FEFO de una salida.
type Selection struct {
	Allocations []entity.LotAllocation
	Warnings    []LotExpiredWarning
}

// SelectLots elige de qué lotes sale qty (positivo), primero el que vence antes.
// Empates por orden de creación. Los lotes vencidos se excluyen salvo
// allowExpired y se informan como advertencia. Si los lotes no alcanzan
// devuelve InsufficientLotStockError sin asignación parcial.
func SelectLots(productID string, lots []entity.Lot, qty decimal.Decimal, now time.Time, allowExpired bool) (Selection, error) {
	var sel Selection
	if !qty.IsPositive() {
		return sel, domain.NewValidationError(ViolationZeroQuantity, "quantity", "la cantidad a asignar debe ser positiva")
	}

	candidates := make([]entity.Lot, 0, len(lots))
	for _, l := range lots {
		if l.ProductID != productID || !l.Remaining.IsPositive() {
			continue
		}
		if l.Expired(now) {
			sel.Warnings = append(sel.Warnings, LotExpiredWarning{
				LotID: l.ID, LotNumber: l.LotNumber, ExpiryDate: *l.ExpiryDate, Remaining: l.Remaining, Used: allowExpired,
			})
			if !allowExpired {
				continue
			}
		}
		candidates = append(candidates, l)
	}
	SortFEFO(candidates)

	remaining := qty
	available := decimal.Zero
	for _, l := range candidates {
		available = available.Add(l.Remaining)
	}
	if available.LessThan(qty) {
		return Selection{Warnings: sel.Warnings}, &domain.InsufficientLotStockError{
			ProductID: productID, Available: available, Requested: qty,
		}
	}

	for _, l := range candidates {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(l.Remaining, remaining)
		sel.Allocations = append(sel.Allocations, entity.LotAllocation{
			LotID: l.ID, LotNumber: l.LotNumber, Delta: take.Neg(),
		})
		remaining = remaining.Sub(take)
	}
	if allowExpired {
		sel.Warnings = usedWarnings(sel)
	}
	return sel, nil
}

// usedWarnings con override solo se informan los vencidos que realmente se tocaron.
func usedWarnings(sel Selection) []LotExpiredWarning {
	taken := make(map[string]bool, len(sel.Allocations))
	for _, a := range sel.Allocations {
		taken[a.LotID] = true
	}
	var out []LotExpiredWarning
	for _, w := range sel.Warnings {
		if taken[w.LotID] {
			out = append(out, w)
		}
	}
	return out
}

// SortFEFO ordena in place: vencimiento ascendente (sin vencimiento al final),
// luego orden de creación.
func SortFEFO(lots []entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ApplyAllocation saldo del lote después de la asignación. Nunca negativo.
func ApplyAllocation(lot entity.Lot, a entity.LotAllocation) (decimal.Decimal, error) {
	next := lot.Remaining.Add(a.Delta)
	if next.IsNegative() {
		return lot.Remaining, &domain.InsufficientLotStockError{
			ProductID: lot.ProductID, Available: lot.Remaining, Requested: a.Delta.Neg(),
		}
	}
	return next, nil
}
