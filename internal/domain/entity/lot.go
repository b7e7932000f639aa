package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot lote de un producto. Remaining solo cambia a través de movimientos del ledger.
type Lot struct {
	ID         string
	TenantID   string
	ProductID  string
	LotNumber  string
	ExpiryDate *time.Time // nil = sin vencimiento, va al final en FEFO
	Remaining  decimal.Decimal
	Seq        int64 // orden de creación, desempate determinista
	CreatedAt  time.Time
}

// Expired vencido en at (el día de vencimiento ya no se vende).
func (l Lot) Expired(at time.Time) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return !l.ExpiryDate.After(at)
}
