package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockAggregate proyección de la cantidad actual de un producto en un tenant.
// Se reconstruye en cualquier momento reproduciendo el ledger.
type StockAggregate struct {
	TenantID       string
	ProductID      string
	Quantity       decimal.Decimal
	AverageCost    decimal.Decimal
	Version        int64
	LastMovementID string
	LastMovementAt time.Time
}

// NewStockAggregate agregado vacío, versión 0.
func NewStockAggregate(tenantID, productID string) StockAggregate {
	return StockAggregate{TenantID: tenantID, ProductID: productID, Quantity: decimal.Zero, AverageCost: decimal.Zero}
}

// SameState compara cantidad y costo ignorando versión y metadatos.
func (a StockAggregate) SameState(other StockAggregate) bool {
	return a.Quantity.Equal(other.Quantity) && a.AverageCost.Equal(other.AverageCost)
}
