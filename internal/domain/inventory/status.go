package inventory

import "github.com/shopspring/decimal"

// Clasificación de estoque para el resumen.
const (
	StatusZerado = "ZERADO"
	StatusBaixo  = "BAIXO"
	StatusNormal = "NORMAL"
)

// ClassifyStock ZERADO sin saldo, BAIXO en o bajo el mínimo, NORMAL en otro caso.
func ClassifyStock(qty, minStock decimal.Decimal) string {
	switch {
	case !qty.IsPositive():
		return StatusZerado
	case minStock.IsPositive() && qty.LessThanOrEqual(minStock):
		return StatusBaixo
	default:
		return StatusNormal
	}
}
