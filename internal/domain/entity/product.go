package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product vista de solo lectura del catálogo. El estoque solo necesita las
// banderas que afectan a las reglas y el campo desnormalizado CachedQuantity.
type Product struct {
	ID             string
	TenantID       string
	SKU            string
	Name           string
	Controlled     bool            // substância controlada (Portaria 344)
	LotTracked     bool            // exige lote en todas las entradas y FEFO en salidas
	MinStock       decimal.Decimal // umbral para el estado BAIXO
	Cost           decimal.Decimal
	CachedQuantity decimal.Decimal // estoque_atual; caché del ledger, nunca fuente de verdad
	UpdatedAt      time.Time
}
