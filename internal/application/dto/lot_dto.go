package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterLotRequest body para POST /api/estoque/lotes. El lote nace vacío;
// el saldo entra con un movimiento que lo referencia.
type RegisterLotRequest struct {
	ProductID  string     `json:"productId"`
	LotNumber  string     `json:"lotNumber"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// LotDTO lote con su saldo.
type LotDTO struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	LotNumber  string          `json:"lotNumber"`
	ExpiryDate *time.Time      `json:"expiryDate,omitempty"`
	Remaining  decimal.Decimal `json:"remaining"`
	Expired    bool            `json:"expired"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// MovementTypeRequest body para PUT /api/estoque/tipos-movimentacao/:code.
type MovementTypeRequest struct {
	Description                string `json:"description"`
	Direction                  string `json:"direction"`
	RequiresApproval           bool   `json:"requiresApproval"`
	RequiresInvoice            bool   `json:"requiresInvoice"`
	RequiresSupplier           bool   `json:"requiresSupplier"`
	RequiresLot                bool   `json:"requiresLot"`
	AllowsControlledSubstances bool   `json:"allowsControlledSubstances"`
	Active                     *bool  `json:"active,omitempty"`
}
