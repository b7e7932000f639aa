package entity

import "time"

// Direction sentido de un tipo de movimiento.
type Direction string

const (
	DirectionIn      Direction = "IN"
	DirectionOut     Direction = "OUT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Valid reporta si d es uno de los sentidos conocidos.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut || d == DirectionNeutral
}

// Códigos de los tipos de movimiento por defecto.
const (
	TypeVenda               = "VENDA"
	TypeEntradaCompra       = "ENTRADA_COMPRA"
	TypeAjustePositivo      = "AJUSTE_POSITIVO"
	TypeAjusteNegativo      = "AJUSTE_NEGATIVO"
	TypeDevolucaoCliente    = "DEVOLUCAO_CLIENTE"
	TypeDevolucaoFornecedor = "DEVOLUCAO_FORNECEDOR"
	TypePerda               = "PERDA"
	TypeVencimento          = "VENCIMENTO"
	TypeInventario          = "INVENTARIO"
)

// MovementType política de un tipo de movimiento. TenantID vacío = default global.
type MovementType struct {
	TenantID                   string    `json:"tenantId,omitempty"`
	Code                       string    `json:"code"`
	Description                string    `json:"description,omitempty"`
	Direction                  Direction `json:"direction"`
	RequiresApproval           bool      `json:"requiresApproval"`
	RequiresInvoice            bool      `json:"requiresInvoice"`
	RequiresSupplier           bool      `json:"requiresSupplier"`
	RequiresLot                bool      `json:"requiresLot"`
	AllowsControlledSubstances bool      `json:"allowsControlledSubstances"`
	Active                     bool      `json:"active"`
	Version                    int64     `json:"version"`
	Lifecycle                  Lifecycle `json:"lifecycle,omitempty"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

// IsGlobal tipo por defecto compartido por todos los tenants.
func (t MovementType) IsGlobal() bool { return t.TenantID == "" }
