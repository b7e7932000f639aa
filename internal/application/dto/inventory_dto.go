package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// RegisterMovementRequest body para POST /api/estoque/movimentacoes.
// Quantity lleva el signo del sentido del tipo (VENDA negativa, ENTRADA_COMPRA positiva).
type RegisterMovementRequest struct {
	ClientID        string           `json:"clientId,omitempty"`
	ProductID       string           `json:"productId"`
	Type            string           `json:"type"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unitCost,omitempty"`
	LotID           string           `json:"lotId,omitempty"`
	LotNumber       string           `json:"lotNumber,omitempty"`
	LotExpiry       *time.Time       `json:"lotExpiry,omitempty"`
	SupplierID      string           `json:"supplierId,omitempty"`
	InvoiceNumber   string           `json:"invoiceNumber,omitempty"`
	Reason          string           `json:"reason"`
	Notes           string           `json:"notes,omitempty"`
	ClientTimestamp *time.Time       `json:"clientTimestamp,omitempty"`
	AllowExpired    bool             `json:"allowExpired,omitempty"`
}

// MovementDTO registro del ledger expuesto por la API.
type MovementDTO struct {
	ID              string                 `json:"id"`
	ClientID        string                 `json:"clientId"`
	ProductID       string                 `json:"productId"`
	LotID           string                 `json:"lotId,omitempty"`
	Allocations     []entity.LotAllocation `json:"allocations,omitempty"`
	Type            string                 `json:"type"`
	Quantity        decimal.Decimal        `json:"quantity"`
	UnitCost        decimal.Decimal        `json:"unitCost"`
	QuantityBefore  decimal.Decimal        `json:"quantityBefore"`
	QuantityAfter   decimal.Decimal        `json:"quantityAfter"`
	SyncStatus      string                 `json:"syncStatus"`
	ApprovalStatus  string                 `json:"approvalStatus"`
	ApprovedBy      string                 `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time             `json:"approvedAt,omitempty"`
	SupplierID      string                 `json:"supplierId,omitempty"`
	InvoiceNumber   string                 `json:"invoiceNumber,omitempty"`
	Reason          string                 `json:"reason"`
	Notes           string                 `json:"notes,omitempty"`
	ActorID         string                 `json:"actorId"`
	ClientTimestamp time.Time              `json:"clientTimestamp"`
	ServerTimestamp time.Time              `json:"serverTimestamp"`
	IntegrityHash   string                 `json:"integrityHash"`
}

// ToMovementDTO mapea un registro del dominio.
func ToMovementDTO(r *entity.MovementRecord) MovementDTO {
	return MovementDTO{
		ID:              r.ID,
		ClientID:        r.ClientID,
		ProductID:       r.ProductID,
		LotID:           r.LotID,
		Allocations:     r.Allocations,
		Type:            r.TypeCode,
		Quantity:        r.Quantity,
		UnitCost:        r.UnitCost,
		QuantityBefore:  r.QuantityBefore,
		QuantityAfter:   r.QuantityAfter,
		SyncStatus:      string(r.SyncStatus),
		ApprovalStatus:  string(r.ApprovalStatus),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		SupplierID:      r.SupplierID,
		InvoiceNumber:   r.InvoiceNumber,
		Reason:          r.Reason,
		Notes:           r.Notes,
		ActorID:         r.ActorID,
		ClientTimestamp: r.ClientTimestamp,
		ServerTimestamp: r.ServerTimestamp,
		IntegrityHash:   r.IntegrityHash,
	}
}

// RegisterMovementResponse respuesta 201 con cantidades antes/después.
type RegisterMovementResponse struct {
	Movement        MovementDTO                   `json:"movement"`
	QuantityBefore  decimal.Decimal               `json:"quantityBefore"`
	QuantityAfter   decimal.Decimal               `json:"quantityAfter"`
	PendingApproval bool                          `json:"pendingApproval"`
	Duplicate       bool                          `json:"duplicate"`
	Warnings        []inventory.LotExpiredWarning `json:"warnings,omitempty"`
}

// MovementListResponse histórico paginado.
type MovementListResponse struct {
	Items []MovementDTO `json:"items"`
	Page  PageResponse  `json:"page"`
}

// ApprovalRequest body para aprobar o rechazar un movimiento pendiente.
type ApprovalRequest struct {
	AllowExpired bool `json:"allowExpired,omitempty"`
}

// StockSummaryDTO línea del resumen de estoque.
type StockSummaryDTO struct {
	ProductID      string          `json:"productId"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	MinStock       decimal.Decimal `json:"minStock"`
	AverageCost    decimal.Decimal `json:"averageCost"`
	Status         string          `json:"status"` // ZERADO | BAIXO | NORMAL
	Version        int64           `json:"version"`
	LastMovementAt *time.Time      `json:"lastMovementAt,omitempty"`
}

// StockSummaryResponse totales por estado más el detalle.
type StockSummaryResponse struct {
	Total  int               `json:"total"`
	Zerado int               `json:"zerado"`
	Baixo  int               `json:"baixo"`
	Normal int               `json:"normal"`
	Items  []StockSummaryDTO `json:"items"`
}

// LotDriftDTO diferencia entre el saldo guardado de un lote y el del ledger.
type LotDriftDTO struct {
	LotID     string          `json:"lotId"`
	LotNumber string          `json:"lotNumber"`
	Stored    decimal.Decimal `json:"stored"`
	Expected  decimal.Decimal `json:"expected"`
}

// RebuildResponse resultado de reconstruir un agregado desde el ledger.
type RebuildResponse struct {
	ProductID        string          `json:"productId"`
	StoredQuantity   decimal.Decimal `json:"storedQuantity"`
	RebuiltQuantity  decimal.Decimal `json:"rebuiltQuantity"`
	RebuiltCost      decimal.Decimal `json:"rebuiltAverageCost"`
	Repaired         bool            `json:"repaired"`
	Version          int64           `json:"version"`
	MovementsApplied int             `json:"movementsApplied"`
	LotDrifts        []LotDriftDTO   `json:"lotDrifts,omitempty"`
}

// ReconcileResponse resultado de la reconciliación de un tenant.
type ReconcileResponse struct {
	Checked  int               `json:"checked"`
	Repaired int               `json:"repaired"`
	Items    []RebuildResponse `json:"items"`
}
