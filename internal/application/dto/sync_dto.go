package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// Estados por ítem de un lote de sincronización.
const (
	SyncItemApplied   = "APPLIED"
	SyncItemDuplicate = "DUPLICATE"
	SyncItemRejected  = "REJECTED"
)

// Motivos de rechazo.
const (
	SyncReasonIntegrity         = "integrity"
	SyncReasonConflict          = "conflict"
	SyncReasonPolicy            = "policy"
	SyncReasonValidation        = "validation"
	SyncReasonInsufficientStock = "insufficient_stock"
	SyncReasonInsufficientLots  = "insufficient_lot_stock"
	SyncReasonNotFound          = "not_found"
	SyncReasonForbidden         = "forbidden"
	SyncReasonCancelled         = "cancelled"
	SyncReasonInternal          = "internal"
)

// SyncMovementItem movimiento generado por un PDV, posiblemente offline.
// ID es la clave de idempotencia generada en el cliente.
type SyncMovementItem struct {
	ID              string           `json:"id"`
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
	ClientTimestamp time.Time        `json:"clientTimestamp"`
	IntegrityHash   string           `json:"integrityHash"`
}

// SyncItemResult resultado de un ítem. APPLIED y DUPLICATE se pueden purgar
// en el cliente; REJECTED necesita reenvío o corrección.
type SyncItemResult struct {
	ID              string                        `json:"id"`
	Status          string                        `json:"status"`
	Reason          string                        `json:"reason,omitempty"`
	Message         string                        `json:"message,omitempty"`
	MovementID      string                        `json:"movementId,omitempty"`
	PendingApproval bool                          `json:"pendingApproval,omitempty"`
	QuantityAfter   *decimal.Decimal              `json:"quantityAfter,omitempty"`
	Violations      []domain.Violation            `json:"violations,omitempty"`
	Warnings        []inventory.LotExpiredWarning `json:"warnings,omitempty"`
}

// SyncReport resumen del lote con el detalle por ítem en orden de procesamiento.
type SyncReport struct {
	Processed  int              `json:"processed"`
	Succeeded  int              `json:"succeeded"`
	Rejected   int              `json:"errors"`
	Duplicates int              `json:"duplicates"`
	Conflicts  int              `json:"conflicts"`
	Details    []SyncItemResult `json:"details"`
}
