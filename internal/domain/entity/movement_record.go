package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncStatus estado de sincronización de un registro del ledger.
type SyncStatus string

const (
	SyncPending  SyncStatus = "PENDING"
	SyncSynced   SyncStatus = "SYNCED"
	SyncConflict SyncStatus = "CONFLICT"
	SyncRejected SyncStatus = "REJECTED"
)

// ApprovalStatus estado del flujo de aprobación para tipos que la exigen.
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "NOT_REQUIRED"
	ApprovalPending     ApprovalStatus = "PENDING_APPROVAL"
	ApprovalApproved    ApprovalStatus = "APPROVED"
	ApprovalRejected    ApprovalStatus = "REJECTED"
)

// Lifecycle etiqueta de ciclo de vida llevada como dato (no hay borrado físico).
type Lifecycle string

const (
	LifecycleActive      Lifecycle = "ACTIVE"
	LifecycleSoftDeleted Lifecycle = "SOFT_DELETED"
	LifecycleArchived    Lifecycle = "ARCHIVED"
)

// LotAllocation cantidad tomada de (o sumada a) un lote por un movimiento.
// Delta lleva el mismo signo que el movimiento.
type LotAllocation struct {
	LotID     string          `json:"lotId"`
	LotNumber string          `json:"lotNumber,omitempty"`
	Delta     decimal.Decimal `json:"delta"`
}

// MovementRecord entrada del ledger de estoque. Inmutable tras el commit salvo
// el cambio de SyncStatus y del estado de aprobación.
type MovementRecord struct {
	ID              string
	TenantID        string
	ProductID       string
	LotID           string // opcional; lote indicado por el cliente
	Allocations     []LotAllocation
	TypeCode        string
	Quantity        decimal.Decimal // delta con signo
	UnitCost        decimal.Decimal
	ClientID        string // clave de idempotencia, única por tenant
	ClientTimestamp time.Time
	ServerTimestamp time.Time
	IntegrityHash   string
	SyncStatus      SyncStatus
	ApprovalStatus  ApprovalStatus
	ApprovedBy      string
	ApprovedAt      *time.Time
	SupplierID      string
	InvoiceNumber   string
	Reason          string
	Notes           string
	ActorID         string
	QuantityBefore  decimal.Decimal
	QuantityAfter   decimal.Decimal
	// AppliedVersion versión del agregado que produjo este registro; 0 mientras no afecte al estoque.
	AppliedVersion int64
	Lifecycle      Lifecycle
}

// AffectsStock indica si el registro forma parte de la suma del agregado.
func (r *MovementRecord) AffectsStock() bool {
	if r.Lifecycle != "" && r.Lifecycle != LifecycleActive {
		return false
	}
	switch r.ApprovalStatus {
	case ApprovalPending, ApprovalRejected:
		return false
	}
	return r.SyncStatus != SyncRejected
}

// IsOutbound salida de estoque.
func (r *MovementRecord) IsOutbound() bool {
	return r.Quantity.IsNegative()
}
