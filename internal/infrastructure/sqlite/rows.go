package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// Los instantes se guardan como UnixNano (INTEGER) y los decimales como TEXT
// para no perder precisión con la afinidad numérica de SQLite.

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

type aggregateRow struct {
	TenantID       string          `db:"tenant_id"`
	ProductID      string          `db:"product_id"`
	Quantity       decimal.Decimal `db:"quantity"`
	AverageCost    decimal.Decimal `db:"average_cost"`
	Version        int64           `db:"version"`
	LastMovementID string          `db:"last_movement_id"`
	LastMovementAt int64           `db:"last_movement_at"`
}

const aggregateColumns = `tenant_id, product_id, quantity, average_cost, version, last_movement_id, last_movement_at`

func fromAggregate(a entity.StockAggregate) aggregateRow {
	return aggregateRow{
		TenantID:       a.TenantID,
		ProductID:      a.ProductID,
		Quantity:       a.Quantity,
		AverageCost:    a.AverageCost,
		Version:        a.Version,
		LastMovementID: a.LastMovementID,
		LastMovementAt: toNanos(a.LastMovementAt),
	}
}

func (r aggregateRow) entity() entity.StockAggregate {
	return entity.StockAggregate{
		TenantID:       r.TenantID,
		ProductID:      r.ProductID,
		Quantity:       r.Quantity,
		AverageCost:    r.AverageCost,
		Version:        r.Version,
		LastMovementID: r.LastMovementID,
		LastMovementAt: fromNanos(r.LastMovementAt),
	}
}

type movementRow struct {
	ID              string          `db:"id"`
	TenantID        string          `db:"tenant_id"`
	ProductID       string          `db:"product_id"`
	LotID           string          `db:"lot_id"`
	Allocations     string          `db:"allocations"`
	TypeCode        string          `db:"type_code"`
	Quantity        decimal.Decimal `db:"quantity"`
	UnitCost        decimal.Decimal `db:"unit_cost"`
	ClientID        string          `db:"client_id"`
	ClientTimestamp int64           `db:"client_timestamp"`
	ServerTimestamp int64           `db:"server_timestamp"`
	IntegrityHash   string          `db:"integrity_hash"`
	SyncStatus      string          `db:"sync_status"`
	ApprovalStatus  string          `db:"approval_status"`
	ApprovedBy      string          `db:"approved_by"`
	ApprovedAt      sql.NullInt64   `db:"approved_at"`
	SupplierID      string          `db:"supplier_id"`
	InvoiceNumber   string          `db:"invoice_number"`
	Reason          string          `db:"reason"`
	Notes           string          `db:"notes"`
	ActorID         string          `db:"actor_id"`
	QuantityBefore  decimal.Decimal `db:"quantity_before"`
	QuantityAfter   decimal.Decimal `db:"quantity_after"`
	AppliedVersion  int64           `db:"applied_version"`
	Lifecycle       string          `db:"lifecycle"`
}

const movementColumns = `id, tenant_id, product_id, lot_id, allocations, type_code, quantity, unit_cost,
	client_id, client_timestamp, server_timestamp, integrity_hash, sync_status, approval_status,
	approved_by, approved_at, supplier_id, invoice_number, reason, notes, actor_id,
	quantity_before, quantity_after, applied_version, lifecycle`

func fromMovement(m *entity.MovementRecord) (movementRow, error) {
	allocations := m.Allocations
	if allocations == nil {
		allocations = []entity.LotAllocation{}
	}
	raw, err := json.Marshal(allocations)
	if err != nil {
		return movementRow{}, fmt.Errorf("encode allocations: %w", err)
	}
	lifecycle := m.Lifecycle
	if lifecycle == "" {
		lifecycle = entity.LifecycleActive
	}
	return movementRow{
		ID:              m.ID,
		TenantID:        m.TenantID,
		ProductID:       m.ProductID,
		LotID:           m.LotID,
		Allocations:     string(raw),
		TypeCode:        m.TypeCode,
		Quantity:        m.Quantity,
		UnitCost:        m.UnitCost,
		ClientID:        m.ClientID,
		ClientTimestamp: toNanos(m.ClientTimestamp),
		ServerTimestamp: toNanos(m.ServerTimestamp),
		IntegrityHash:   m.IntegrityHash,
		SyncStatus:      string(m.SyncStatus),
		ApprovalStatus:  string(m.ApprovalStatus),
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      nullNanos(m.ApprovedAt),
		SupplierID:      m.SupplierID,
		InvoiceNumber:   m.InvoiceNumber,
		Reason:          m.Reason,
		Notes:           m.Notes,
		ActorID:         m.ActorID,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		AppliedVersion:  m.AppliedVersion,
		Lifecycle:       string(lifecycle),
	}, nil
}

func (r movementRow) entity() (entity.MovementRecord, error) {
	var allocations []entity.LotAllocation
	if r.Allocations != "" {
		if err := json.Unmarshal([]byte(r.Allocations), &allocations); err != nil {
			return entity.MovementRecord{}, fmt.Errorf("decode allocations: %w", err)
		}
	}
	if len(allocations) == 0 {
		allocations = nil
	}
	return entity.MovementRecord{
		ID:              r.ID,
		TenantID:        r.TenantID,
		ProductID:       r.ProductID,
		LotID:           r.LotID,
		Allocations:     allocations,
		TypeCode:        r.TypeCode,
		Quantity:        r.Quantity,
		UnitCost:        r.UnitCost,
		ClientID:        r.ClientID,
		ClientTimestamp: fromNanos(r.ClientTimestamp),
		ServerTimestamp: fromNanos(r.ServerTimestamp),
		IntegrityHash:   r.IntegrityHash,
		SyncStatus:      entity.SyncStatus(r.SyncStatus),
		ApprovalStatus:  entity.ApprovalStatus(r.ApprovalStatus),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      fromNullNanos(r.ApprovedAt),
		SupplierID:      r.SupplierID,
		InvoiceNumber:   r.InvoiceNumber,
		Reason:          r.Reason,
		Notes:           r.Notes,
		ActorID:         r.ActorID,
		QuantityBefore:  r.QuantityBefore,
		QuantityAfter:   r.QuantityAfter,
		AppliedVersion:  r.AppliedVersion,
		Lifecycle:       entity.Lifecycle(r.Lifecycle),
	}, nil
}

type lotRow struct {
	Seq        int64           `db:"seq"`
	ID         string          `db:"id"`
	TenantID   string          `db:"tenant_id"`
	ProductID  string          `db:"product_id"`
	LotNumber  string          `db:"lot_number"`
	ExpiryDate sql.NullInt64   `db:"expiry_date"`
	Remaining  decimal.Decimal `db:"remaining"`
	CreatedAt  int64           `db:"created_at"`
}

const lotColumns = `seq, id, tenant_id, product_id, lot_number, expiry_date, remaining, created_at`

func (r lotRow) entity() *entity.Lot {
	return &entity.Lot{
		ID:         r.ID,
		TenantID:   r.TenantID,
		ProductID:  r.ProductID,
		LotNumber:  r.LotNumber,
		ExpiryDate: fromNullNanos(r.ExpiryDate),
		Remaining:  r.Remaining,
		Seq:        r.Seq,
		CreatedAt:  fromNanos(r.CreatedAt),
	}
}

type productRow struct {
	ID             string          `db:"id"`
	TenantID       string          `db:"tenant_id"`
	SKU            string          `db:"sku"`
	Name           string          `db:"name"`
	Controlled     bool            `db:"controlled"`
	LotTracked     bool            `db:"lot_tracked"`
	MinStock       decimal.Decimal `db:"min_stock"`
	Cost           decimal.Decimal `db:"cost"`
	CachedQuantity decimal.Decimal `db:"estoque_atual"`
	UpdatedAt      int64           `db:"updated_at"`
}

const productColumns = `id, tenant_id, sku, name, controlled, lot_tracked, min_stock, cost, estoque_atual, updated_at`

func (r productRow) entity() *entity.Product {
	return &entity.Product{
		ID:             r.ID,
		TenantID:       r.TenantID,
		SKU:            r.SKU,
		Name:           r.Name,
		Controlled:     r.Controlled,
		LotTracked:     r.LotTracked,
		MinStock:       r.MinStock,
		Cost:           r.Cost,
		CachedQuantity: r.CachedQuantity,
		UpdatedAt:      fromNanos(r.UpdatedAt),
	}
}

type movementTypeRow struct {
	TenantID                   string `db:"tenant_id"`
	Code                       string `db:"code"`
	Description                string `db:"description"`
	Direction                  string `db:"direction"`
	RequiresApproval           bool   `db:"requires_approval"`
	RequiresInvoice            bool   `db:"requires_invoice"`
	RequiresSupplier           bool   `db:"requires_supplier"`
	RequiresLot                bool   `db:"requires_lot"`
	AllowsControlledSubstances bool   `db:"allows_controlled_substances"`
	Active                     bool   `db:"active"`
	Version                    int64  `db:"version"`
	Lifecycle                  string `db:"lifecycle"`
	UpdatedAt                  int64  `db:"updated_at"`
}

const movementTypeColumns = `tenant_id, code, description, direction, requires_approval, requires_invoice,
	requires_supplier, requires_lot, allows_controlled_substances, active, version, lifecycle, updated_at`

func fromMovementType(t entity.MovementType) movementTypeRow {
	lifecycle := t.Lifecycle
	if lifecycle == "" {
		lifecycle = entity.LifecycleActive
	}
	version := t.Version
	if version == 0 {
		version = 1
	}
	return movementTypeRow{
		TenantID:                   t.TenantID,
		Code:                       t.Code,
		Description:                t.Description,
		Direction:                  string(t.Direction),
		RequiresApproval:           t.RequiresApproval,
		RequiresInvoice:            t.RequiresInvoice,
		RequiresSupplier:           t.RequiresSupplier,
		RequiresLot:                t.RequiresLot,
		AllowsControlledSubstances: t.AllowsControlledSubstances,
		Active:                     t.Active,
		Version:                    version,
		Lifecycle:                  string(lifecycle),
		UpdatedAt:                  toNanos(t.UpdatedAt),
	}
}

func (r movementTypeRow) entity() entity.MovementType {
	return entity.MovementType{
		TenantID:                   r.TenantID,
		Code:                       r.Code,
		Description:                r.Description,
		Direction:                  entity.Direction(r.Direction),
		RequiresApproval:           r.RequiresApproval,
		RequiresInvoice:            r.RequiresInvoice,
		RequiresSupplier:           r.RequiresSupplier,
		RequiresLot:                r.RequiresLot,
		AllowsControlledSubstances: r.AllowsControlledSubstances,
		Active:                     r.Active,
		Version:                    r.Version,
		Lifecycle:                  entity.Lifecycle(r.Lifecycle),
		UpdatedAt:                  fromNanos(r.UpdatedAt),
	}
}
