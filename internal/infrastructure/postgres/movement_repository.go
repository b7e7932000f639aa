package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// movementRepo acceso a stock_movements (usable con pool o tx).
type movementRepo struct {
	q Querier
}

const movementColumns = `id, tenant_id, product_id, lot_id, allocations, type_code, quantity, unit_cost,
	client_id, client_timestamp, server_timestamp, integrity_hash, sync_status, approval_status,
	approved_by, approved_at, supplier_id, invoice_number, reason, notes, actor_id,
	quantity_before, quantity_after, applied_version, lifecycle`

// Insert persiste un registro. Client id repetido devuelve domain.ErrDuplicate.
func (r movementRepo) Insert(ctx context.Context, m *entity.MovementRecord) error {
	allocations, err := json.Marshal(allocationsOrEmpty(m.Allocations))
	if err != nil {
		return fmt.Errorf("encode allocations: %w", err)
	}
	query := `INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err = r.q.Exec(ctx, query,
		m.ID, m.TenantID, m.ProductID, m.LotID, allocations, m.TypeCode, m.Quantity, m.UnitCost,
		m.ClientID, m.ClientTimestamp, m.ServerTimestamp, m.IntegrityHash, string(m.SyncStatus), string(m.ApprovalStatus),
		m.ApprovedBy, m.ApprovedAt, m.SupplierID, m.InvoiceNumber, m.Reason, m.Notes, m.ActorID,
		m.QuantityBefore, m.QuantityAfter, m.AppliedVersion, string(lifecycleOrActive(m.Lifecycle)),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: client id %s", domain.ErrDuplicate, m.ClientID)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// MarkApplied registra la aplicación de un pendiente aprobado.
func (r movementRepo) MarkApplied(ctx context.Context, m *entity.MovementRecord) error {
	allocations, err := json.Marshal(allocationsOrEmpty(m.Allocations))
	if err != nil {
		return fmt.Errorf("encode allocations: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		UPDATE stock_movements
		   SET allocations = $3, sync_status = $4, approval_status = $5, approved_by = $6, approved_at = $7,
		       quantity_before = $8, quantity_after = $9, applied_version = $10
		 WHERE tenant_id = $1 AND id = $2`,
		m.TenantID, m.ID, allocations, string(m.SyncStatus), string(m.ApprovalStatus), m.ApprovedBy, m.ApprovedAt,
		m.QuantityBefore, m.QuantityAfter, m.AppliedVersion,
	)
	if err != nil {
		return fmt.Errorf("mark movement applied: %w", err)
	}
	return nil
}

// GetBy obtiene un registro por id o client_id; forUpdate bloquea la fila.
func (r movementRepo) GetBy(ctx context.Context, column, tenantID, value string, forUpdate bool) (*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE tenant_id = $1 AND ` + column + ` = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMovement(r.q.QueryRow(ctx, query, tenantID, value))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

func scanMovement(row rowScanner) (*entity.MovementRecord, error) {
	var m entity.MovementRecord
	var allocations []byte
	var syncStatus, approvalStatus, lifecycle string
	var approvedAt *time.Time
	if err := row.Scan(
		&m.ID, &m.TenantID, &m.ProductID, &m.LotID, &allocations, &m.TypeCode, &m.Quantity, &m.UnitCost,
		&m.ClientID, &m.ClientTimestamp, &m.ServerTimestamp, &m.IntegrityHash, &syncStatus, &approvalStatus,
		&m.ApprovedBy, &approvedAt, &m.SupplierID, &m.InvoiceNumber, &m.Reason, &m.Notes, &m.ActorID,
		&m.QuantityBefore, &m.QuantityAfter, &m.AppliedVersion, &lifecycle,
	); err != nil {
		return nil, err
	}
	if len(allocations) > 0 {
		if err := json.Unmarshal(allocations, &m.Allocations); err != nil {
			return nil, fmt.Errorf("decode allocations: %w", err)
		}
	}
	if len(m.Allocations) == 0 {
		m.Allocations = nil
	}
	m.SyncStatus = entity.SyncStatus(syncStatus)
	m.ApprovalStatus = entity.ApprovalStatus(approvalStatus)
	m.Lifecycle = entity.Lifecycle(lifecycle)
	m.ClientTimestamp = m.ClientTimestamp.UTC()
	m.ServerTimestamp = m.ServerTimestamp.UTC()
	if approvedAt != nil {
		at := approvedAt.UTC()
		m.ApprovedAt = &at
	}
	return &m, nil
}

func allocationsOrEmpty(a []entity.LotAllocation) []entity.LotAllocation {
	if a == nil {
		return []entity.LotAllocation{}
	}
	return a
}

func lifecycleOrActive(l entity.Lifecycle) entity.Lifecycle {
	if l == "" {
		return entity.LifecycleActive
	}
	return l
}
