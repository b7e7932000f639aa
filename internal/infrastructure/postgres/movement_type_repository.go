package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.MovementTypeRepository = (*MovementTypeRepo)(nil)

// MovementTypeRepo política de tipos de movimiento sobre PostgreSQL.
type MovementTypeRepo struct {
	q Querier
}

// NewMovementTypeRepository construye el adaptador.
func NewMovementTypeRepository(q Querier) *MovementTypeRepo {
	return &MovementTypeRepo{q: q}
}

// ListForTenant defaults globales (tenant_id = '') más las redefiniciones del tenant.
func (r *MovementTypeRepo) ListForTenant(ctx context.Context, tenantID string) ([]entity.MovementType, error) {
	query := `
		SELECT tenant_id, code, description, direction, requires_approval, requires_invoice, requires_supplier,
		       requires_lot, allows_controlled_substances, active, version, lifecycle, updated_at
		  FROM movement_types
		 WHERE tenant_id IN ('', $1)
		 ORDER BY code, tenant_id`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list movement types: %w", err)
	}
	defer rows.Close()
	var list []entity.MovementType
	for rows.Next() {
		var t entity.MovementType
		var direction, lifecycle string
		if err := rows.Scan(&t.TenantID, &t.Code, &t.Description, &direction, &t.RequiresApproval, &t.RequiresInvoice,
			&t.RequiresSupplier, &t.RequiresLot, &t.AllowsControlledSubstances, &t.Active, &t.Version, &lifecycle, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan movement type: %w", err)
		}
		t.Direction = entity.Direction(direction)
		t.Lifecycle = entity.Lifecycle(lifecycle)
		list = append(list, t)
	}
	return list, rows.Err()
}

// Upsert crea o reemplaza la definición del tenant e incrementa su versión.
func (r *MovementTypeRepo) Upsert(ctx context.Context, mt *entity.MovementType) error {
	query := `
		INSERT INTO movement_types (tenant_id, code, description, direction, requires_approval, requires_invoice,
		                            requires_supplier, requires_lot, allows_controlled_substances, active, version,
		                            lifecycle, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, now())
		ON CONFLICT (tenant_id, code) DO UPDATE
		   SET description = EXCLUDED.description, direction = EXCLUDED.direction,
		       requires_approval = EXCLUDED.requires_approval, requires_invoice = EXCLUDED.requires_invoice,
		       requires_supplier = EXCLUDED.requires_supplier, requires_lot = EXCLUDED.requires_lot,
		       allows_controlled_substances = EXCLUDED.allows_controlled_substances, active = EXCLUDED.active,
		       lifecycle = EXCLUDED.lifecycle, version = movement_types.version + 1, updated_at = now()
		RETURNING version, updated_at`
	err := r.q.QueryRow(ctx, query,
		mt.TenantID, mt.Code, mt.Description, string(mt.Direction), mt.RequiresApproval, mt.RequiresInvoice,
		mt.RequiresSupplier, mt.RequiresLot, mt.AllowsControlledSubstances, mt.Active, string(lifecycleOrActive(mt.Lifecycle)),
	).Scan(&mt.Version, &mt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert movement type: %w", err)
	}
	return nil
}
