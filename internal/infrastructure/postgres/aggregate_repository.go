package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// aggregateRepo acceso a stock_aggregates (usable con pool o tx).
type aggregateRepo struct {
	q Querier
}

const aggregateColumns = `tenant_id, product_id, quantity, average_cost, version, last_movement_id, last_movement_at`

// Get agregado actual; uno vacío en versión 0 si no existe.
func (r aggregateRepo) Get(ctx context.Context, tenantID, productID string) (*entity.StockAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM stock_aggregates WHERE tenant_id = $1 AND product_id = $2`
	agg, err := scanAggregate(r.q.QueryRow(ctx, query, tenantID, productID))
	if err != nil {
		if isNoRows(err) {
			empty := entity.NewStockAggregate(tenantID, productID)
			return &empty, nil
		}
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	return agg, nil
}

// GetForUpdate crea la fila si falta y la bloquea (SELECT FOR UPDATE).
func (r aggregateRepo) GetForUpdate(ctx context.Context, tenantID, productID string) (*entity.StockAggregate, error) {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO stock_aggregates (tenant_id, product_id) VALUES ($1, $2)
		ON CONFLICT (tenant_id, product_id) DO NOTHING`, tenantID, productID); err != nil {
		return nil, fmt.Errorf("ensure aggregate: %w", err)
	}
	query := `SELECT ` + aggregateColumns + ` FROM stock_aggregates WHERE tenant_id = $1 AND product_id = $2 FOR UPDATE`
	agg, err := scanAggregate(r.q.QueryRow(ctx, query, tenantID, productID))
	if err != nil {
		return nil, fmt.Errorf("get aggregate for update: %w", err)
	}
	return agg, nil
}

// Save sobrescribe la fila bloqueada.
func (r aggregateRepo) Save(ctx context.Context, agg entity.StockAggregate) error {
	var lastAt *time.Time
	if !agg.LastMovementAt.IsZero() {
		at := agg.LastMovementAt
		lastAt = &at
	}
	_, err := r.q.Exec(ctx, `
		UPDATE stock_aggregates
		   SET quantity = $3, average_cost = $4, version = $5, last_movement_id = $6, last_movement_at = $7
		 WHERE tenant_id = $1 AND product_id = $2`,
		agg.TenantID, agg.ProductID, agg.Quantity, agg.AverageCost, agg.Version, agg.LastMovementID, lastAt,
	)
	if err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}

// ListByTenant agregados del tenant ordenados por producto.
func (r aggregateRepo) ListByTenant(ctx context.Context, tenantID string) ([]entity.StockAggregate, error) {
	rows, err := r.q.Query(ctx, `SELECT `+aggregateColumns+` FROM stock_aggregates WHERE tenant_id = $1 ORDER BY product_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()
	var list []entity.StockAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		list = append(list, *agg)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row rowScanner) (*entity.StockAggregate, error) {
	var agg entity.StockAggregate
	var lastAt *time.Time
	if err := row.Scan(&agg.TenantID, &agg.ProductID, &agg.Quantity, &agg.AverageCost,
		&agg.Version, &agg.LastMovementID, &lastAt); err != nil {
		return nil, err
	}
	if lastAt != nil {
		agg.LastMovementAt = lastAt.UTC()
	}
	return &agg, nil
}
