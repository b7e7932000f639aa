package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, tenant_id, sku, name, controlled, lot_tracked, min_stock, cost, estoque_atual, updated_at`

// Upsert inserta o actualiza un producto del catálogo. Lo usan la carga
// inicial y los tests; estoque_atual no se toca.
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, tenant_id, sku, name, controlled, lot_tracked, min_stock, cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (tenant_id, id) DO UPDATE
		   SET sku = EXCLUDED.sku, name = EXCLUDED.name, controlled = EXCLUDED.controlled,
		       lot_tracked = EXCLUDED.lot_tracked, min_stock = EXCLUDED.min_stock, cost = EXCLUDED.cost,
		       updated_at = now()`
	_, err := r.q.Exec(ctx, query, p.ID, p.TenantID, p.SKU, p.Name, p.Controlled, p.LotTracked, p.MinStock, p.Cost)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto del tenant por ID.
func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND id = $2`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, tenantID, productID).Scan(
		&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Controlled, &p.LotTracked,
		&p.MinStock, &p.Cost, &p.CachedQuantity, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListByTenant lista productos del tenant por SKU con paginación.
func (r *ProductRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 ORDER BY sku LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Controlled, &p.LotTracked,
			&p.MinStock, &p.Cost, &p.CachedQuantity, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// UpdateCachedQuantity refresca estoque_atual (caché del agregado).
func (r *ProductRepo) UpdateCachedQuantity(ctx context.Context, tenantID, productID string, qty decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE products SET estoque_atual = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("update estoque_atual: %w", err)
	}
	return nil
}
