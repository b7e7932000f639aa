package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var (
	_ repository.LotRepository          = (*LotRepo)(nil)
	_ repository.ProductRepository      = (*ProductRepo)(nil)
	_ repository.MovementTypeRepository = (*MovementTypeRepo)(nil)
	_ repository.CompanyRepository      = (*CompanyRepo)(nil)
)

// LotRepo lotes sobre SQLite.
type LotRepo struct {
	db *sqlx.DB
}

func NewLotRepository(db *sqlx.DB) *LotRepo {
	return &LotRepo{db: db}
}

// Create persiste un lote y asigna Seq. Número repetido devuelve domain.ErrDuplicate.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO lots (id, tenant_id, product_id, lot_number, expiry_date, remaining, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.TenantID, lot.ProductID, lot.LotNumber, nullNanos(lot.ExpiryDate), lot.Remaining, toNanos(lot.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, lot.LotNumber)
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	lot.Seq = seq
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, tenantID, lotID string) (*entity.Lot, error) {
	return getLot(ctx, r.db, `WHERE tenant_id = ? AND id = ?`, tenantID, lotID)
}

func (r *LotRepo) GetByNumber(ctx context.Context, tenantID, productID, lotNumber string) (*entity.Lot, error) {
	return getLot(ctx, r.db, `WHERE tenant_id = ? AND product_id = ? AND lot_number = ?`, tenantID, productID, lotNumber)
}

// ListByProduct lotes del producto en orden de creación.
func (r *LotRepo) ListByProduct(ctx context.Context, tenantID, productID string) ([]*entity.Lot, error) {
	var rows []lotRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+lotColumns+` FROM lots WHERE tenant_id = ? AND product_id = ? ORDER BY seq`, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	out := make([]*entity.Lot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}

// ProductRepo catálogo de productos sobre SQLite.
type ProductRepo struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

// Upsert inserta o actualiza un producto; estoque_atual no se toca.
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, tenant_id, sku, name, controlled, lot_tracked, min_stock, cost, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, id) DO UPDATE
		   SET sku = excluded.sku, name = excluded.name, controlled = excluded.controlled,
		       lot_tracked = excluded.lot_tracked, min_stock = excluded.min_stock, cost = excluded.cost,
		       updated_at = excluded.updated_at`,
		p.ID, p.TenantID, p.SKU, p.Name, p.Controlled, p.LotTracked, p.MinStock, p.Cost, toNanos(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID string) (*entity.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE tenant_id = ? AND id = ?`, tenantID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return row.entity(), nil
}

// ListByTenant productos ordenados por SKU. limit <= 0 devuelve todos.
func (r *ProductRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []productRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+productColumns+` FROM products WHERE tenant_id = ? ORDER BY sku, id LIMIT ? OFFSET ?`,
		tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]*entity.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}

func (r *ProductRepo) UpdateCachedQuantity(ctx context.Context, tenantID, productID string, qty decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `UPDATE products SET estoque_atual = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		qty, toNanos(time.Now()), tenantID, productID)
	if err != nil {
		return fmt.Errorf("update estoque_atual: %w", err)
	}
	return nil
}

// MovementTypeRepo política de tipos sobre SQLite.
type MovementTypeRepo struct {
	db *sqlx.DB
}

func NewMovementTypeRepository(db *sqlx.DB) *MovementTypeRepo {
	return &MovementTypeRepo{db: db}
}

// ListForTenant defaults globales más las redefiniciones del tenant.
func (r *MovementTypeRepo) ListForTenant(ctx context.Context, tenantID string) ([]entity.MovementType, error) {
	var rows []movementTypeRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+movementTypeColumns+` FROM movement_types WHERE tenant_id IN ('', ?) ORDER BY code, tenant_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list movement types: %w", err)
	}
	out := make([]entity.MovementType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}

// Upsert crea o reemplaza la definición del tenant e incrementa su versión.
func (r *MovementTypeRepo) Upsert(ctx context.Context, mt *entity.MovementType) error {
	row := fromMovementType(*mt)
	row.Version = 1
	row.UpdatedAt = toNanos(time.Now())
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO movement_types (`+movementTypeColumns+`)
		VALUES (`+named(movementTypeColumns)+`)
		ON CONFLICT (tenant_id, code) DO UPDATE
		   SET description = excluded.description, direction = excluded.direction,
		       requires_approval = excluded.requires_approval, requires_invoice = excluded.requires_invoice,
		       requires_supplier = excluded.requires_supplier, requires_lot = excluded.requires_lot,
		       allows_controlled_substances = excluded.allows_controlled_substances, active = excluded.active,
		       lifecycle = excluded.lifecycle, updated_at = excluded.updated_at,
		       version = movement_types.version + 1`, row)
	if err != nil {
		return fmt.Errorf("upsert movement type: %w", err)
	}
	var stored movementTypeRow
	if err := r.db.GetContext(ctx, &stored,
		`SELECT `+movementTypeColumns+` FROM movement_types WHERE tenant_id = ? AND code = ?`, mt.TenantID, mt.Code); err != nil {
		return fmt.Errorf("read movement type: %w", err)
	}
	mt.Version = stored.Version
	mt.UpdatedAt = fromNanos(stored.UpdatedAt)
	return nil
}

// CompanyRepo módulos contratados sobre SQLite.
type CompanyRepo struct {
	db *sqlx.DB
}

func NewCompanyRepository(db *sqlx.DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

// Entitle activa un módulo para el tenant (carga inicial del nodo local).
func (r *CompanyRepo) Entitle(ctx context.Context, tenantID, moduleName string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_modules (tenant_id, module_name, is_active) VALUES (?, ?, 1)
		ON CONFLICT (tenant_id, module_name) DO UPDATE SET is_active = 1, expires_at = NULL`,
		tenantID, moduleName)
	if err != nil {
		return fmt.Errorf("entitle module: %w", err)
	}
	return nil
}

func (r *CompanyRepo) HasActiveModule(ctx context.Context, tenantID, moduleName string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT count(*) FROM company_modules
		 WHERE tenant_id = ? AND module_name = ? AND is_active = 1
		   AND (expires_at IS NULL OR expires_at > ?)`,
		tenantID, moduleName, toNanos(time.Now()))
	if err != nil {
		return false, fmt.Errorf("check module: %w", err)
	}
	return n > 0, nil
}
