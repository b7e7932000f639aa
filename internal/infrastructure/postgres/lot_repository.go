package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo lotes sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, tenant_id, product_id, lot_number, expiry_date, remaining, seq, created_at`

// Create persiste un lote. Número repetido para el producto devuelve domain.ErrDuplicate.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	query := `
		INSERT INTO lots (id, tenant_id, product_id, lot_number, expiry_date, remaining, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		lot.ID, lot.TenantID, lot.ProductID, lot.LotNumber, lot.ExpiryDate, lot.Remaining, lot.CreatedAt,
	).Scan(&lot.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, lot.LotNumber)
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *LotRepo) GetByID(ctx context.Context, tenantID, lotID string) (*entity.Lot, error) {
	return r.getOne(ctx, `SELECT `+lotColumns+` FROM lots WHERE tenant_id = $1 AND id = $2`, tenantID, lotID)
}

// GetByNumber obtiene un lote por producto y número.
func (r *LotRepo) GetByNumber(ctx context.Context, tenantID, productID, lotNumber string) (*entity.Lot, error) {
	return r.getOne(ctx, `SELECT `+lotColumns+` FROM lots WHERE tenant_id = $1 AND product_id = $2 AND lot_number = $3`,
		tenantID, productID, lotNumber)
}

// ListByProduct lotes del producto en orden de creación.
func (r *LotRepo) ListByProduct(ctx context.Context, tenantID, productID string) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lotColumns+` FROM lots WHERE tenant_id = $1 AND product_id = $2 ORDER BY seq`,
		tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *LotRepo) getForUpdate(ctx context.Context, tenantID, lotID string) (*entity.Lot, error) {
	return r.getOne(ctx, `SELECT `+lotColumns+` FROM lots WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, lotID)
}

func (r *LotRepo) setRemaining(ctx context.Context, tenantID, lotID string, remaining decimal.Decimal) error {
	if _, err := r.q.Exec(ctx, `UPDATE lots SET remaining = $3 WHERE tenant_id = $1 AND id = $2`, tenantID, lotID, remaining); err != nil {
		return fmt.Errorf("update lot remaining: %w", err)
	}
	return nil
}

func (r *LotRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

func scanLot(row rowScanner) (*entity.Lot, error) {
	var l entity.Lot
	var expiry *time.Time
	if err := row.Scan(&l.ID, &l.TenantID, &l.ProductID, &l.LotNumber, &expiry, &l.Remaining, &l.Seq, &l.CreatedAt); err != nil {
		return nil, err
	}
	if expiry != nil {
		e := expiry.UTC()
		l.ExpiryDate = &e
	}
	return &l, nil
}
