package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.LedgerStore = (*LedgerStore)(nil)

// LedgerStore ledger sobre SQLite. Con una sola conexión la transacción ya
// es exclusiva; la versión se verifica igual en el UPDATE del agregado.
type LedgerStore struct {
	db *sqlx.DB
}

// NewLedgerStore construye el ledger sobre db (ver Open).
func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// inTx ejecuta fn en una transacción; cualquier error hace rollback.
func (s *LedgerStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *LedgerStore) Append(ctx context.Context, rec *entity.MovementRecord, expectedVersion int64) (*entity.MovementRecord, int64, error) {
	var committed entity.MovementRecord
	var version int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := getMovement(ctx, tx, "client_id", rec.TenantID, rec.ClientID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: client id %s", domain.ErrDuplicate, rec.ClientID)
		}
		next, c, err := commit(ctx, tx, rec, expectedVersion)
		if err != nil {
			return err
		}
		if err := insertMovement(ctx, tx, &c); err != nil {
			return err
		}
		committed, version = c, next.Version
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &committed, version, nil
}

func (s *LedgerStore) Stage(ctx context.Context, rec *entity.MovementRecord) (*entity.MovementRecord, error) {
	var staged entity.MovementRecord
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		agg, err := getAggregate(ctx, tx, rec.TenantID, rec.ProductID)
		if err != nil {
			return err
		}
		staged = *rec
		staged.ApprovalStatus = entity.ApprovalPending
		staged.AppliedVersion = 0
		staged.QuantityBefore = agg.Quantity
		staged.QuantityAfter = agg.Quantity
		return insertMovement(ctx, tx, &staged)
	})
	if err != nil {
		return nil, err
	}
	return &staged, nil
}

func (s *LedgerStore) Approve(ctx context.Context, tenantID, movementID, approverID string, allocations []entity.LotAllocation, expectedVersion int64, at time.Time) (*entity.MovementRecord, int64, error) {
	var approved entity.MovementRecord
	var version int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		stored, err := pendingMovement(ctx, tx, tenantID, movementID)
		if err != nil {
			return err
		}
		stored.Allocations = allocations
		next, c, err := commit(ctx, tx, stored, expectedVersion)
		if err != nil {
			return err
		}
		approvedAt := at
		c.ApprovalStatus = entity.ApprovalApproved
		c.ApprovedBy = approverID
		c.ApprovedAt = &approvedAt
		if err := markApplied(ctx, tx, &c); err != nil {
			return err
		}
		approved, version = c, next.Version
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &approved, version, nil
}

func (s *LedgerStore) Reject(ctx context.Context, tenantID, movementID, approverID string, at time.Time) (*entity.MovementRecord, error) {
	var rejected *entity.MovementRecord
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		stored, err := pendingMovement(ctx, tx, tenantID, movementID)
		if err != nil {
			return err
		}
		rejectedAt := at
		stored.ApprovalStatus = entity.ApprovalRejected
		stored.ApprovedBy = approverID
		stored.ApprovedAt = &rejectedAt
		if err := markApplied(ctx, tx, stored); err != nil {
			return err
		}
		rejected = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (s *LedgerStore) GetAggregate(ctx context.Context, tenantID, productID string) (*entity.StockAggregate, error) {
	return getAggregate(ctx, s.db, tenantID, productID)
}

func (s *LedgerStore) ListAggregates(ctx context.Context, tenantID string) ([]entity.StockAggregate, error) {
	var rows []aggregateRow
	err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+aggregateColumns+` FROM stock_aggregates WHERE tenant_id = ? ORDER BY product_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	out := make([]entity.StockAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entity())
	}
	return out, nil
}

func (s *LedgerStore) RepairAggregate(ctx context.Context, agg entity.StockAggregate, expectedVersion int64) (int64, error) {
	agg.Version = expectedVersion + 1
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return saveAggregate(ctx, tx, agg, expectedVersion)
	})
	if err != nil {
		return 0, err
	}
	return agg.Version, nil
}

func (s *LedgerStore) GetByID(ctx context.Context, tenantID, movementID string) (*entity.MovementRecord, error) {
	return getMovement(ctx, s.db, "id", tenantID, movementID)
}

func (s *LedgerStore) GetByClientID(ctx context.Context, tenantID, clientID string) (*entity.MovementRecord, error) {
	return getMovement(ctx, s.db, "client_id", tenantID, clientID)
}

func (s *LedgerStore) Range(ctx context.Context, tenantID string, filter repository.MovementFilter, page repository.Page) ([]entity.MovementRecord, int, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if filter.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.TypeCode != "" {
		where = append(where, "type_code = ?")
		args = append(args, filter.TypeCode)
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.From != nil {
		where = append(where, "server_timestamp >= ?")
		args = append(args, toNanos(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "server_timestamp <= ?")
		args = append(args, toNanos(*filter.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, s.db, &total, `SELECT count(*) FROM stock_movements WHERE `+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	// rowid conserva el orden de inserción ante timestamps iguales.
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE ` + cond + ` ORDER BY server_timestamp, rowid`
	if page.Size > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Size, page.Offset())
	}
	list, err := selectMovements(ctx, s.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *LedgerStore) Replay(ctx context.Context, tenantID, productID string) ([]entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE tenant_id = ? AND product_id = ? AND applied_version > 0
		  AND approval_status NOT IN ('PENDING_APPROVAL', 'REJECTED')
		  AND sync_status <> 'REJECTED' AND lifecycle = 'ACTIVE'
		ORDER BY applied_version, server_timestamp, id`
	return selectMovements(ctx, s.db, query, tenantID, productID)
}

// commit verifica la versión, proyecta rec, ajusta los lotes y guarda el
// agregado. Debe correr dentro de la transacción de la escritura.
func commit(ctx context.Context, tx *sqlx.Tx, rec *entity.MovementRecord, expectedVersion int64) (entity.StockAggregate, entity.MovementRecord, error) {
	agg, err := getAggregate(ctx, tx, rec.TenantID, rec.ProductID)
	if err != nil {
		return entity.StockAggregate{}, entity.MovementRecord{}, err
	}
	if agg.Version != expectedVersion {
		return *agg, entity.MovementRecord{}, fmt.Errorf("%w: esperado %d, actual %d", domain.ErrVersionConflict, expectedVersion, agg.Version)
	}
	next, committed, err := inventory.Commit(*agg, rec)
	if err != nil {
		return *agg, entity.MovementRecord{}, err
	}

	for _, a := range committed.Allocations {
		lot, err := getLot(ctx, tx, `WHERE tenant_id = ? AND id = ?`, rec.TenantID, a.LotID)
		if err != nil {
			return *agg, entity.MovementRecord{}, err
		}
		if lot == nil || lot.ProductID != rec.ProductID {
			return *agg, entity.MovementRecord{}, fmt.Errorf("%w: lote %s", domain.ErrNotFound, a.LotID)
		}
		remaining, err := inventory.ApplyAllocation(*lot, a)
		if err != nil {
			return *agg, entity.MovementRecord{}, err
		}
		if err := setLotRemaining(ctx, tx, rec.TenantID, a.LotID, remaining); err != nil {
			return *agg, entity.MovementRecord{}, err
		}
	}

	if err := saveAggregate(ctx, tx, next, expectedVersion); err != nil {
		return *agg, entity.MovementRecord{}, err
	}
	return next, committed, nil
}

func getAggregate(ctx context.Context, q sqlx.QueryerContext, tenantID, productID string) (*entity.StockAggregate, error) {
	var row aggregateRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT `+aggregateColumns+` FROM stock_aggregates WHERE tenant_id = ? AND product_id = ?`, tenantID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		agg := entity.NewStockAggregate(tenantID, productID)
		return &agg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	agg := row.entity()
	return &agg, nil
}

// saveAggregate inserta o actualiza el agregado solo si sigue en expectedVersion.
func saveAggregate(ctx context.Context, tx *sqlx.Tx, agg entity.StockAggregate, expectedVersion int64) error {
	row := fromAggregate(agg)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO stock_aggregates (`+aggregateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, product_id) DO UPDATE
		   SET quantity = excluded.quantity, average_cost = excluded.average_cost, version = excluded.version,
		       last_movement_id = excluded.last_movement_id, last_movement_at = excluded.last_movement_at
		 WHERE stock_aggregates.version = ?`,
		row.TenantID, row.ProductID, row.Quantity, row.AverageCost, row.Version, row.LastMovementID, row.LastMovementAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: esperado %d", domain.ErrVersionConflict, expectedVersion)
	}
	return nil
}

func insertMovement(ctx context.Context, tx *sqlx.Tx, m *entity.MovementRecord) error {
	row, err := fromMovement(m)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, tx,
		`INSERT INTO stock_movements (`+movementColumns+`) VALUES (`+named(movementColumns)+`)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: client id %s", domain.ErrDuplicate, m.ClientID)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func markApplied(ctx context.Context, tx *sqlx.Tx, m *entity.MovementRecord) error {
	row, err := fromMovement(m)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, tx, `
		UPDATE stock_movements
		   SET allocations = :allocations, sync_status = :sync_status, approval_status = :approval_status,
		       approved_by = :approved_by, approved_at = :approved_at, quantity_before = :quantity_before,
		       quantity_after = :quantity_after, applied_version = :applied_version
		 WHERE tenant_id = :tenant_id AND id = :id`, row)
	if err != nil {
		return fmt.Errorf("mark movement applied: %w", err)
	}
	return nil
}

func pendingMovement(ctx context.Context, tx *sqlx.Tx, tenantID, movementID string) (*entity.MovementRecord, error) {
	stored, err := getMovement(ctx, tx, "id", tenantID, movementID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	if stored.ApprovalStatus != entity.ApprovalPending {
		return nil, domain.ErrNotPending
	}
	return stored, nil
}

// getMovement busca por id o client_id; (nil, nil) si no existe.
func getMovement(ctx context.Context, q sqlx.QueryerContext, column, tenantID, value string) (*entity.MovementRecord, error) {
	var row movementRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT `+movementColumns+` FROM stock_movements WHERE tenant_id = ? AND `+column+` = ?`, tenantID, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movement: %w", err)
	}
	m, err := row.entity()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func selectMovements(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]entity.MovementRecord, error) {
	var rows []movementRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	list := make([]entity.MovementRecord, 0, len(rows))
	for _, r := range rows {
		m, err := r.entity()
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, nil
}

func getLot(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) (*entity.Lot, error) {
	var row lotRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+lotColumns+` FROM lots `+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return row.entity(), nil
}

func setLotRemaining(ctx context.Context, tx *sqlx.Tx, tenantID, lotID string, remaining decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx, `UPDATE lots SET remaining = ? WHERE tenant_id = ? AND id = ?`,
		remaining, tenantID, lotID); err != nil {
		return fmt.Errorf("update lot remaining: %w", err)
	}
	return nil
}
