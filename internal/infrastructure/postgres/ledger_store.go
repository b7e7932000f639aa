package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.LedgerStore = (*LedgerStore)(nil)

// LedgerStore ledger append-only sobre PostgreSQL. Cada escritura es una
// transacción: bloqueo del agregado, verificación de versión, proyección,
// lotes, registro y agregado nuevo.
type LedgerStore struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewLedgerStore construye el ledger sobre el pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool, tx: NewTxRunner(pool)}
}

func (s *LedgerStore) Append(ctx context.Context, rec *entity.MovementRecord, expectedVersion int64) (*entity.MovementRecord, int64, error) {
	var committed entity.MovementRecord
	var version int64
	err := s.tx.Run(ctx, func(q Querier) error {
		movements := movementRepo{q}
		existing, err := movements.GetBy(ctx, "client_id", rec.TenantID, rec.ClientID, false)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: client id %s", domain.ErrDuplicate, rec.ClientID)
		}

		next, c, err := commitLocked(ctx, q, rec, expectedVersion)
		if err != nil {
			return err
		}
		if err := movements.Insert(ctx, &c); err != nil {
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
	agg, err := aggregateRepo{s.pool}.Get(ctx, rec.TenantID, rec.ProductID)
	if err != nil {
		return nil, err
	}
	staged := *rec
	staged.ApprovalStatus = entity.ApprovalPending
	staged.AppliedVersion = 0
	staged.QuantityBefore = agg.Quantity
	staged.QuantityAfter = agg.Quantity
	if err := (movementRepo{s.pool}).Insert(ctx, &staged); err != nil {
		return nil, err
	}
	return &staged, nil
}

func (s *LedgerStore) Approve(ctx context.Context, tenantID, movementID, approverID string, allocations []entity.LotAllocation, expectedVersion int64, at time.Time) (*entity.MovementRecord, int64, error) {
	var approved entity.MovementRecord
	var version int64
	err := s.tx.Run(ctx, func(q Querier) error {
		movements := movementRepo{q}
		stored, err := movements.GetBy(ctx, "id", tenantID, movementID, true)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
		}
		if stored.ApprovalStatus != entity.ApprovalPending {
			return domain.ErrNotPending
		}
		stored.Allocations = allocations
		next, c, err := commitLocked(ctx, q, stored, expectedVersion)
		if err != nil {
			return err
		}
		approvedAt := at
		c.ApprovalStatus = entity.ApprovalApproved
		c.ApprovedBy = approverID
		c.ApprovedAt = &approvedAt
		if err := movements.MarkApplied(ctx, &c); err != nil {
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
	err := s.tx.Run(ctx, func(q Querier) error {
		movements := movementRepo{q}
		stored, err := movements.GetBy(ctx, "id", tenantID, movementID, true)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
		}
		if stored.ApprovalStatus != entity.ApprovalPending {
			return domain.ErrNotPending
		}
		rejectedAt := at
		stored.ApprovalStatus = entity.ApprovalRejected
		stored.ApprovedBy = approverID
		stored.ApprovedAt = &rejectedAt
		if err := movements.MarkApplied(ctx, stored); err != nil {
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
	return aggregateRepo{s.pool}.Get(ctx, tenantID, productID)
}

func (s *LedgerStore) ListAggregates(ctx context.Context, tenantID string) ([]entity.StockAggregate, error) {
	return aggregateRepo{s.pool}.ListByTenant(ctx, tenantID)
}

func (s *LedgerStore) RepairAggregate(ctx context.Context, agg entity.StockAggregate, expectedVersion int64) (int64, error) {
	var version int64
	err := s.tx.Run(ctx, func(q Querier) error {
		aggs := aggregateRepo{q}
		current, err := aggs.GetForUpdate(ctx, agg.TenantID, agg.ProductID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("%w: esperado %d, actual %d", domain.ErrVersionConflict, expectedVersion, current.Version)
		}
		agg.Version = expectedVersion + 1
		version = agg.Version
		return aggs.Save(ctx, agg)
	})
	return version, err
}

func (s *LedgerStore) GetByID(ctx context.Context, tenantID, movementID string) (*entity.MovementRecord, error) {
	return movementRepo{s.pool}.GetBy(ctx, "id", tenantID, movementID, false)
}

func (s *LedgerStore) GetByClientID(ctx context.Context, tenantID, clientID string) (*entity.MovementRecord, error) {
	return movementRepo{s.pool}.GetBy(ctx, "client_id", tenantID, clientID, false)
}

func (s *LedgerStore) Range(ctx context.Context, tenantID string, filter repository.MovementFilter, page repository.Page) ([]entity.MovementRecord, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProductID != "" {
		add("product_id = $%d", filter.ProductID)
	}
	if filter.TypeCode != "" {
		add("type_code = $%d", filter.TypeCode)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.From != nil {
		add("server_timestamp >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("server_timestamp <= $%d", *filter.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM stock_movements WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE ` + cond + ` ORDER BY server_timestamp, id`
	if page.Size > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Size, page.Offset())
	}
	list, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *LedgerStore) Replay(ctx context.Context, tenantID, productID string) ([]entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE tenant_id = $1 AND product_id = $2 AND applied_version > 0
		  AND approval_status NOT IN ('PENDING_APPROVAL', 'REJECTED')
		  AND sync_status <> 'REJECTED' AND lifecycle = 'ACTIVE'
		ORDER BY applied_version, server_timestamp, id`
	return s.query(ctx, query, tenantID, productID)
}

func (s *LedgerStore) query(ctx context.Context, query string, args ...any) ([]entity.MovementRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := []entity.MovementRecord{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// commitLocked bloquea el agregado, verifica la versión, proyecta rec, ajusta
// los lotes de sus asignaciones y guarda el agregado. Debe correr dentro de una tx.
func commitLocked(ctx context.Context, q Querier, rec *entity.MovementRecord, expectedVersion int64) (entity.StockAggregate, entity.MovementRecord, error) {
	aggs := aggregateRepo{q}
	agg, err := aggs.GetForUpdate(ctx, rec.TenantID, rec.ProductID)
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

	lots := LotRepo{q: q}
	for _, a := range committed.Allocations {
		lot, err := lots.getForUpdate(ctx, rec.TenantID, a.LotID)
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
		if err := lots.setRemaining(ctx, rec.TenantID, a.LotID, remaining); err != nil {
			return *agg, entity.MovementRecord{}, err
		}
	}

	if err := aggs.Save(ctx, next); err != nil {
		return *agg, entity.MovementRecord{}, err
	}
	return next, committed, nil
}
