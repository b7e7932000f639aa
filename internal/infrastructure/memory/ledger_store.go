package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.LedgerStore = (*LedgerStore)(nil)

// LedgerStore ledger en memoria. Un único mutex serializa las escrituras; la
// verificación de versión se hace igual que en Postgres.
type LedgerStore struct {
	st *state
}

func (s *LedgerStore) Append(ctx context.Context, rec *entity.MovementRecord, expectedVersion int64) (*entity.MovementRecord, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, dup := st.byClient[key{rec.TenantID, rec.ClientID}]; dup {
		return nil, 0, fmt.Errorf("%w: client id %s", domain.ErrDuplicate, rec.ClientID)
	}
	next, committed, err := st.commit(rec, expectedVersion)
	if err != nil {
		return nil, 0, err
	}
	st.insert(&committed)
	return cloneRecord(&committed), next.Version, nil
}

func (s *LedgerStore) Stage(ctx context.Context, rec *entity.MovementRecord) (*entity.MovementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, dup := st.byClient[key{rec.TenantID, rec.ClientID}]; dup {
		return nil, fmt.Errorf("%w: client id %s", domain.ErrDuplicate, rec.ClientID)
	}
	staged := cloneRecord(rec)
	staged.ApprovalStatus = entity.ApprovalPending
	staged.AppliedVersion = 0
	agg := st.aggregate(rec.TenantID, rec.ProductID)
	staged.QuantityBefore = agg.Quantity
	staged.QuantityAfter = agg.Quantity
	st.insert(staged)
	return cloneRecord(staged), nil
}

func (s *LedgerStore) Approve(ctx context.Context, tenantID, movementID, approverID string, allocations []entity.LotAllocation, expectedVersion int64, at time.Time) (*entity.MovementRecord, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	stored, ok := st.records[key{tenantID, movementID}]
	if !ok {
		return nil, 0, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	if stored.ApprovalStatus != entity.ApprovalPending {
		return nil, 0, domain.ErrNotPending
	}
	candidate := cloneRecord(stored)
	candidate.Allocations = allocations
	next, committed, err := st.commit(candidate, expectedVersion)
	if err != nil {
		return nil, 0, err
	}
	committed.ApprovalStatus = entity.ApprovalApproved
	committed.ApprovedBy = approverID
	approvedAt := at
	committed.ApprovedAt = &approvedAt
	*stored = committed
	return cloneRecord(stored), next.Version, nil
}

func (s *LedgerStore) Reject(ctx context.Context, tenantID, movementID, approverID string, at time.Time) (*entity.MovementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	stored, ok := st.records[key{tenantID, movementID}]
	if !ok {
		return nil, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	if stored.ApprovalStatus != entity.ApprovalPending {
		return nil, domain.ErrNotPending
	}
	rejectedAt := at
	stored.ApprovalStatus = entity.ApprovalRejected
	stored.ApprovedBy = approverID
	stored.ApprovedAt = &rejectedAt
	return cloneRecord(stored), nil
}

func (s *LedgerStore) GetAggregate(ctx context.Context, tenantID, productID string) (*entity.StockAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	agg := s.st.aggregate(tenantID, productID)
	return &agg, nil
}

func (s *LedgerStore) ListAggregates(ctx context.Context, tenantID string) ([]entity.StockAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	var out []entity.StockAggregate
	for k, agg := range s.st.aggregates {
		if k.tenant == tenantID {
			out = append(out, agg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *LedgerStore) RepairAggregate(ctx context.Context, agg entity.StockAggregate, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	current := st.aggregate(agg.TenantID, agg.ProductID)
	if current.Version != expectedVersion {
		return 0, fmt.Errorf("%w: esperado %d, actual %d", domain.ErrVersionConflict, expectedVersion, current.Version)
	}
	agg.Version = expectedVersion + 1
	st.aggregates[key{agg.TenantID, agg.ProductID}] = agg
	return agg.Version, nil
}

func (s *LedgerStore) GetByID(ctx context.Context, tenantID, movementID string) (*entity.MovementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	r, ok := s.st.records[key{tenantID, movementID}]
	if !ok {
		return nil, nil
	}
	return cloneRecord(r), nil
}

func (s *LedgerStore) GetByClientID(ctx context.Context, tenantID, clientID string) (*entity.MovementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	id, ok := s.st.byClient[key{tenantID, clientID}]
	if !ok {
		return nil, nil
	}
	return cloneRecord(s.st.records[key{tenantID, id}]), nil
}

func (s *LedgerStore) Range(ctx context.Context, tenantID string, filter repository.MovementFilter, page repository.Page) ([]entity.MovementRecord, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.st.mu.RLock()
	var matched []entity.MovementRecord
	for _, k := range s.st.order {
		if k.tenant != tenantID {
			continue
		}
		r := s.st.records[k]
		if matches(r, filter) {
			matched = append(matched, *cloneRecord(r))
		}
	}
	s.st.mu.RUnlock()

	// empates quedan en orden de inserción
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ServerTimestamp.Before(matched[j].ServerTimestamp)
	})
	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []entity.MovementRecord{}, total, nil
	}
	end := total
	if page.Size > 0 && start+page.Size < total {
		end = start + page.Size
	}
	return matched[start:end], total, nil
}

func (s *LedgerStore) Replay(ctx context.Context, tenantID, productID string) ([]entity.MovementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.st.mu.RLock()
	var out []entity.MovementRecord
	for _, k := range s.st.order {
		r := s.st.records[k]
		if k.tenant == tenantID && r.ProductID == productID && r.AffectsStock() {
			out = append(out, *cloneRecord(r))
		}
	}
	s.st.mu.RUnlock()
	return inventory.SortForReplay(out), nil
}

// ──── helpers con el lock tomado ────────────────────────────────────────────

func (st *state) aggregate(tenantID, productID string) entity.StockAggregate {
	if agg, ok := st.aggregates[key{tenantID, productID}]; ok {
		return agg
	}
	return entity.NewStockAggregate(tenantID, productID)
}

// commit verifica la versión, proyecta y ajusta lotes. No escribe nada si falla.
func (st *state) commit(rec *entity.MovementRecord, expectedVersion int64) (entity.StockAggregate, entity.MovementRecord, error) {
	agg := st.aggregate(rec.TenantID, rec.ProductID)
	if agg.Version != expectedVersion {
		return agg, entity.MovementRecord{}, fmt.Errorf("%w: esperado %d, actual %d", domain.ErrVersionConflict, expectedVersion, agg.Version)
	}
	next, committed, err := inventory.Commit(agg, rec)
	if err != nil {
		return agg, entity.MovementRecord{}, err
	}

	remaining := make(map[string]decimal.Decimal, len(committed.Allocations))
	for _, a := range committed.Allocations {
		lot, ok := st.lots[key{rec.TenantID, a.LotID}]
		if !ok || lot.ProductID != rec.ProductID {
			return agg, entity.MovementRecord{}, fmt.Errorf("%w: lote %s", domain.ErrNotFound, a.LotID)
		}
		current := lot.Remaining
		if r, seen := remaining[a.LotID]; seen {
			current = r
		}
		after, err := inventory.ApplyAllocation(entity.Lot{ProductID: lot.ProductID, Remaining: current}, a)
		if err != nil {
			return agg, entity.MovementRecord{}, err
		}
		remaining[a.LotID] = after
	}

	for id, r := range remaining {
		st.lots[key{rec.TenantID, id}].Remaining = r
	}
	st.aggregates[key{rec.TenantID, rec.ProductID}] = next
	return next, committed, nil
}

func (st *state) insert(rec *entity.MovementRecord) {
	k := key{rec.TenantID, rec.ID}
	st.records[k] = rec
	st.byClient[key{rec.TenantID, rec.ClientID}] = rec.ID
	st.order = append(st.order, k)
}

func matches(r *entity.MovementRecord, f repository.MovementFilter) bool {
	switch {
	case f.ProductID != "" && r.ProductID != f.ProductID:
		return false
	case f.TypeCode != "" && r.TypeCode != f.TypeCode:
		return false
	case f.ActorID != "" && r.ActorID != f.ActorID:
		return false
	case f.From != nil && r.ServerTimestamp.Before(*f.From):
		return false
	case f.To != nil && r.ServerTimestamp.After(*f.To):
		return false
	}
	return true
}
