package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo lotes en memoria.
type LotRepo struct {
	st *state
}

func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	for k, l := range st.lots {
		if k.tenant == lot.TenantID && l.ProductID == lot.ProductID && l.LotNumber == lot.LotNumber {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, lot.LotNumber)
		}
	}
	st.lotSeq++
	lot.Seq = st.lotSeq
	st.lots[key{lot.TenantID, lot.ID}] = cloneLot(lot)
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, tenantID, lotID string) (*entity.Lot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	l, ok := r.st.lots[key{tenantID, lotID}]
	if !ok {
		return nil, nil
	}
	return cloneLot(l), nil
}

func (r *LotRepo) GetByNumber(ctx context.Context, tenantID, productID, lotNumber string) (*entity.Lot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for k, l := range r.st.lots {
		if k.tenant == tenantID && l.ProductID == productID && l.LotNumber == lotNumber {
			return cloneLot(l), nil
		}
	}
	return nil, nil
}

func (r *LotRepo) ListByProduct(ctx context.Context, tenantID, productID string) ([]*entity.Lot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []*entity.Lot
	for k, l := range r.st.lots {
		if k.tenant == tenantID && l.ProductID == productID {
			out = append(out, cloneLot(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}
