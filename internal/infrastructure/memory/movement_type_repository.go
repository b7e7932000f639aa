package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.MovementTypeRepository = (*MovementTypeRepo)(nil)

// MovementTypeRepo defaults globales más redefiniciones por tenant.
type MovementTypeRepo struct {
	st *state
}

func (r *MovementTypeRepo) ListForTenant(ctx context.Context, tenantID string) ([]entity.MovementType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []entity.MovementType
	for k, t := range r.st.types {
		if k.tenant == "" || k.tenant == tenantID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].TenantID < out[j].TenantID
	})
	return out, nil
}

func (r *MovementTypeRepo) Upsert(ctx context.Context, mt *entity.MovementType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	k := key{mt.TenantID, mt.Code}
	mt.Version = r.st.types[k].Version + 1
	r.st.types[k] = *mt
	return nil
}
