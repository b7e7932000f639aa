package memory

import (
	"context"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo módulos contratados en memoria.
type CompanyRepo struct {
	st *state
}

// Entitle activa un módulo para el tenant sin vencimiento.
func (r *CompanyRepo) Entitle(tenantID, moduleName string) {
	r.EntitleUntil(tenantID, moduleName, nil)
}

// EntitleUntil activa un módulo hasta expiresAt (nil = sin vencimiento).
func (r *CompanyRepo) EntitleUntil(tenantID, moduleName string, expiresAt *time.Time) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.modules[key{tenantID, moduleName}] = entity.CompanyModule{
		TenantID:    tenantID,
		ModuleName:  moduleName,
		IsActive:    true,
		ActivatedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
}

func (r *CompanyRepo) HasActiveModule(ctx context.Context, tenantID, moduleName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	m, ok := r.st.modules[key{tenantID, moduleName}]
	return ok && m.Entitled(time.Now()), nil
}
