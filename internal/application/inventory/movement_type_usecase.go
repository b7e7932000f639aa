package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// MovementTypeUseCase administra las redefiniciones de tipos por tenant. Cada
// cambio invalida la política cacheada.
type MovementTypeUseCase struct {
	repo     repository.MovementTypeRepository
	policies *PolicyProvider
	now      func() time.Time
	log      zerolog.Logger
}

// NewMovementTypeUseCase construye el caso de uso.
func NewMovementTypeUseCase(repo repository.MovementTypeRepository, policies *PolicyProvider, log zerolog.Logger) *MovementTypeUseCase {
	return &MovementTypeUseCase{repo: repo, policies: policies, now: time.Now, log: log}
}

// List tipos efectivos para el tenant.
func (uc *MovementTypeUseCase) List(ctx context.Context, tenantID string) ([]entity.MovementType, error) {
	set, err := uc.policies.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return set.List(), nil
}

// Upsert crea o reemplaza la definición del tenant para code.
func (uc *MovementTypeUseCase) Upsert(ctx context.Context, tenantID, code string, in dto.MovementTypeRequest) (*entity.MovementType, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	dir := entity.Direction(strings.ToUpper(strings.TrimSpace(in.Direction)))
	var vs []domain.Violation
	if code == "" {
		vs = append(vs, domain.Violation{Code: "REQUIRED", Field: "code", Message: "el código es obligatorio"})
	}
	if !dir.Valid() {
		vs = append(vs, domain.Violation{Code: "INVALID_DIRECTION", Field: "direction", Message: "sentido inválido, use IN, OUT o NEUTRAL"})
	}
	if len(vs) > 0 {
		return nil, &domain.ValidationError{Violations: vs}
	}

	mt := &entity.MovementType{
		TenantID:                   tenantID,
		Code:                       code,
		Description:                strings.TrimSpace(in.Description),
		Direction:                  dir,
		RequiresApproval:           in.RequiresApproval,
		RequiresInvoice:            in.RequiresInvoice,
		RequiresSupplier:           in.RequiresSupplier,
		RequiresLot:                in.RequiresLot,
		AllowsControlledSubstances: in.AllowsControlledSubstances,
		Active:                     true,
		Lifecycle:                  entity.LifecycleActive,
		UpdatedAt:                  uc.now().UTC(),
	}
	if in.Active != nil {
		mt.Active = *in.Active
	}
	if err := uc.repo.Upsert(ctx, mt); err != nil {
		return nil, fmt.Errorf("guardar tipo de movimiento: %w", err)
	}
	uc.policies.Invalidate(ctx, tenantID)
	uc.log.Info().Str("tenant_id", tenantID).Str("type", code).Int64("version", mt.Version).Msg("tipo de movimiento actualizado")
	return mt, nil
}

// Deactivate desactiva code para el tenant sin borrar el histórico.
func (uc *MovementTypeUseCase) Deactivate(ctx context.Context, tenantID, code string) (*entity.MovementType, error) {
	set, err := uc.policies.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	current, ok := set.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: tipo de movimiento %s", domain.ErrNotFound, code)
	}
	mt := current
	mt.TenantID = tenantID
	mt.Active = false
	mt.Lifecycle = entity.LifecycleSoftDeleted
	mt.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Upsert(ctx, &mt); err != nil {
		return nil, fmt.Errorf("desactivar tipo de movimiento: %w", err)
	}
	uc.policies.Invalidate(ctx, tenantID)
	return &mt, nil
}
