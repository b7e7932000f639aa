package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// ApprovalUseCase aprueba o rechaza movimientos que quedaron pendientes por la
// política de su tipo. Aprobar aplica el movimiento con las mismas garantías
// que un append: versión optimista, saldo no negativo y FEFO.
type ApprovalUseCase struct {
	pipeline *pipeline
}

// NewApprovalUseCase comparte el pipeline del registro online.
func NewApprovalUseCase(register *RegisterMovementUseCase) *ApprovalUseCase {
	return &ApprovalUseCase{pipeline: register.pipeline}
}

// Approve confirma un movimiento pendiente.
func (uc *ApprovalUseCase) Approve(ctx context.Context, tenantID, movementID, approverID, role string, allowExpired bool) (*MovementResult, error) {
	if !entity.CanApproveMovements(role) {
		return nil, fmt.Errorf("%w: el rol %q no aprueba movimientos", domain.ErrForbidden, role)
	}
	if allowExpired && !entity.CanOverrideExpiredLots(role) {
		return nil, fmt.Errorf("%w: solo admin o farmacéutico autoriza lotes vencidos", domain.ErrForbidden)
	}
	p := uc.pipeline
	rec, err := uc.pending(ctx, tenantID, movementID)
	if err != nil {
		return nil, err
	}
	product, err := p.products.GetByID(ctx, tenantID, rec.ProductID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, rec.ProductID)
	}

	return withConflictRetry(ctx, p.log, func() (*MovementResult, error) {
		agg, err := p.store.GetAggregate(ctx, tenantID, rec.ProductID)
		if err != nil {
			return nil, err
		}
		candidate := *rec
		candidate.Allocations = nil
		if _, err := inventory.Apply(*agg, &candidate); err != nil {
			return nil, err
		}
		warnings, err := p.allocate(ctx, &candidate, product, allowExpired)
		if err != nil {
			return nil, err
		}
		approved, _, err := p.store.Approve(ctx, tenantID, movementID, approverID, candidate.Allocations, agg.Version, p.now().UTC())
		if err != nil {
			return nil, err
		}
		p.refreshCachedQuantity(ctx, approved)
		p.log.Info().
			Str("tenant_id", tenantID).
			Str("movement_id", movementID).
			Str("approved_by", approverID).
			Msg("movimiento aprobado")
		return &MovementResult{
			Record:         approved,
			QuantityBefore: approved.QuantityBefore,
			QuantityAfter:  approved.QuantityAfter,
			Warnings:       warnings,
		}, nil
	})
}

// Reject descarta un movimiento pendiente; el registro permanece en el ledger
// marcado como rechazado y nunca afecta al agregado.
func (uc *ApprovalUseCase) Reject(ctx context.Context, tenantID, movementID, approverID, role string) (*MovementResult, error) {
	if !entity.CanApproveMovements(role) {
		return nil, fmt.Errorf("%w: el rol %q no rechaza movimientos", domain.ErrForbidden, role)
	}
	p := uc.pipeline
	if _, err := uc.pending(ctx, tenantID, movementID); err != nil {
		return nil, err
	}
	rejected, err := p.store.Reject(ctx, tenantID, movementID, approverID, p.now().UTC())
	if err != nil {
		return nil, err
	}
	agg, err := p.store.GetAggregate(ctx, tenantID, rejected.ProductID)
	if err != nil {
		return nil, err
	}
	return &MovementResult{Record: rejected, QuantityBefore: agg.Quantity, QuantityAfter: agg.Quantity}, nil
}

func (uc *ApprovalUseCase) pending(ctx context.Context, tenantID, movementID string) (*entity.MovementRecord, error) {
	rec, err := uc.pipeline.store.GetByID(ctx, tenantID, movementID)
	if err != nil {
		return nil, fmt.Errorf("obtener movimiento: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	if rec.ApprovalStatus != entity.ApprovalPending {
		return nil, domain.ErrNotPending
	}
	return rec, nil
}
