package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// RegisterMovementUseCase registra movimientos online: política, FEFO y append
// optimista con un reintento ante conflicto de versión.
type RegisterMovementUseCase struct {
	pipeline *pipeline
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(
	store repository.LedgerStore,
	lots repository.LotRepository,
	products repository.ProductRepository,
	policies *PolicyProvider,
	log zerolog.Logger,
) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{pipeline: newPipeline(store, lots, products, policies, log)}
}

func newPipeline(
	store repository.LedgerStore,
	lots repository.LotRepository,
	products repository.ProductRepository,
	policies *PolicyProvider,
	log zerolog.Logger,
) *pipeline {
	return &pipeline{store: store, lots: lots, products: products, policies: policies, now: time.Now, log: log}
}

// RegisterMovement valida y registra un movimiento. Si el tipo exige aprobación
// el registro queda pendiente y el agregado no cambia.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, cmd MovementCommand) (*MovementResult, error) {
	return uc.pipeline.execute(ctx, cmd)
}

// RegisterMovementFromRequest adapta el request HTTP al comando.
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, tenantID, actorID, role string, in dto.RegisterMovementRequest) (*MovementResult, error) {
	cmd := MovementCommand{
		TenantID:      tenantID,
		ActorID:       actorID,
		Role:          role,
		ClientID:      in.ClientID,
		ProductID:     in.ProductID,
		TypeCode:      in.Type,
		Quantity:      in.Quantity,
		UnitCost:      decimal.Zero,
		LotID:         in.LotID,
		LotNumber:     in.LotNumber,
		LotExpiry:     in.LotExpiry,
		SupplierID:    in.SupplierID,
		InvoiceNumber: in.InvoiceNumber,
		Reason:        in.Reason,
		Notes:         in.Notes,
		AllowExpired:  in.AllowExpired,
	}
	if in.UnitCost != nil {
		cmd.UnitCost = *in.UnitCost
	}
	if in.ClientTimestamp != nil {
		cmd.ClientTimestamp = *in.ClientTimestamp
	}
	return uc.RegisterMovement(ctx, cmd)
}

// ListMovements histórico paginado, timestamp del servidor ascendente.
func (uc *RegisterMovementUseCase) ListMovements(ctx context.Context, tenantID string, filter repository.MovementFilter, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	records, total, err := uc.pipeline.store.Range(ctx, tenantID, filter, repository.Page{Number: page.Page, Size: page.Size})
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	items := make([]dto.MovementDTO, 0, len(records))
	for i := range records {
		items = append(items, dto.ToMovementDTO(&records[i]))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Page: page.Page, Size: page.Size, Total: total},
	}, nil
}

// ToResponse mapea el resultado al body de la API.
func (r *MovementResult) ToResponse() dto.RegisterMovementResponse {
	return dto.RegisterMovementResponse{
		Movement:        dto.ToMovementDTO(r.Record),
		QuantityBefore:  r.QuantityBefore,
		QuantityAfter:   r.QuantityAfter,
		PendingApproval: r.PendingApproval,
		Duplicate:       r.Duplicate,
		Warnings:        r.Warnings,
	}
}
