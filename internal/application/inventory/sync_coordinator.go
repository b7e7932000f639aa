package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// SyncCoordinator recibe lotes de movimientos generados por PDVs (posiblemente
// offline) y los aplica uno a uno en orden de timestamp del cliente.
//
// Por ítem: integridad → duplicado por client id → política → append con un
// reintento ante conflicto de versión. Un ítem fallido nunca aborta el lote.
type SyncCoordinator struct {
	pipeline *pipeline
	maxBatch int
	log      zerolog.Logger
}

// NewSyncCoordinator comparte el pipeline del registro online. maxBatch <= 0 sin tope.
func NewSyncCoordinator(register *RegisterMovementUseCase, maxBatch int, log zerolog.Logger) *SyncCoordinator {
	return &SyncCoordinator{pipeline: register.pipeline, maxBatch: maxBatch, log: log}
}

// SyncBatch procesa el lote completo y devuelve el resultado por ítem. Solo
// devuelve error si el lote en sí es inválido (vacío o demasiado grande). Si
// ctx se cancela a mitad, los ítems ya aplicados se mantienen y el resto se
// informa como rechazado por cancelación.
func (c *SyncCoordinator) SyncBatch(ctx context.Context, tenantID, actorID, role string, items []dto.SyncMovementItem) (*dto.SyncReport, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("EMPTY_BATCH", "items", "el lote de sincronización está vacío")
	}
	if c.maxBatch > 0 && len(items) > c.maxBatch {
		return nil, domain.NewValidationError("BATCH_TOO_LARGE", "items",
			fmt.Sprintf("el lote supera el máximo de %d movimientos", c.maxBatch))
	}

	ordered := make([]dto.SyncMovementItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.ClientTimestamp.Equal(b.ClientTimestamp) {
			return a.ClientTimestamp.Before(b.ClientTimestamp)
		}
		return a.ID < b.ID
	})

	report := &dto.SyncReport{Details: make([]dto.SyncItemResult, 0, len(ordered))}
	for _, item := range ordered {
		var res dto.SyncItemResult
		if err := ctx.Err(); err != nil {
			res = rejectedItem(item.ID, dto.SyncReasonCancelled, err)
		} else {
			res = c.processItem(ctx, tenantID, actorID, role, item)
		}
		addToReport(report, res)
	}

	c.log.Info().
		Str("tenant_id", tenantID).
		Str("actor_id", actorID).
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("duplicates", report.Duplicates).
		Int("rejected", report.Rejected).
		Msg("lote de sincronización procesado")
	return report, nil
}

func (c *SyncCoordinator) processItem(ctx context.Context, tenantID, actorID, role string, item dto.SyncMovementItem) dto.SyncItemResult {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return rejectedItem(item.ID, dto.SyncReasonValidation, domain.NewValidationError("REQUIRED", "id", "el id del cliente es obligatorio"))
	}

	fields := inventory.IntegrityFields{
		ClientID:        id,
		ProductID:       item.ProductID,
		TypeCode:        item.Type,
		Quantity:        item.Quantity,
		ClientTimestamp: item.ClientTimestamp,
		Reason:          item.Reason,
		Notes:           item.Notes,
	}
	if !inventory.VerifyIntegrity(fields, item.IntegrityHash) {
		c.log.Warn().
			Str("tenant_id", tenantID).
			Str("client_id", id).
			Str("product_id", item.ProductID).
			Str("actor_id", actorID).
			Str("integrity_hash", item.IntegrityHash).
			Msg("movimiento rechazado: hash de integridad no coincide")
		return rejectedItem(id, dto.SyncReasonIntegrity, domain.ErrIntegrityMismatch)
	}

	existing, err := c.pipeline.store.GetByClientID(ctx, tenantID, id)
	if err != nil {
		return rejectedItem(id, dto.SyncReasonInternal, err)
	}
	if existing != nil {
		if existing.IntegrityHash == strings.ToLower(strings.TrimSpace(item.IntegrityHash)) {
			return dto.SyncItemResult{
				ID: id, Status: dto.SyncItemDuplicate, MovementID: existing.ID,
				PendingApproval: existing.ApprovalStatus == entity.ApprovalPending,
			}
		}
		return rejectedItem(id, dto.SyncReasonConflict,
			fmt.Errorf("%w: client id reutilizado con contenido distinto", domain.ErrDuplicate))
	}

	cmd := MovementCommand{
		TenantID:        tenantID,
		ActorID:         actorID,
		Role:            role,
		ClientID:        id,
		ProductID:       item.ProductID,
		TypeCode:        item.Type,
		Quantity:        item.Quantity,
		UnitCost:        decimal.Zero,
		LotID:           item.LotID,
		LotNumber:       item.LotNumber,
		LotExpiry:       item.LotExpiry,
		SupplierID:      item.SupplierID,
		InvoiceNumber:   item.InvoiceNumber,
		Reason:          item.Reason,
		Notes:           item.Notes,
		ClientTimestamp: item.ClientTimestamp,
		IntegrityHash:   item.IntegrityHash,
	}
	if item.UnitCost != nil {
		cmd.UnitCost = *item.UnitCost
	}

	res, err := c.pipeline.execute(ctx, cmd)
	if err != nil {
		return rejectionFor(id, err)
	}
	status := dto.SyncItemApplied
	if res.Duplicate {
		status = dto.SyncItemDuplicate
	}
	after := res.QuantityAfter
	return dto.SyncItemResult{
		ID:              id,
		Status:          status,
		MovementID:      res.Record.ID,
		PendingApproval: res.PendingApproval,
		QuantityAfter:   &after,
		Warnings:        res.Warnings,
	}
}

// rejectionFor clasifica el error del pipeline en un motivo de rechazo.
func rejectionFor(id string, err error) dto.SyncItemResult {
	var ve *domain.ValidationError
	var pe *domain.PolicyError
	switch {
	case errors.As(err, &ve):
		r := rejectedItem(id, dto.SyncReasonValidation, err)
		r.Violations = ve.Violations
		return r
	case errors.As(err, &pe):
		r := rejectedItem(id, dto.SyncReasonPolicy, err)
		r.Violations = pe.Violations
		return r
	case errors.Is(err, domain.ErrInsufficientStock):
		return rejectedItem(id, dto.SyncReasonInsufficientStock, err)
	case errors.Is(err, domain.ErrInsufficientLotStock):
		return rejectedItem(id, dto.SyncReasonInsufficientLots, err)
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrDuplicate):
		return rejectedItem(id, dto.SyncReasonConflict, err)
	case errors.Is(err, domain.ErrNotFound):
		return rejectedItem(id, dto.SyncReasonNotFound, err)
	case errors.Is(err, domain.ErrForbidden):
		return rejectedItem(id, dto.SyncReasonForbidden, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return rejectedItem(id, dto.SyncReasonCancelled, err)
	default:
		return rejectedItem(id, dto.SyncReasonInternal, err)
	}
}

func rejectedItem(id, reason string, err error) dto.SyncItemResult {
	return dto.SyncItemResult{ID: id, Status: dto.SyncItemRejected, Reason: reason, Message: err.Error()}
}

func addToReport(report *dto.SyncReport, res dto.SyncItemResult) {
	report.Processed++
	switch res.Status {
	case dto.SyncItemApplied:
		report.Succeeded++
	case dto.SyncItemDuplicate:
		report.Duplicates++
	case dto.SyncItemRejected:
		report.Rejected++
		if res.Reason == dto.SyncReasonConflict {
			report.Conflicts++
		}
	}
	report.Details = append(report.Details, res)
}
