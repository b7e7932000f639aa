package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// maxAppendAttempts el único reintento permitido ante VersionConflict.
const maxAppendAttempts = 2

// quantityScale decimales que guardan las columnas NUMERIC(18,4).
const quantityScale = 4

// MovementCommand movimiento solicitado por un PDV (online o desde un lote de sincronización).
type MovementCommand struct {
	TenantID        string
	ActorID         string
	Role            string
	ClientID        string
	ProductID       string
	TypeCode        string
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	LotID           string
	LotNumber       string
	LotExpiry       *time.Time
	SupplierID      string
	InvoiceNumber   string
	Reason          string
	Notes           string
	ClientTimestamp time.Time
	IntegrityHash   string
	AllowExpired    bool
}

// MovementResult registro resultante con la cantidad antes y después.
type MovementResult struct {
	Record          *entity.MovementRecord
	QuantityBefore  decimal.Decimal
	QuantityAfter   decimal.Decimal
	PendingApproval bool
	Duplicate       bool
	Warnings        []inventory.LotExpiredWarning
}

// pipeline política → FEFO → LedgerStore.Append. Lo comparten el registro
// online, la aprobación y la sincronización.
type pipeline struct {
	store    repository.LedgerStore
	lots     repository.LotRepository
	products repository.ProductRepository
	policies *PolicyProvider
	now      func() time.Time
	log      zerolog.Logger
}

func (p *pipeline) execute(ctx context.Context, cmd MovementCommand) (*MovementResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.TenantID) == "" || strings.TrimSpace(cmd.ProductID) == "" || strings.TrimSpace(cmd.TypeCode) == "" {
		return nil, &domain.ValidationError{Violations: []domain.Violation{
			{Code: "REQUIRED", Field: "productId,type", Message: "producto y tipo son obligatorios"},
		}}
	}
	if exceedsScale(cmd.Quantity) || exceedsScale(cmd.UnitCost) {
		return nil, domain.NewValidationError("SCALE", "quantity,unitCost", "cantidad y costo admiten hasta 4 decimales")
	}
	if cmd.AllowExpired && !entity.CanOverrideExpiredLots(cmd.Role) {
		return nil, fmt.Errorf("%w: solo admin o farmacéutico autoriza lotes vencidos", domain.ErrForbidden)
	}

	rec := p.newRecord(cmd)
	// un client id ya registrado se resuelve antes de mirar saldo o política
	if strings.TrimSpace(cmd.ClientID) != "" {
		existing, err := p.store.GetByClientID(ctx, rec.TenantID, rec.ClientID)
		if err != nil {
			return nil, fmt.Errorf("buscar client id: %w", err)
		}
		if existing != nil {
			return p.duplicateOf(existing, rec)
		}
	}

	product, err := p.products.GetByID(ctx, cmd.TenantID, cmd.ProductID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, cmd.ProductID)
	}

	set, err := p.policies.Get(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}

	lot, isNew, err := p.resolveLot(ctx, cmd, rec)
	if err != nil {
		return nil, err
	}

	decision, violations := set.Validate(rec, product, lot)
	if len(violations) > 0 {
		return nil, inventory.ViolationsError(violations)
	}
	rec.TypeCode = decision.Type.Code
	if isNew {
		if lot, err = p.createLot(ctx, lot); err != nil {
			return nil, err
		}
		rec.LotID = lot.ID
	}

	if decision.RequiresApproval {
		return p.stage(ctx, rec)
	}
	return withConflictRetry(ctx, p.log, func() (*MovementResult, error) {
		return p.tryAppend(ctx, rec, product, cmd.AllowExpired)
	})
}

func (p *pipeline) newRecord(cmd MovementCommand) *entity.MovementRecord {
	now := p.now().UTC()
	rec := &entity.MovementRecord{
		ID:              uuid.NewString(),
		TenantID:        cmd.TenantID,
		ProductID:       cmd.ProductID,
		LotID:           cmd.LotID,
		TypeCode:        strings.ToUpper(strings.TrimSpace(cmd.TypeCode)),
		Quantity:        cmd.Quantity,
		UnitCost:        cmd.UnitCost,
		ClientID:        strings.TrimSpace(cmd.ClientID),
		ClientTimestamp: cmd.ClientTimestamp.UTC(),
		ServerTimestamp: now,
		IntegrityHash:   strings.ToLower(strings.TrimSpace(cmd.IntegrityHash)),
		SyncStatus:      entity.SyncPending,
		ApprovalStatus:  entity.ApprovalNotRequired,
		SupplierID:      strings.TrimSpace(cmd.SupplierID),
		InvoiceNumber:   strings.TrimSpace(cmd.InvoiceNumber),
		Reason:          strings.TrimSpace(cmd.Reason),
		Notes:           strings.TrimSpace(cmd.Notes),
		ActorID:         cmd.ActorID,
		Lifecycle:       entity.LifecycleActive,
	}
	if rec.ClientID == "" {
		rec.ClientID = rec.ID
	}
	if cmd.ClientTimestamp.IsZero() {
		rec.ClientTimestamp = now
	}
	if rec.IntegrityHash == "" {
		rec.IntegrityHash = inventory.ComputeIntegrityHash(integrityFieldsOf(rec))
	}
	return rec
}

// resolveLot busca el lote indicado por id o, en entradas, por número. Un
// número desconocido devuelve un lote nuevo sin persistir (isNew).
func (p *pipeline) resolveLot(ctx context.Context, cmd MovementCommand, rec *entity.MovementRecord) (lot *entity.Lot, isNew bool, err error) {
	if cmd.LotID != "" {
		lot, err = p.lots.GetByID(ctx, cmd.TenantID, cmd.LotID)
		if err != nil {
			return nil, false, fmt.Errorf("obtener lote: %w", err)
		}
		return lot, false, nil
	}
	number := strings.TrimSpace(cmd.LotNumber)
	if number == "" {
		return nil, false, nil
	}
	lot, err = p.lots.GetByNumber(ctx, cmd.TenantID, cmd.ProductID, number)
	if err != nil {
		return nil, false, fmt.Errorf("obtener lote por número: %w", err)
	}
	if lot == nil && cmd.Quantity.IsPositive() {
		lot = &entity.Lot{
			ID:         uuid.NewString(),
			TenantID:   cmd.TenantID,
			ProductID:  cmd.ProductID,
			LotNumber:  number,
			ExpiryDate: cmd.LotExpiry,
			Remaining:  decimal.Zero,
			CreatedAt:  p.now().UTC(),
		}
		isNew = true
	}
	if lot != nil {
		rec.LotID = lot.ID
	}
	return lot, isNew, nil
}

// createLot persiste un lote nuevo ya validado; si otro escritor lo creó
// primero devuelve ese.
func (p *pipeline) createLot(ctx context.Context, lot *entity.Lot) (*entity.Lot, error) {
	err := p.lots.Create(ctx, lot)
	if err == nil {
		return lot, nil
	}
	if !errors.Is(err, domain.ErrDuplicate) {
		return nil, fmt.Errorf("crear lote: %w", err)
	}
	existing, err := p.lots.GetByNumber(ctx, lot.TenantID, lot.ProductID, lot.LotNumber)
	if err != nil {
		return nil, fmt.Errorf("obtener lote por número: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, lot.LotNumber)
	}
	return existing, nil
}

func (p *pipeline) stage(ctx context.Context, rec *entity.MovementRecord) (*MovementResult, error) {
	rec.ApprovalStatus = entity.ApprovalPending
	rec.SyncStatus = entity.SyncSynced
	staged, err := p.store.Stage(ctx, rec)
	if errors.Is(err, domain.ErrDuplicate) {
		return p.duplicate(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	agg, err := p.store.GetAggregate(ctx, rec.TenantID, rec.ProductID)
	if err != nil {
		return nil, err
	}
	return &MovementResult{
		Record:          staged,
		QuantityBefore:  agg.Quantity,
		QuantityAfter:   agg.Quantity,
		PendingApproval: true,
	}, nil
}

// tryAppend un intento: lee el agregado, verifica el saldo, asigna lotes y
// hace el append optimista contra la versión leída.
func (p *pipeline) tryAppend(ctx context.Context, rec *entity.MovementRecord, product *entity.Product, allowExpired bool) (*MovementResult, error) {
	agg, err := p.store.GetAggregate(ctx, rec.TenantID, rec.ProductID)
	if err != nil {
		return nil, err
	}
	candidate := *rec
	candidate.Allocations = nil
	candidate.SyncStatus = entity.SyncSynced

	// falla rápido; el store repite la verificación dentro de la transacción
	if _, err := inventory.Apply(*agg, &candidate); err != nil {
		return nil, err
	}
	warnings, err := p.allocate(ctx, &candidate, product, allowExpired)
	if err != nil {
		return nil, err
	}

	committed, _, err := p.store.Append(ctx, &candidate, agg.Version)
	if errors.Is(err, domain.ErrDuplicate) {
		return p.duplicate(ctx, &candidate)
	}
	if err != nil {
		return nil, err
	}
	p.refreshCachedQuantity(ctx, committed)
	return &MovementResult{
		Record:         committed,
		QuantityBefore: committed.QuantityBefore,
		QuantityAfter:  committed.QuantityAfter,
		Warnings:       warnings,
	}, nil
}

// allocate completa rec.Allocations. Las entradas y las salidas con lote
// explícito usan ese lote; las salidas de productos con lote usan FEFO.
func (p *pipeline) allocate(ctx context.Context, rec *entity.MovementRecord, product *entity.Product, allowExpired bool) ([]inventory.LotExpiredWarning, error) {
	if rec.LotID != "" {
		lot, err := p.lots.GetByID(ctx, rec.TenantID, rec.LotID)
		if err != nil {
			return nil, fmt.Errorf("obtener lote: %w", err)
		}
		if lot == nil {
			return nil, &domain.PolicyError{Violations: []domain.Violation{
				{Code: inventory.ViolationLotNotFound, Field: "lotId", Message: "lote no encontrado para el producto"},
			}}
		}
		var warnings []inventory.LotExpiredWarning
		if rec.IsOutbound() {
			if lot.Expired(p.now()) {
				if !allowExpired {
					return nil, &domain.PolicyError{Violations: []domain.Violation{
						{Code: inventory.ViolationLotExpired, Field: "lotId", Message: "lote " + lot.LotNumber + " vencido"},
					}}
				}
				warnings = append(warnings, inventory.LotExpiredWarning{
					LotID: lot.ID, LotNumber: lot.LotNumber, ExpiryDate: *lot.ExpiryDate, Remaining: lot.Remaining, Used: true,
				})
			}
			if lot.Remaining.LessThan(rec.Quantity.Neg()) {
				return nil, &domain.InsufficientLotStockError{ProductID: rec.ProductID, Available: lot.Remaining, Requested: rec.Quantity.Neg()}
			}
		}
		rec.Allocations = []entity.LotAllocation{{LotID: lot.ID, LotNumber: lot.LotNumber, Delta: rec.Quantity}}
		return warnings, nil
	}

	if !product.LotTracked || !rec.IsOutbound() {
		return nil, nil
	}
	ptrs, err := p.lots.ListByProduct(ctx, rec.TenantID, rec.ProductID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes: %w", err)
	}
	lots := make([]entity.Lot, 0, len(ptrs))
	for _, l := range ptrs {
		lots = append(lots, *l)
	}
	sel, err := inventory.SelectLots(rec.ProductID, lots, rec.Quantity.Neg(), p.now(), allowExpired)
	if err != nil {
		return sel.Warnings, err
	}
	rec.Allocations = sel.Allocations
	return sel.Warnings, nil
}

// duplicate resuelve un choque de clave de idempotencia: mismo contenido es un
// no-op; contenido distinto con el mismo id es un conflicto.
func (p *pipeline) duplicate(ctx context.Context, rec *entity.MovementRecord) (*MovementResult, error) {
	existing, err := p.store.GetByClientID(ctx, rec.TenantID, rec.ClientID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrDuplicate
	}
	return p.duplicateOf(existing, rec)
}

func (p *pipeline) duplicateOf(existing, rec *entity.MovementRecord) (*MovementResult, error) {
	if !sameContent(existing, rec) {
		return nil, fmt.Errorf("%w: client id %s reutilizado con contenido distinto", domain.ErrDuplicate, rec.ClientID)
	}
	return &MovementResult{
		Record:          existing,
		QuantityBefore:  existing.QuantityBefore,
		QuantityAfter:   existing.QuantityAfter,
		PendingApproval: existing.ApprovalStatus == entity.ApprovalPending,
		Duplicate:       true,
	}, nil
}

// refreshCachedQuantity mantiene estoque_atual al día; si falla, la
// reconciliación lo corrige.
func (p *pipeline) refreshCachedQuantity(ctx context.Context, rec *entity.MovementRecord) {
	if err := p.products.UpdateCachedQuantity(ctx, rec.TenantID, rec.ProductID, rec.QuantityAfter); err != nil {
		p.log.Warn().Err(err).
			Str("tenant_id", rec.TenantID).
			Str("product_id", rec.ProductID).
			Msg("no se pudo refrescar estoque_atual")
	}
}

// withConflictRetry ejecuta fn y la repite una sola vez si devuelve VersionConflict.
func withConflictRetry(ctx context.Context, log zerolog.Logger, fn func() (*MovementResult, error)) (*MovementResult, error) {
	var err error
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		var res *MovementResult
		res, err = fn()
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Int("attempt", attempt).Msg("conflicto de versión del agregado")
	}
	return nil, err
}

// sameContent mismo hash o, para reenvíos online sin timestamp del cliente,
// mismos campos de negocio.
func sameContent(a, b *entity.MovementRecord) bool {
	if a.IntegrityHash == b.IntegrityHash {
		return true
	}
	return a.ProductID == b.ProductID &&
		a.TypeCode == b.TypeCode &&
		a.Quantity.Equal(b.Quantity) &&
		a.Reason == b.Reason &&
		a.Notes == b.Notes
}

func exceedsScale(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(quantityScale))
}

func integrityFieldsOf(rec *entity.MovementRecord) inventory.IntegrityFields {
	return inventory.IntegrityFields{
		ClientID:        rec.ClientID,
		ProductID:       rec.ProductID,
		TypeCode:        rec.TypeCode,
		Quantity:        rec.Quantity,
		ClientTimestamp: rec.ClientTimestamp,
		Reason:          rec.Reason,
		Notes:           rec.Notes,
	}
}
