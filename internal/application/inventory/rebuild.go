package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// RebuildUseCase reconstruye agregados reproduciendo el ledger y corrige los
// que se hayan desviado. El ledger es la fuente de verdad.
type RebuildUseCase struct {
	store    repository.LedgerStore
	lots     repository.LotRepository
	products repository.ProductRepository
	workers  int
	log      zerolog.Logger
}

// NewRebuildUseCase workers limita la reconciliación concurrente (mínimo 1).
func NewRebuildUseCase(
	store repository.LedgerStore,
	lots repository.LotRepository,
	products repository.ProductRepository,
	workers int,
	log zerolog.Logger,
) *RebuildUseCase {
	if workers < 1 {
		workers = 1
	}
	return &RebuildUseCase{store: store, lots: lots, products: products, workers: workers, log: log}
}

// Rebuild reproduce el ledger de un producto y, si el agregado guardado
// difiere, lo reemplaza. Informa también los lotes cuyo saldo no coincide con
// las asignaciones registradas.
func (uc *RebuildUseCase) Rebuild(ctx context.Context, tenantID, productID string) (*dto.RebuildResponse, error) {
	stored, err := uc.store.GetAggregate(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("obtener agregado: %w", err)
	}
	records, err := uc.store.Replay(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("leer ledger: %w", err)
	}
	rebuilt, err := inventory.Replay(tenantID, productID, records)
	if err != nil {
		return nil, fmt.Errorf("replay del producto %s: %w", productID, err)
	}

	applied := 0
	for i := range records {
		if records[i].AffectsStock() {
			applied++
		}
	}

	resp := &dto.RebuildResponse{
		ProductID:        productID,
		StoredQuantity:   stored.Quantity,
		RebuiltQuantity:  rebuilt.Quantity,
		RebuiltCost:      rebuilt.AverageCost,
		Version:          stored.Version,
		MovementsApplied: applied,
	}

	if !stored.SameState(rebuilt) {
		version, err := uc.store.RepairAggregate(ctx, rebuilt, stored.Version)
		if err != nil {
			return nil, fmt.Errorf("reparar agregado: %w", err)
		}
		resp.Repaired = true
		resp.Version = version
		uc.log.Warn().
			Str("tenant_id", tenantID).
			Str("product_id", productID).
			Str("stored_quantity", stored.Quantity.String()).
			Str("rebuilt_quantity", rebuilt.Quantity.String()).
			Msg("agregado desviado del ledger, reparado")
	}

	drifts, err := uc.lotDrifts(ctx, tenantID, productID, records)
	if err != nil {
		return nil, err
	}
	resp.LotDrifts = drifts

	if err := uc.products.UpdateCachedQuantity(ctx, tenantID, productID, rebuilt.Quantity); err != nil {
		uc.log.Warn().Err(err).Str("tenant_id", tenantID).Str("product_id", productID).Msg("no se pudo refrescar estoque_atual")
	}
	return resp, nil
}

func (uc *RebuildUseCase) lotDrifts(ctx context.Context, tenantID, productID string, records []entity.MovementRecord) ([]dto.LotDriftDTO, error) {
	lots, err := uc.lots.ListByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes: %w", err)
	}
	expected := inventory.ReplayLots(records)
	var drifts []dto.LotDriftDTO
	for _, l := range lots {
		want := expected[l.ID]
		if !l.Remaining.Equal(want) {
			drifts = append(drifts, dto.LotDriftDTO{LotID: l.ID, LotNumber: l.LotNumber, Stored: l.Remaining, Expected: want})
		}
	}
	return drifts, nil
}

// ReconcileTenant ejecuta Rebuild sobre todos los agregados del tenant con
// concurrencia acotada. El primer error cancela el resto.
func (uc *RebuildUseCase) ReconcileTenant(ctx context.Context, tenantID string) (*dto.ReconcileResponse, error) {
	aggs, err := uc.store.ListAggregates(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listar agregados: %w", err)
	}

	results := make([]dto.RebuildResponse, len(aggs))
	var mu sync.Mutex
	repaired := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i := range aggs {
		i := i
		g.Go(func() error {
			res, err := uc.Rebuild(gctx, tenantID, aggs[i].ProductID)
			if err != nil {
				return err
			}
			results[i] = *res
			if res.Repaired {
				mu.Lock()
				repaired++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("tenant_id", tenantID).
		Int("checked", len(aggs)).
		Int("repaired", repaired).
		Msg("reconciliación terminada")
	return &dto.ReconcileResponse{Checked: len(aggs), Repaired: repaired, Items: results}, nil
}
