package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// summaryBatch productos leídos por página del catálogo.
const summaryBatch = 500

// SummaryUseCase resumen de estoque del tenant. La cantidad sale del agregado
// (no de estoque_atual) para que el resumen coincida con el ledger.
type SummaryUseCase struct {
	store    repository.LedgerStore
	products repository.ProductRepository
}

// NewSummaryUseCase construye el caso de uso de resumen.
func NewSummaryUseCase(store repository.LedgerStore, products repository.ProductRepository) *SummaryUseCase {
	return &SummaryUseCase{store: store, products: products}
}

// Summary clasifica cada producto en ZERADO, BAIXO o NORMAL. status vacío
// devuelve todos; los totales siempre cuentan el catálogo completo.
func (uc *SummaryUseCase) Summary(ctx context.Context, tenantID, status string) (*dto.StockSummaryResponse, error) {
	aggs, err := uc.store.ListAggregates(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listar agregados: %w", err)
	}
	byProduct := make(map[string]entity.StockAggregate, len(aggs))
	for _, a := range aggs {
		byProduct[a.ProductID] = a
	}

	resp := &dto.StockSummaryResponse{Items: []dto.StockSummaryDTO{}}
	for offset := 0; ; offset += summaryBatch {
		products, err := uc.products.ListByTenant(ctx, tenantID, summaryBatch, offset)
		if err != nil {
			return nil, fmt.Errorf("listar productos: %w", err)
		}
		for _, p := range products {
			agg, ok := byProduct[p.ID]
			if !ok {
				agg = entity.NewStockAggregate(tenantID, p.ID)
			}
			item := dto.StockSummaryDTO{
				ProductID:   p.ID,
				SKU:         p.SKU,
				Name:        p.Name,
				Quantity:    agg.Quantity,
				MinStock:    p.MinStock,
				AverageCost: agg.AverageCost,
				Status:      inventory.ClassifyStock(agg.Quantity, p.MinStock),
				Version:     agg.Version,
			}
			if !agg.LastMovementAt.IsZero() {
				at := agg.LastMovementAt
				item.LastMovementAt = &at
			}

			resp.Total++
			switch item.Status {
			case inventory.StatusZerado:
				resp.Zerado++
			case inventory.StatusBaixo:
				resp.Baixo++
			default:
				resp.Normal++
			}
			if status == "" || status == item.Status {
				resp.Items = append(resp.Items, item)
			}
		}
		if len(products) < summaryBatch {
			break
		}
	}

	// Primero lo más urgente: ZERADO, BAIXO, NORMAL; dentro de cada grupo el
	// mayor déficit frente al mínimo.
	rank := map[string]int{inventory.StatusZerado: 0, inventory.StatusBaixo: 1, inventory.StatusNormal: 2}
	sort.SliceStable(resp.Items, func(i, j int) bool {
		a, b := resp.Items[i], resp.Items[j]
		if rank[a.Status] != rank[b.Status] {
			return rank[a.Status] < rank[b.Status]
		}
		defA := a.MinStock.Sub(a.Quantity)
		defB := b.MinStock.Sub(b.Quantity)
		if !defA.Equal(defB) {
			return defA.GreaterThan(defB)
		}
		return a.SKU < b.SKU
	})
	return resp, nil
}
