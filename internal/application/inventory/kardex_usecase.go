package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// KardexUseCase genera la ficha kardex en PDF de un producto a partir del ledger.
type KardexUseCase struct {
	store    repository.LedgerStore
	products repository.ProductRepository
	pdf      KardexPDFGenerator
}

// NewKardexUseCase construye el caso de uso.
func NewKardexUseCase(store repository.LedgerStore, products repository.ProductRepository, pdf KardexPDFGenerator) *KardexUseCase {
	return &KardexUseCase{store: store, products: products, pdf: pdf}
}

// GenerateKardex devuelve los bytes del PDF.
func (uc *KardexUseCase) GenerateKardex(ctx context.Context, tenantID, productID string) ([]byte, error) {
	product, err := uc.products.GetByID(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	agg, err := uc.store.GetAggregate(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("obtener agregado: %w", err)
	}
	records, err := uc.store.Replay(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("leer ledger: %w", err)
	}
	return uc.pdf.GenerateKardexPDF(ctx, product, agg, inventory.SortForReplay(records))
}
