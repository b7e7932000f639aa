package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// ProductUseCase carga y consulta del catálogo que usan las reglas del estoque.
// Cost y estoque_atual nunca se ajustan a mano: el saldo viene del ledger.
type ProductUseCase struct {
	repo   repository.ProductRepository
	ledger repository.LedgerStore
	now    func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, ledger repository.LedgerStore) *ProductUseCase {
	return &ProductUseCase{repo: repo, ledger: ledger, now: time.Now}
}

// Upsert crea o actualiza el producto productID del tenant.
func (uc *ProductUseCase) Upsert(ctx context.Context, tenantID, productID string, in dto.UpsertProductRequest) (*dto.ProductResponse, error) {
	productID = strings.TrimSpace(productID)
	var vs []domain.Violation
	if productID == "" {
		vs = append(vs, domain.Violation{Code: "REQUIRED", Field: "productId", Message: "el id del producto es obligatorio"})
	}
	if strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.Name) == "" {
		vs = append(vs, domain.Violation{Code: "REQUIRED", Field: "sku,name", Message: "sku y name son obligatorios"})
	}
	if in.MinStock.IsNegative() || in.Cost.IsNegative() {
		vs = append(vs, domain.Violation{Code: "NON_NEGATIVE", Field: "minStock,cost", Message: "mínimo y costo no pueden ser negativos"})
	}
	if len(vs) > 0 {
		return nil, &domain.ValidationError{Violations: vs}
	}

	if err := uc.checkLotTrackingChange(ctx, tenantID, productID, in.LotTracked); err != nil {
		return nil, err
	}

	p := &entity.Product{
		ID:         productID,
		TenantID:   tenantID,
		SKU:        strings.TrimSpace(in.SKU),
		Name:       strings.TrimSpace(in.Name),
		Controlled: in.Controlled,
		LotTracked: in.LotTracked,
		MinStock:   in.MinStock,
		Cost:       in.Cost,
		UpdatedAt:  uc.now().UTC(),
	}
	if err := uc.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return uc.GetByID(ctx, tenantID, productID)
}

// checkLotTrackingChange el rastreo de lote solo cambia con saldo cero: la suma
// de los lotes tiene que seguir igual al agregado.
func (uc *ProductUseCase) checkLotTrackingChange(ctx context.Context, tenantID, productID string, lotTracked bool) error {
	current, err := uc.repo.GetByID(ctx, tenantID, productID)
	if err != nil {
		return fmt.Errorf("obtener producto: %w", err)
	}
	if current == nil || current.LotTracked == lotTracked {
		return nil
	}
	agg, err := uc.ledger.GetAggregate(ctx, tenantID, productID)
	if err != nil {
		return fmt.Errorf("obtener agregado: %w", err)
	}
	if !agg.Quantity.IsZero() {
		return domain.NewValidationError("LOT_TRACKING_WITH_STOCK", "lotTracked",
			"el rastreo de lote solo puede cambiar con estoque cero")
	}
	return nil
}

// GetByID devuelve ErrNotFound si el producto no existe en el tenant.
func (uc *ProductUseCase) GetByID(ctx context.Context, tenantID, productID string) (*dto.ProductResponse, error) {
	p, err := uc.repo.GetByID(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	out := toProductResponse(p)
	return &out, nil
}

// List lista productos del tenant por SKU.
func (uc *ProductUseCase) List(ctx context.Context, tenantID string, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByTenant(ctx, tenantID, page.Size, (page.Page-1)*page.Size)
	if err != nil {
		return nil, fmt.Errorf("listar productos: %w", err)
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Page: page.Page, Size: page.Size, Total: len(items)},
	}, nil
}

func toProductResponse(p *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Controlled:     p.Controlled,
		LotTracked:     p.LotTracked,
		MinStock:       p.MinStock,
		Cost:           p.Cost,
		CachedQuantity: p.CachedQuantity,
		UpdatedAt:      p.UpdatedAt,
	}
}
