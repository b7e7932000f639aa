package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// LotUseCase alta y consulta de lotes.
type LotUseCase struct {
	lots     repository.LotRepository
	products repository.ProductRepository
	now      func() time.Time
}

// NewLotUseCase construye el caso de uso de lotes.
func NewLotUseCase(lots repository.LotRepository, products repository.ProductRepository) *LotUseCase {
	return &LotUseCase{lots: lots, products: products, now: time.Now}
}

// Register da de alta un lote vacío. Número repetido para el mismo producto
// devuelve ErrDuplicate.
func (uc *LotUseCase) Register(ctx context.Context, tenantID string, in dto.RegisterLotRequest) (*dto.LotDTO, error) {
	number := strings.TrimSpace(in.LotNumber)
	if strings.TrimSpace(in.ProductID) == "" || number == "" {
		return nil, domain.NewValidationError("REQUIRED", "productId,lotNumber", "producto y número de lote son obligatorios")
	}
	product, err := uc.products.GetByID(ctx, tenantID, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("obtener producto: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, in.ProductID)
	}

	lot := &entity.Lot{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ProductID:  in.ProductID,
		LotNumber:  number,
		ExpiryDate: in.ExpiryDate,
		Remaining:  decimal.Zero,
		CreatedAt:  uc.now().UTC(),
	}
	if err := uc.lots.Create(ctx, lot); err != nil {
		return nil, err
	}
	out := toLotDTO(lot, uc.now())
	return &out, nil
}

// List lotes del producto en orden FEFO.
func (uc *LotUseCase) List(ctx context.Context, tenantID, productID string) ([]dto.LotDTO, error) {
	ptrs, err := uc.lots.ListByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("listar lotes: %w", err)
	}
	lots := make([]entity.Lot, 0, len(ptrs))
	for _, l := range ptrs {
		lots = append(lots, *l)
	}
	inventory.SortFEFO(lots)

	now := uc.now()
	out := make([]dto.LotDTO, 0, len(lots))
	for i := range lots {
		out = append(out, toLotDTO(&lots[i], now))
	}
	return out, nil
}

func toLotDTO(l *entity.Lot, now time.Time) dto.LotDTO {
	return dto.LotDTO{
		ID:         l.ID,
		ProductID:  l.ProductID,
		LotNumber:  l.LotNumber,
		ExpiryDate: l.ExpiryDate,
		Remaining:  l.Remaining,
		Expired:    l.Expired(now),
		CreatedAt:  l.CreatedAt,
	}
}
