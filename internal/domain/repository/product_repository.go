package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// ProductRepository puerto del catálogo de productos.
// Upsert no toca estoque_atual; UpdateCachedQuantity la refresca desde el ledger.
type ProductRepository interface {
	Upsert(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, tenantID, productID string) (*entity.Product, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error)
	UpdateCachedQuantity(ctx context.Context, tenantID, productID string, qty decimal.Decimal) error
}
