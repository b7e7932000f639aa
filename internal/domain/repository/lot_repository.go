package repository

import (
	"context"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// LotRepository puerto de persistencia para lotes. El saldo de un lote solo
// cambia dentro de LedgerStore.Append; aquí no hay escritura de Remaining.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, tenantID, lotID string) (*entity.Lot, error)
	GetByNumber(ctx context.Context, tenantID, productID, lotNumber string) (*entity.Lot, error)
	ListByProduct(ctx context.Context, tenantID, productID string) ([]*entity.Lot, error)
}
