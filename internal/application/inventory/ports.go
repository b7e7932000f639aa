package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// PolicyCache caché de la política fusionada por tenant (Redis, memoria o noop).
type PolicyCache interface {
	Get(ctx context.Context, tenantID string) (*inventory.PolicySet, bool, error)
	Set(ctx context.Context, set *inventory.PolicySet, ttl time.Duration) error
	Delete(ctx context.Context, tenantID string) error
}

// KardexPDFGenerator genera la ficha kardex de un producto.
type KardexPDFGenerator interface {
	GenerateKardexPDF(ctx context.Context, product *entity.Product, agg *entity.StockAggregate, records []entity.MovementRecord) ([]byte, error)
}
