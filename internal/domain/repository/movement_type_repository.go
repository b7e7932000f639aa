package repository

import (
	"context"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// MovementTypeRepository puerto de persistencia de la política por tipo de movimiento.
// ListForTenant devuelve los defaults globales y las redefiniciones del tenant.
type MovementTypeRepository interface {
	ListForTenant(ctx context.Context, tenantID string) ([]entity.MovementType, error)
	// Upsert crea o reemplaza la definición del tenant e incrementa su versión.
	Upsert(ctx context.Context, mt *entity.MovementType) error
}
