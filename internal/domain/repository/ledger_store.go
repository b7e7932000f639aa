package repository

import (
	"context"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// MovementFilter filtros del histórico. Campos vacíos no filtran.
type MovementFilter struct {
	ProductID string
	TypeCode  string
	ActorID   string
	From      *time.Time
	To        *time.Time
}

// Page paginación por número de página (1..n) y tamaño.
type Page struct {
	Number int
	Size   int
}

// Offset desplazamiento equivalente.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// LedgerStore persistencia append-only del ledger con concurrencia optimista.
//
// Append es la unidad de trabajo: en una sola transacción compara la versión
// del agregado con expectedVersion, aplica la proyección, inserta el registro,
// ajusta los lotes de las asignaciones e incrementa la versión. Si algo falla
// no queda escritura parcial.
//
// Los Get* devuelven (nil, nil) cuando el registro no existe, salvo
// GetAggregate que devuelve un agregado vacío en versión 0.
type LedgerStore interface {
	Append(ctx context.Context, rec *entity.MovementRecord, expectedVersion int64) (*entity.MovementRecord, int64, error)
	// Stage persiste un registro pendiente de aprobación sin tocar el agregado.
	Stage(ctx context.Context, rec *entity.MovementRecord) (*entity.MovementRecord, error)
	// Approve aplica un registro pendiente con la misma semántica que Append.
	Approve(ctx context.Context, tenantID, movementID, approverID string, allocations []entity.LotAllocation, expectedVersion int64, at time.Time) (*entity.MovementRecord, int64, error)
	Reject(ctx context.Context, tenantID, movementID, approverID string, at time.Time) (*entity.MovementRecord, error)

	GetAggregate(ctx context.Context, tenantID, productID string) (*entity.StockAggregate, error)
	ListAggregates(ctx context.Context, tenantID string) ([]entity.StockAggregate, error)
	// RepairAggregate sobrescribe el agregado con el resultado de un replay.
	RepairAggregate(ctx context.Context, agg entity.StockAggregate, expectedVersion int64) (int64, error)

	GetByID(ctx context.Context, tenantID, movementID string) (*entity.MovementRecord, error)
	GetByClientID(ctx context.Context, tenantID, clientID string) (*entity.MovementRecord, error)
	Range(ctx context.Context, tenantID string, filter MovementFilter, page Page) ([]entity.MovementRecord, int, error)
	// Replay devuelve los registros que afectan al estoque en orden de aplicación.
	Replay(ctx context.Context, tenantID, productID string) ([]entity.MovementRecord, error)
}
