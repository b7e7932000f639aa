package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
)

// SyncHandler recibe los lotes de movimientos de los PDV.
type SyncHandler struct {
	coordinator *appinv.SyncCoordinator
	log         zerolog.Logger
}

// NewSyncHandler construye el handler.
func NewSyncHandler(coordinator *appinv.SyncCoordinator, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{coordinator: coordinator, log: log}
}

// Sync godoc
// @Summary      Sincronizar movimentações offline
// @Description  Procesa el lote en orden de clientTimestamp. Un ítem rechazado no aborta el resto.
// @Tags         estoque
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  []dto.SyncMovementItem  true  "Movimientos del PDV"
// @Success      200  {object}  dto.SyncReport
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/estoque/sincronizar [post]
func (h *SyncHandler) Sync(c *fiber.Ctx) error {
	tenantID, userID, role, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var items []dto.SyncMovementItem
	if err := c.BodyParser(&items); err != nil {
		return badBody(c)
	}
	report, err := h.coordinator.SyncBatch(c.UserContext(), tenantID, userID, role, items)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(report)
}
