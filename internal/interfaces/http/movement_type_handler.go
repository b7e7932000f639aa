package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
)

// MovementTypeHandler administración de la política por tipo de movimiento.
type MovementTypeHandler struct {
	uc  *appinv.MovementTypeUseCase
	log zerolog.Logger
}

// NewMovementTypeHandler construye el handler.
func NewMovementTypeHandler(uc *appinv.MovementTypeUseCase, log zerolog.Logger) *MovementTypeHandler {
	return &MovementTypeHandler{uc: uc, log: log}
}

// List godoc
// @Summary      Tipos de movimentação efectivos del tenant
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  entity.MovementType
// @Router       /api/estoque/tipos-movimentacao [get]
func (h *MovementTypeHandler) List(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.uc.List(c.UserContext(), tenantID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// Upsert godoc
// @Summary      Crear o redefinir un tipo para el tenant
// @Tags         estoque
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        code  path  string                   true  "Código"
// @Param        body  body  dto.MovementTypeRequest  true  "Reglas"
// @Success      200  {object}  entity.MovementType
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/estoque/tipos-movimentacao/{code} [put]
func (h *MovementTypeHandler) Upsert(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.MovementTypeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	mt, err := h.uc.Upsert(c.UserContext(), tenantID, c.Params("code"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(mt)
}

// Deactivate godoc
// @Summary      Desactivar un tipo (borrado lógico)
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Param        code  path  string  true  "Código"
// @Success      200  {object}  entity.MovementType
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/estoque/tipos-movimentacao/{code}/desativar [post]
func (h *MovementTypeHandler) Deactivate(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	mt, err := h.uc.Deactivate(c.UserContext(), tenantID, c.Params("code"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(mt)
}
