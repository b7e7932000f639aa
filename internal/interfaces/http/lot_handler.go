package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
)

// LotHandler alta y consulta de lotes.
type LotHandler struct {
	uc  *appinv.LotUseCase
	log zerolog.Logger
}

// NewLotHandler construye el handler.
func NewLotHandler(uc *appinv.LotUseCase, log zerolog.Logger) *LotHandler {
	return &LotHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Registrar lote
// @Tags         estoque
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterLotRequest  true  "productId, lotNumber, expiryDate"
// @Success      201  {object}  dto.LotDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/estoque/lotes [post]
func (h *LotHandler) Create(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.RegisterLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lot, err := h.uc.Register(c.UserContext(), tenantID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lot)
}

// List godoc
// @Summary      Lotes de un producto en orden FEFO
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Param        productId  query  string  true  "Producto"
// @Success      200  {array}  dto.LotDTO
// @Router       /api/estoque/lotes [get]
func (h *LotHandler) List(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	productID := c.Query("productId")
	if productID == "" {
		return writeError(c, h.log, domain.NewValidationError("REQUIRED", "productId", "productId es obligatorio"))
	}
	list, err := h.uc.List(c.UserContext(), tenantID, productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}
