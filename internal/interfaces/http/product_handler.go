package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
)

// ProductHandler catálogo de productos del tenant.
type ProductHandler struct {
	uc  *appinv.ProductUseCase
	log zerolog.Logger
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *appinv.ProductUseCase, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{uc: uc, log: log}
}

// Upsert godoc
// @Summary      Crear o actualizar producto
// @Tags         produtos
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        productId  path  string                    true  "ID del producto"
// @Param        body       body  dto.UpsertProductRequest  true  "sku, name, banderas y mínimo"
// @Success      200  {object}  dto.ProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/estoque/produtos/{productId} [put]
func (h *ProductHandler) Upsert(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.UpsertProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Upsert(c.UserContext(), tenantID, c.Params("productId"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         produtos
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/estoque/produtos/{productId} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.uc.GetByID(c.UserContext(), tenantID, c.Params("productId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar productos
// @Tags         produtos
// @Security     Bearer
// @Produce      json
// @Param        page  query  int  false  "Página (1..n)"
// @Param        size  query  int  false  "Tamaño (máx 100)"
// @Success      200  {object}  dto.ProductListResponse
// @Router       /api/estoque/produtos [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	page := dto.PageRequest{Page: c.QueryInt("page", 1), Size: c.QueryInt("size", 20)}
	out, err := h.uc.List(c.UserContext(), tenantID, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
