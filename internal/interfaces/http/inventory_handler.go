package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// InventoryHandler movimientos, aprobación, resumen y reconstrucción del estoque.
type InventoryHandler struct {
	register *appinv.RegisterMovementUseCase
	approval *appinv.ApprovalUseCase
	summary  *appinv.SummaryUseCase
	rebuild  *appinv.RebuildUseCase
	kardex   *appinv.KardexUseCase
	log      zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	register *appinv.RegisterMovementUseCase,
	approval *appinv.ApprovalUseCase,
	summary *appinv.SummaryUseCase,
	rebuild *appinv.RebuildUseCase,
	kardex *appinv.KardexUseCase,
	log zerolog.Logger,
) *InventoryHandler {
	return &InventoryHandler{register: register, approval: approval, summary: summary, rebuild: rebuild, kardex: kardex, log: log}
}

// RegisterMovement godoc
// @Summary      Registrar movimentação de estoque
// @Description  201 aplicado; 202 pendiente de aprobación; 200 si el clientId ya estaba registrado.
// @Tags         estoque
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "productId, type, quantity (con signo), reason"
// @Success      201   {object}  dto.RegisterMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/estoque/movimentacoes [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	tenantID, userID, role, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.register.RegisterMovementFromRequest(c.UserContext(), tenantID, userID, role, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusCreated
	switch {
	case res.Duplicate:
		status = fiber.StatusOK
	case res.PendingApproval:
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(res.ToResponse())
}

// ListMovements godoc
// @Summary      Histórico de movimentações
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Param        productId  query  string  false  "Producto"
// @Param        type       query  string  false  "Código del tipo"
// @Param        actor      query  string  false  "Usuario"
// @Param        from       query  string  false  "RFC3339"
// @Param        to         query  string  false  "RFC3339"
// @Param        page       query  int     false  "Página (1..n)"
// @Param        size       query  int     false  "Tamaño (máx 100)"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/estoque/movimentacoes [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeError(c, h.log, domain.NewValidationError("INVALID_PAGE", "page", "paginación inválida"))
	}
	filter := repository.MovementFilter{
		ProductID: c.Query("productId"),
		TypeCode:  c.Query("type"),
		ActorID:   c.Query("actor"),
	}
	var err error
	if filter.From, err = queryTime(c, "from"); err != nil {
		return writeError(c, h.log, err)
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.register.ListMovements(c.UserContext(), tenantID, filter, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(list)
}

// Approve godoc
// @Summary      Aprobar movimentação pendiente
// @Tags         estoque
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID del movimiento"
// @Param        body  body  dto.ApprovalRequest  false  "allowExpired"
// @Success      200  {object}  dto.RegisterMovementResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/estoque/movimentacoes/{id}/aprovar [post]
func (h *InventoryHandler) Approve(c *fiber.Ctx) error {
	tenantID, userID, role, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ApprovalRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	res, err := h.approval.Approve(c.UserContext(), tenantID, c.Params("id"), userID, role, in.AllowExpired)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res.ToResponse())
}

// Reject godoc
// @Summary      Rechazar movimentação pendiente
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.RegisterMovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/estoque/movimentacoes/{id}/rejeitar [post]
func (h *InventoryHandler) Reject(c *fiber.Ctx) error {
	tenantID, userID, role, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	res, err := h.approval.Reject(c.UserContext(), tenantID, c.Params("id"), userID, role)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res.ToResponse())
}

// Summary godoc
// @Summary      Resumo de estoque por producto
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "ZERADO | BAIXO | NORMAL"
// @Success      200  {object}  dto.StockSummaryResponse
// @Router       /api/estoque/resumo [get]
func (h *InventoryHandler) Summary(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.summary.Summary(c.UserContext(), tenantID, c.Query("status"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Rebuild godoc
// @Summary      Reconstruir el agregado de un producto desde el ledger
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "Producto"
// @Success      200  {object}  dto.RebuildResponse
// @Router       /api/estoque/produtos/{productId}/reconstruir [post]
func (h *InventoryHandler) Rebuild(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.rebuild.Rebuild(c.UserContext(), tenantID, c.Params("productId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Reconciliar todos los agregados del tenant
// @Tags         estoque
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/estoque/reconciliar [post]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.rebuild.ReconcileTenant(c.UserContext(), tenantID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Kardex godoc
// @Summary      Ficha kardex en PDF
// @Tags         estoque
// @Security     Bearer
// @Produce      application/pdf
// @Param        productId  path  string  true  "Producto"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/estoque/produtos/{productId}/kardex.pdf [get]
func (h *InventoryHandler) Kardex(c *fiber.Ctx) error {
	tenantID, _, _, ok := identity(c)
	if !ok {
		return unauthorized(c)
	}
	productID := c.Params("productId")
	pdfBytes, err := h.kardex.GenerateKardex(c.UserContext(), tenantID, productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="kardex-`+productID+`.pdf"`)
	return c.Send(pdfBytes)
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError("INVALID_DATE", key, "fecha inválida, usar RFC3339")
	}
	return &t, nil
}
