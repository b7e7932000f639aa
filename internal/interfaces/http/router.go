package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RegisterMovement *appinv.RegisterMovementUseCase
	Approval         *appinv.ApprovalUseCase
	Sync             *appinv.SyncCoordinator
	Summary          *appinv.SummaryUseCase
	Rebuild          *appinv.RebuildUseCase
	Kardex           *appinv.KardexUseCase
	Lots             *appinv.LotUseCase
	MovementTypes    *appinv.MovementTypeUseCase
	Products         *appinv.ProductUseCase
	Companies        repository.CompanyRepository
	JWTSecret        string
	Log              zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Estoque: JWT + módulo contratado
	estoque := api.Group("/estoque",
		AuthMiddleware(deps.JWTSecret),
		RequireModule(entity.ModuleEstoque, deps.Companies, deps.Log),
	)
	approvers := RequireRole(entity.RoleAdmin, entity.RoleFarmaceutico)
	adminOnly := RequireRole(entity.RoleAdmin)

	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, deps.Approval, deps.Summary, deps.Rebuild, deps.Kardex, deps.Log)
	estoque.Post("/movimentacoes", inventoryHandler.RegisterMovement)
	estoque.Get("/movimentacoes", inventoryHandler.ListMovements)
	estoque.Post("/movimentacoes/:id/aprovar", approvers, inventoryHandler.Approve)
	estoque.Post("/movimentacoes/:id/rejeitar", approvers, inventoryHandler.Reject)
	estoque.Get("/resumo", inventoryHandler.Summary)
	estoque.Post("/produtos/:productId/reconstruir", approvers, inventoryHandler.Rebuild)
	estoque.Get("/produtos/:productId/kardex.pdf", inventoryHandler.Kardex)
	estoque.Post("/reconciliar", adminOnly, inventoryHandler.Reconcile)

	syncHandler := NewSyncHandler(deps.Sync, deps.Log)
	estoque.Post("/sincronizar", syncHandler.Sync)

	lotHandler := NewLotHandler(deps.Lots, deps.Log)
	estoque.Post("/lotes", lotHandler.Create)
	estoque.Get("/lotes", lotHandler.List)

	productHandler := NewProductHandler(deps.Products, deps.Log)
	estoque.Get("/produtos", productHandler.List)
	estoque.Get("/produtos/:productId", productHandler.GetByID)
	estoque.Put("/produtos/:productId", adminOnly, productHandler.Upsert)

	typeHandler := NewMovementTypeHandler(deps.MovementTypes, deps.Log)
	estoque.Get("/tipos-movimentacao", typeHandler.List)
	estoque.Put("/tipos-movimentacao/:code", adminOnly, typeHandler.Upsert)
	estoque.Post("/tipos-movimentacao/:code/desativar", adminOnly, typeHandler.Deactivate)
}
