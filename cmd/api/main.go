// @title           Estoque API
// @version         1.0
// @description     Ledger de movimentações de estoque multi-tenant con sincronización offline de PDVs.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	_ "github.com/jhoicas/estoque-api/docs"
	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/infrastructure/cache"
	infrapdf "github.com/jhoicas/estoque-api/internal/infrastructure/pdf"
	httpRouter "github.com/jhoicas/estoque-api/internal/interfaces/http"
	"github.com/jhoicas/estoque-api/pkg/config"
	"github.com/jhoicas/estoque-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ledger_backend", cfg.Ledger.Backend).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir backend del ledger")
	}
	defer store.close()

	zl := log.Zerolog()
	policyCache := newPolicyCache(ctx, cfg.Redis, zl)

	policies := appinv.NewPolicyProvider(store.movementTypes, policyCache, cfg.Sync.PolicyCacheTTL, zl)
	registerMovementUC := appinv.NewRegisterMovementUseCase(store.ledger, store.lots, store.products, policies, zl)
	approvalUC := appinv.NewApprovalUseCase(registerMovementUC)
	syncCoordinator := appinv.NewSyncCoordinator(registerMovementUC, cfg.Sync.MaxBatchSize, zl)
	summaryUC := appinv.NewSummaryUseCase(store.ledger, store.products)
	rebuildUC := appinv.NewRebuildUseCase(store.ledger, store.lots, store.products, cfg.Sync.ReconcileWorkers, zl)
	lotUC := appinv.NewLotUseCase(store.lots, store.products)
	movementTypeUC := appinv.NewMovementTypeUseCase(store.movementTypes, policies, zl)
	productUC := appinv.NewProductUseCase(store.products, store.ledger)

	// PDF: ficha kardex del producto
	kardexUC := appinv.NewKardexUseCase(store.ledger, store.products, infrapdf.NewMarotoPDFGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Estoque API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		RegisterMovement: registerMovementUC,
		Approval:         approvalUC,
		Sync:             syncCoordinator,
		Summary:          summaryUC,
		Rebuild:          rebuildUC,
		Kardex:           kardexUC,
		Lots:             lotUC,
		MovementTypes:    movementTypeUC,
		Products:         productUC,
		Companies:        store.companies,
		JWTSecret:        cfg.JWT.Secret,
		Log:              zl,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// newPolicyCache Redis si REDIS_ADDR está definido y responde; si no, caché en proceso.
func newPolicyCache(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) appinv.PolicyCache {
	if cfg.Addr == "" {
		return cache.NewMemoryPolicyCache()
	}
	rc := cache.NewRedisPolicyCache(cfg.Addr, cfg.Password, cfg.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("redis_addr", cfg.Addr).Msg("Redis no disponible, usando caché en proceso")
		_ = rc.Close()
		return cache.NewMemoryPolicyCache()
	}
	return rc
}
