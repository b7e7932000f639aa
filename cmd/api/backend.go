package main

import (
	"context"
	"fmt"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
	"github.com/jhoicas/estoque-api/internal/infrastructure/memory"
	"github.com/jhoicas/estoque-api/internal/infrastructure/postgres"
	"github.com/jhoicas/estoque-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/estoque-api/pkg/config"
)

// backend repositorios del ledger y del catálogo sobre un mismo almacenamiento.
type backend struct {
	ledger        repository.LedgerStore
	lots          repository.LotRepository
	products      repository.ProductRepository
	movementTypes repository.MovementTypeRepository
	companies     repository.CompanyRepository
	close         func()
}

// openBackend abre el almacenamiento elegido por LEDGER_BACKEND y aplica el esquema.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{
			ledger:        postgres.NewLedgerStore(pool),
			lots:          postgres.NewLotRepository(pool),
			products:      postgres.NewProductRepository(pool),
			movementTypes: postgres.NewMovementTypeRepository(pool),
			companies:     postgres.NewCompanyRepository(pool),
			close:         pool.Close,
		}, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("abrir SQLite %s: %w", cfg.Ledger.SQLitePath, err)
		}
		companies := sqlite.NewCompanyRepository(db)
		for _, tenant := range cfg.Ledger.DevTenants {
			if err := companies.Entitle(ctx, tenant, entity.ModuleEstoque); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &backend{
			ledger:        sqlite.NewLedgerStore(db),
			lots:          sqlite.NewLotRepository(db),
			products:      sqlite.NewProductRepository(db),
			movementTypes: sqlite.NewMovementTypeRepository(db),
			companies:     companies,
			close:         func() { _ = db.Close() },
		}, nil

	default:
		store := memory.NewStore()
		companies := store.Companies()
		for _, tenant := range cfg.Ledger.DevTenants {
			companies.Entitle(tenant, entity.ModuleEstoque)
		}
		return &backend{
			ledger:        store.Ledger(),
			lots:          store.Lots(),
			products:      store.Products(),
			movementTypes: store.MovementTypes(),
			companies:     companies,
			close:         func() {},
		}, nil
	}
}
