// Package sqlite backend embebido del ledger (un nodo o PDV con base local).
// Usa sqlx sobre el driver puro Go de modernc; una sola conexión abierta
// serializa las transacciones.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

// Open abre (o crea) la base en dsn y aplica el esquema.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate crea las tablas y carga los tipos de movimiento por defecto.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS company_modules (
            tenant_id TEXT NOT NULL,
            module_name TEXT NOT NULL,
            is_active INTEGER NOT NULL DEFAULT 1,
            expires_at INTEGER,
            PRIMARY KEY (tenant_id, module_name)
        );`,
		`CREATE TABLE IF NOT EXISTS products (
            id TEXT NOT NULL,
            tenant_id TEXT NOT NULL,
            sku TEXT NOT NULL,
            name TEXT NOT NULL,
            controlled INTEGER NOT NULL DEFAULT 0,
            lot_tracked INTEGER NOT NULL DEFAULT 0,
            min_stock TEXT NOT NULL DEFAULT '0',
            cost TEXT NOT NULL DEFAULT '0',
            estoque_atual TEXT NOT NULL DEFAULT '0',
            updated_at INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (tenant_id, id)
        );`,
		`CREATE TABLE IF NOT EXISTS movement_types (
            tenant_id TEXT NOT NULL DEFAULT '',
            code TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            direction TEXT NOT NULL,
            requires_approval INTEGER NOT NULL DEFAULT 0,
            requires_invoice INTEGER NOT NULL DEFAULT 0,
            requires_supplier INTEGER NOT NULL DEFAULT 0,
            requires_lot INTEGER NOT NULL DEFAULT 0,
            allows_controlled_substances INTEGER NOT NULL DEFAULT 1,
            active INTEGER NOT NULL DEFAULT 1,
            version INTEGER NOT NULL DEFAULT 1,
            lifecycle TEXT NOT NULL DEFAULT 'ACTIVE',
            updated_at INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (tenant_id, code)
        );`,
		`CREATE TABLE IF NOT EXISTS stock_aggregates (
            tenant_id TEXT NOT NULL,
            product_id TEXT NOT NULL,
            quantity TEXT NOT NULL DEFAULT '0',
            average_cost TEXT NOT NULL DEFAULT '0',
            version INTEGER NOT NULL DEFAULT 0,
            last_movement_id TEXT NOT NULL DEFAULT '',
            last_movement_at INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (tenant_id, product_id)
        );`,
		`CREATE TABLE IF NOT EXISTS lots (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL,
            tenant_id TEXT NOT NULL,
            product_id TEXT NOT NULL,
            lot_number TEXT NOT NULL,
            expiry_date INTEGER,
            remaining TEXT NOT NULL DEFAULT '0',
            created_at INTEGER NOT NULL,
            UNIQUE (tenant_id, id),
            UNIQUE (tenant_id, product_id, lot_number)
        );`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
            id TEXT NOT NULL,
            tenant_id TEXT NOT NULL,
            product_id TEXT NOT NULL,
            lot_id TEXT NOT NULL DEFAULT '',
            allocations TEXT NOT NULL DEFAULT '[]',
            type_code TEXT NOT NULL,
            quantity TEXT NOT NULL,
            unit_cost TEXT NOT NULL DEFAULT '0',
            client_id TEXT NOT NULL,
            client_timestamp INTEGER NOT NULL,
            server_timestamp INTEGER NOT NULL,
            integrity_hash TEXT NOT NULL,
            sync_status TEXT NOT NULL,
            approval_status TEXT NOT NULL,
            approved_by TEXT NOT NULL DEFAULT '',
            approved_at INTEGER,
            supplier_id TEXT NOT NULL DEFAULT '',
            invoice_number TEXT NOT NULL DEFAULT '',
            reason TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            actor_id TEXT NOT NULL DEFAULT '',
            quantity_before TEXT NOT NULL DEFAULT '0',
            quantity_after TEXT NOT NULL DEFAULT '0',
            applied_version INTEGER NOT NULL DEFAULT 0,
            lifecycle TEXT NOT NULL DEFAULT 'ACTIVE',
            PRIMARY KEY (tenant_id, id),
            UNIQUE (tenant_id, client_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_replay
            ON stock_movements (tenant_id, product_id, applied_version, server_timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_server_ts
            ON stock_movements (tenant_id, server_timestamp);`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migración sqlite: %w", err)
		}
	}

	now := time.Now().UTC().UnixNano()
	for _, t := range inventory.DefaultMovementTypes() {
		row := fromMovementType(t)
		row.UpdatedAt = now
		if _, err := db.NamedExecContext(ctx, `INSERT OR IGNORE INTO movement_types (`+movementTypeColumns+`)
			VALUES (`+named(movementTypeColumns)+`)`, row); err != nil {
			return fmt.Errorf("cargar tipos por defecto: %w", err)
		}
	}
	return nil
}

// named convierte "a, b" en ":a, :b" para NamedExec.
func named(columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = ":" + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
