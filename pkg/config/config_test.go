package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "")
	t.Setenv("SYNC_MAX_BATCH_SIZE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "estoque-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 500, cfg.Sync.MaxBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Sync.PolicyCacheTTL)
	assert.Equal(t, config.BackendPostgres, cfg.Ledger.Backend)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "SQLite")
	t.Setenv("LEDGER_SQLITE_PATH", "/tmp/pdv.db")
	t.Setenv("SYNC_MAX_BATCH_SIZE", "50")
	t.Setenv("SYNC_POLICY_CACHE_TTL", "30s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "3")
	t.Setenv("LEDGER_DEV_TENANTS", " farmacia-1, ,farmacia-2")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "/tmp/pdv.db", cfg.Ledger.SQLitePath)
	assert.Equal(t, 50, cfg.Sync.MaxBatchSize)
	assert.Equal(t, 30*time.Second, cfg.Sync.PolicyCacheTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, []string{"farmacia-1", "farmacia-2"}, cfg.Ledger.DevTenants)
}

func TestLoad_BackendInvalido(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "mongo")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "estoque", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/estoque?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", c.ConnectionString())
}
