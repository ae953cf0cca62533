package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, 1000, cfg.MaxQueryResults)
	require.Equal(t, 100, cfg.RateLimitRequests)
	require.Equal(t, 60*time.Second, cfg.RateLimitWindow)
	require.Equal(t, 5, cfg.PoolSize)
	require.True(t, cfg.EnableAuditLog)
	require.False(t, cfg.BackupEnabled)
	require.True(t, cfg.MCPEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("RATE_LIMIT_REQUESTS", "7")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("ENABLE_AUDIT_LOG", "false")
	t.Setenv("DB_POOL_SIZE", "9")

	cfg := Load()
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, 7, cfg.RateLimitRequests)
	require.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	require.False(t, cfg.EnableAuditLog)
	require.Equal(t, 9, cfg.PoolSize)
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("ENABLE_AUDIT_LOG", "maybe")

	cfg := Load()
	require.Equal(t, 100, cfg.RateLimitRequests)
	require.True(t, cfg.EnableAuditLog)
}

func TestRateLimitSummary(t *testing.T) {
	cfg := &Config{RateLimitRequests: 42, RateLimitWindow: 90 * time.Second}
	require.Equal(t, "42 requests per 90s", cfg.RateLimitSummary())
}
