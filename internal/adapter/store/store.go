// Package store provides the relational persistence backends for usage
// records, built on a fixed-size connection pool.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
	"github.com/rmoralesv/go-app-monitor/internal/port"
	"github.com/rmoralesv/go-app-monitor/pkg/config"
)

// Options configures a store backend.
type Options struct {
	PoolSize       int
	AcquireTimeout time.Duration
	EnableAudit    bool
}

// Open selects a backend from the configuration. DB_DRIVER=sqlite opens a
// file-backed SQLite store; DB_DRIVER=postgres connects via DATABASE_URL.
func Open(ctx context.Context, cfg *config.Config) (port.UsageStore, error) {
	opts := Options{
		PoolSize:       cfg.PoolSize,
		AcquireTimeout: cfg.PoolAcquireTimeout,
		EnableAudit:    cfg.EnableAuditLog,
	}
	switch cfg.DBDriver {
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL, opts)
	default:
		return OpenSQLite(ctx, cfg.DBPath, opts)
	}
}

// scanUsageRows drains rows into usage records. Column order must match
// usageColumns.
func scanUsageRows(rows *sql.Rows) ([]domain.UsageRecord, error) {
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var r domain.UsageRecord
		if err := rows.Scan(
			&r.ID, &r.MonitorAppVersion, &r.Platform, &r.User,
			&r.ApplicationName, &r.ApplicationVersion, &r.LogDate,
			&r.LegacyApp, &r.DurationSeconds, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanAuditRows(rows *sql.Rows) ([]domain.AuditEntry, error) {
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.TableName, &e.RecordID, &e.Timestamp, &e.Details); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// usageColumns is the select list shared by both backends. "user" is
// quoted because it is a reserved word in Postgres.
const usageColumns = `id, monitor_app_version, platform, "user", application_name,
	application_version, log_date, legacy_app, duration_seconds, created_at`
