package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
	"github.com/rmoralesv/go-app-monitor/internal/port"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS app_usage (
    id                  BIGSERIAL PRIMARY KEY,
    monitor_app_version VARCHAR(50) NOT NULL,
    platform            VARCHAR(50) NOT NULL,
    "user"              VARCHAR(100) NOT NULL,
    application_name    VARCHAR(100) NOT NULL,
    application_version VARCHAR(50) NOT NULL,
    log_date            TEXT NOT NULL,
    legacy_app          BOOLEAN NOT NULL,
    duration_seconds    BIGINT NOT NULL CHECK(duration_seconds >= 0),
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    action      TEXT NOT NULL,
    table_name  TEXT NOT NULL,
    record_id   BIGINT,
    timestamp   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    details     TEXT
);
CREATE INDEX IF NOT EXISTS idx_app_usage_user ON app_usage("user");
CREATE INDEX IF NOT EXISTS idx_app_usage_date ON app_usage(log_date);
CREATE INDEX IF NOT EXISTS idx_app_usage_app ON app_usage(application_name);
`

// PostgresStore is the alternate backend, selected with DB_DRIVER=postgres.
type PostgresStore struct {
	pool  *Pool
	audit bool
}

// OpenPostgres connects via databaseURL, fills the pool, and runs
// migrations.
func OpenPostgres(ctx context.Context, databaseURL string, opts Options) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool, err := NewPool(ctx, db, opts.PoolSize, opts.AcquireTimeout, postgresConnSetup)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool, audit: opts.EnableAudit}
	if err := s.pool.With(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, postgresSchema)
		return err
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// postgresConnSetup bounds lock waits per session, mirroring the sqlite
// busy timeout.
func postgresConnSetup(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, `SET statement_timeout = 10000`); err != nil {
		return fmt.Errorf("set statement_timeout: %w", err)
	}
	return nil
}

// InsertUsage persists a record and its audit row in one transaction.
func (s *PostgresStore) InsertUsage(ctx context.Context, r domain.UsageRecord) (int64, error) {
	var id int64
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		err = tx.QueryRowContext(ctx, `
			INSERT INTO app_usage (
				monitor_app_version, platform, "user", application_name,
				application_version, log_date, legacy_app, duration_seconds
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			r.MonitorAppVersion, r.Platform, r.User, r.ApplicationName,
			r.ApplicationVersion, r.LogDate, r.LegacyApp, r.DurationSeconds,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert usage record: %w", err)
		}

		if s.audit {
			details := fmt.Sprintf("User: %s, App: %s", r.User, r.ApplicationName)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO audit_log (action, table_name, record_id, details)
				VALUES ($1, $2, $3, $4)`,
				domain.AuditActionInsert, "app_usage", id, details,
			); err != nil {
				return fmt.Errorf("insert audit entry: %w", err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteUsage removes a record, auditing the deleted user. Returns
// port.ErrNotFound when the id does not exist.
func (s *PostgresStore) DeleteUsage(ctx context.Context, id int64) (string, error) {
	var user string
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		err = tx.QueryRowContext(ctx,
			`SELECT "user" FROM app_usage WHERE id = $1`, id,
		).Scan(&user)
		if errors.Is(err, sql.ErrNoRows) {
			return port.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup record %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM app_usage WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete record %d: %w", id, err)
		}

		if s.audit {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO audit_log (action, table_name, record_id, details)
				VALUES ($1, $2, $3, $4)`,
				domain.AuditActionDelete, "app_usage", id,
				fmt.Sprintf("Deleted record for user: %s", user),
			); err != nil {
				return fmt.Errorf("insert audit entry: %w", err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return user, nil
}

// ListUsage returns up to limit records, newest first by creation time.
func (s *PostgresStore) ListUsage(ctx context.Context, limit int) ([]domain.UsageRecord, error) {
	var records []domain.UsageRecord
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT `+usageColumns+`
			FROM app_usage
			ORDER BY created_at DESC
			LIMIT $1`, limit)
		if err != nil {
			return fmt.Errorf("list usage records: %w", err)
		}
		records, err = scanUsageRows(rows)
		return err
	})
	return records, err
}

// ListUsageByUser returns up to limit records for user, newest log date first.
func (s *PostgresStore) ListUsageByUser(ctx context.Context, user string, limit int) ([]domain.UsageRecord, error) {
	var records []domain.UsageRecord
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT `+usageColumns+`
			FROM app_usage
			WHERE "user" = $1
			ORDER BY log_date DESC
			LIMIT $2`, user, limit)
		if err != nil {
			return fmt.Errorf("list usage by user: %w", err)
		}
		records, err = scanUsageRows(rows)
		return err
	})
	return records, err
}

// Stats computes exact aggregate counts plus the database size on disk.
func (s *PostgresStore) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats := &domain.StoreStats{PlatformDistribution: map[string]int64{}}
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		counts := []struct {
			query string
			dest  *int64
		}{
			{`SELECT COUNT(*) FROM app_usage`, &stats.TotalRecords},
			{`SELECT COUNT(DISTINCT "user") FROM app_usage`, &stats.UniqueUsers},
			{`SELECT COUNT(DISTINCT application_name) FROM app_usage`, &stats.UniqueApplications},
			{`SELECT COUNT(*) FROM app_usage WHERE legacy_app`, &stats.LegacyApplicationsUsage},
		}
		for _, c := range counts {
			if err := conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
				return fmt.Errorf("stats count: %w", err)
			}
		}

		rows, err := conn.QueryContext(ctx,
			`SELECT platform, COUNT(*) FROM app_usage GROUP BY platform`)
		if err != nil {
			return fmt.Errorf("platform distribution: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var platform string
			var count int64
			if err := rows.Scan(&platform, &count); err != nil {
				return fmt.Errorf("scan platform count: %w", err)
			}
			stats.PlatformDistribution[platform] = count
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return conn.QueryRowContext(ctx,
			`SELECT pg_database_size(current_database())`,
		).Scan(&stats.DatabaseSizeBytes)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListAuditEntries returns up to limit audit rows, newest first, optionally
// filtered by action.
func (s *PostgresStore) ListAuditEntries(ctx context.Context, limit int, action string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		query := `SELECT id, action, table_name, record_id, timestamp, details
		          FROM audit_log`
		args := []any{}
		if action != "" {
			query += ` WHERE action = $1 ORDER BY id DESC LIMIT $2`
			args = append(args, action, limit)
		} else {
			query += ` ORDER BY id DESC LIMIT $1`
			args = append(args, limit)
		}

		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list audit entries: %w", err)
		}
		entries, err = scanAuditRows(rows)
		return err
	})
	return entries, err
}

// Close releases all pooled handles.
func (s *PostgresStore) Close() error {
	return s.pool.Close()
}
