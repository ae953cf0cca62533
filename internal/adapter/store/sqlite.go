package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
	"github.com/rmoralesv/go-app-monitor/internal/port"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS app_usage (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    monitor_app_version TEXT NOT NULL CHECK(length(monitor_app_version) <= 50),
    platform            TEXT NOT NULL CHECK(length(platform) <= 50),
    user                TEXT NOT NULL CHECK(length(user) <= 100),
    application_name    TEXT NOT NULL CHECK(length(application_name) <= 100),
    application_version TEXT NOT NULL CHECK(length(application_version) <= 50),
    log_date            TEXT NOT NULL,
    legacy_app          BOOLEAN NOT NULL,
    duration_seconds    INTEGER NOT NULL CHECK(duration_seconds >= 0),
    created_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    action      TEXT NOT NULL,
    table_name  TEXT NOT NULL,
    record_id   INTEGER,
    timestamp   DATETIME DEFAULT CURRENT_TIMESTAMP,
    details     TEXT
);
CREATE INDEX IF NOT EXISTS idx_app_usage_user ON app_usage(user);
CREATE INDEX IF NOT EXISTS idx_app_usage_date ON app_usage(log_date);
CREATE INDEX IF NOT EXISTS idx_app_usage_app ON app_usage(application_name);
`

// SQLiteStore is the file-backed primary store.
type SQLiteStore struct {
	pool  *Pool
	path  string
	audit bool
}

// OpenSQLite opens (or creates) the usage database at path, configures
// every pooled handle, and runs migrations.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pool, err := NewPool(ctx, db, opts.PoolSize, opts.AcquireTimeout, sqliteConnSetup)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{pool: pool, path: path, audit: opts.EnableAudit}
	if err := s.pool.With(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, sqliteSchema)
		return err
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// sqliteConnSetup applies the per-handle pragmas: referential integrity on,
// no WAL sidecar files, balanced durability, and a 10s lock wait so a
// locked store fails instead of blocking indefinitely.
func sqliteConnSetup(ctx context.Context, conn *sql.Conn) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// InsertUsage persists a record and its audit row in one transaction.
func (s *SQLiteStore) InsertUsage(ctx context.Context, r domain.UsageRecord) (int64, error) {
	var id int64
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `
			INSERT INTO app_usage (
				monitor_app_version, platform, user, application_name,
				application_version, log_date, legacy_app, duration_seconds
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.MonitorAppVersion, r.Platform, r.User, r.ApplicationName,
			r.ApplicationVersion, r.LogDate, r.LegacyApp, r.DurationSeconds,
		)
		if err != nil {
			return fmt.Errorf("insert usage record: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		if s.audit {
			details := fmt.Sprintf("User: %s, App: %s", r.User, r.ApplicationName)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO audit_log (action, table_name, record_id, details)
				VALUES (?, ?, ?, ?)`,
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
func (s *SQLiteStore) DeleteUsage(ctx context.Context, id int64) (string, error) {
	var user string
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		err = tx.QueryRowContext(ctx,
			`SELECT user FROM app_usage WHERE id = ?`, id,
		).Scan(&user)
		if errors.Is(err, sql.ErrNoRows) {
			return port.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup record %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM app_usage WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete record %d: %w", id, err)
		}

		if s.audit {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO audit_log (action, table_name, record_id, details)
				VALUES (?, ?, ?, ?)`,
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
func (s *SQLiteStore) ListUsage(ctx context.Context, limit int) ([]domain.UsageRecord, error) {
	var records []domain.UsageRecord
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT `+usageColumns+`
			FROM app_usage
			ORDER BY created_at DESC
			LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("list usage records: %w", err)
		}
		records, err = scanUsageRows(rows)
		return err
	})
	return records, err
}

// ListUsageByUser returns up to limit records for user, newest log date first.
func (s *SQLiteStore) ListUsageByUser(ctx context.Context, user string, limit int) ([]domain.UsageRecord, error) {
	var records []domain.UsageRecord
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT `+usageColumns+`
			FROM app_usage
			WHERE user = ?
			ORDER BY log_date DESC
			LIMIT ?`, user, limit)
		if err != nil {
			return fmt.Errorf("list usage by user: %w", err)
		}
		records, err = scanUsageRows(rows)
		return err
	})
	return records, err
}

// Stats computes exact aggregate counts plus the database file size.
func (s *SQLiteStore) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats := &domain.StoreStats{PlatformDistribution: map[string]int64{}}
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		counts := []struct {
			query string
			dest  *int64
		}{
			{`SELECT COUNT(*) FROM app_usage`, &stats.TotalRecords},
			{`SELECT COUNT(DISTINCT user) FROM app_usage`, &stats.UniqueUsers},
			{`SELECT COUNT(DISTINCT application_name) FROM app_usage`, &stats.UniqueApplications},
			{`SELECT COUNT(*) FROM app_usage WHERE legacy_app = 1`, &stats.LegacyApplicationsUsage},
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
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if fi, err := os.Stat(s.path); err == nil {
		stats.DatabaseSizeBytes = fi.Size()
	}
	return stats, nil
}

// ListAuditEntries returns up to limit audit rows, newest first, optionally
// filtered by action.
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, limit int, action string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.pool.With(ctx, func(conn *sql.Conn) error {
		query := `SELECT id, action, table_name, record_id, timestamp, details
		          FROM audit_log`
		args := []any{}
		if action != "" {
			query += ` WHERE action = ?`
			args = append(args, action)
		}
		query += ` ORDER BY id DESC LIMIT ?`
		args = append(args, limit)

		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list audit entries: %w", err)
		}
		entries, err = scanAuditRows(rows)
		return err
	})
	return entries, err
}

// Backup writes a consistent snapshot of the database to destPath.
func (s *SQLiteStore) Backup(ctx context.Context, destPath string) error {
	return s.pool.With(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
			return fmt.Errorf("vacuum into %s: %w", destPath, err)
		}
		return nil
	})
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Pool exposes the connection pool, used by concurrency tests.
func (s *SQLiteStore) Pool() *Pool {
	return s.pool
}

// Close releases all pooled handles.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
