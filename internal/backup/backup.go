// Package backup provides periodic snapshots of the SQLite store with a
// bounded retention window.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rmoralesv/go-app-monitor/internal/adapter/store"
)

// keepBackups is how many snapshots survive a retention pass.
const keepBackups = 5

// Scheduler snapshots the store on a fixed interval.
type Scheduler struct {
	store    *store.SQLiteStore
	interval time.Duration
}

// NewScheduler creates a scheduler over a SQLite store.
func NewScheduler(s *store.SQLiteStore, interval time.Duration) *Scheduler {
	return &Scheduler{store: s, interval: interval}
}

// Run takes one snapshot immediately, then repeats every interval until
// ctx is cancelled. Snapshot failures are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.BackupOnce(ctx); err != nil {
		slog.Error("initial backup failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.BackupOnce(ctx); err != nil {
				slog.Error("scheduled backup failed", "error", err)
			}
		}
	}
}

// BackupOnce writes a timestamped snapshot next to the database file and
// prunes old snapshots beyond the retention count. Returns the snapshot
// path.
func (s *Scheduler) BackupOnce(ctx context.Context) (string, error) {
	dir := filepath.Dir(s.store.Path())
	name := fmt.Sprintf("app_monitor_backup_%s.db", time.Now().Format("20060102_150405"))
	dest := filepath.Join(dir, name)

	if err := s.store.Backup(ctx, dest); err != nil {
		return "", err
	}
	slog.Info("database backup created", "path", dest)

	if err := pruneBackups(dir); err != nil {
		slog.Warn("backup retention pass failed", "error", err)
	}
	return dest, nil
}

// pruneBackups removes all but the newest keepBackups snapshots.
func pruneBackups(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "app_monitor_backup_*.db"))
	if err != nil {
		return err
	}
	if len(matches) <= keepBackups {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-keepBackups] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("remove old backup %s: %w", old, err)
		}
		slog.Info("removed old backup", "path", old)
	}
	return nil
}

// CleanupSidecarFiles removes stray WAL and SHM files left in the database
// directory by earlier journal modes.
func CleanupSidecarFiles(dir string) {
	for _, pattern := range []string{"*.db-wal", "*.db-shm"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, f := range matches {
			if err := os.Remove(f); err != nil {
				slog.Warn("failed to remove sidecar file", "path", f, "error", err)
				continue
			}
			slog.Info("removed sidecar file", "path", f)
		}
	}
}
