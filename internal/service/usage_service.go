package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
	"github.com/rmoralesv/go-app-monitor/internal/port"
	"github.com/rmoralesv/go-app-monitor/pkg/config"
)

// UsageService implements the usage-record operations: input validation,
// silent truncation of oversized string fields, limit clamping, and store
// fault masking. String fields truncate without error; duration and log
// date violations hard-reject. That asymmetry is deliberate.
type UsageService struct {
	store port.UsageStore
	cfg   *config.Config
}

// NewUsageService creates the service over a store backend.
func NewUsageService(store port.UsageStore, cfg *config.Config) *UsageService {
	return &UsageService{store: store, cfg: cfg}
}

// ListResult is the payload returned by List.
type ListResult struct {
	TotalRecords int                  `json:"total_records"`
	LimitApplied int                  `json:"limit_applied"`
	Records      []domain.UsageRecord `json:"records"`
}

// UserListResult is the payload returned by ListByUser.
type UserListResult struct {
	User         string               `json:"user"`
	TotalRecords int                  `json:"total_records"`
	LimitApplied int                  `json:"limit_applied"`
	Records      []domain.UsageRecord `json:"records"`
}

// isoDateFormats are the accepted log_date layouts. A trailing Z parses as
// a UTC offset via RFC3339.
var isoDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISODate(s string) error {
	for _, layout := range isoDateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

// Insert validates and persists one usage record, returning the new id.
func (s *UsageService) Insert(ctx context.Context, r domain.UsageRecord) (int64, error) {
	if r.DurationSeconds < domain.MinDurationSeconds || r.DurationSeconds > domain.MaxDurationSeconds {
		return 0, port.Invalidf("Invalid duration_seconds (must be 0-86400)")
	}
	if err := parseISODate(r.LogDate); err != nil {
		return 0, port.Invalidf("Invalid log_date format (use ISO format)")
	}

	id, err := s.store.InsertUsage(ctx, r.TruncateFields())
	if err != nil {
		return 0, s.maskStoreErr("insert", err)
	}
	slog.Info("record inserted", "id", id)
	return id, nil
}

// Delete removes a record by id. Returns port.ErrNotFound (not a failure)
// when the id does not exist; deleting twice reports not-found both times.
func (s *UsageService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return port.Invalidf("Invalid record ID")
	}

	user, err := s.store.DeleteUsage(ctx, id)
	if err != nil {
		return s.maskStoreErr("delete", err)
	}
	slog.Info("record deleted", "id", id, "user", user)
	return nil
}

// List returns records ordered by creation time, newest first. The limit
// is clamped to the configured maximum; an explicit non-positive limit is
// rejected.
func (s *UsageService) List(ctx context.Context, limit int) (*ListResult, error) {
	if limit > s.cfg.MaxQueryResults {
		limit = s.cfg.MaxQueryResults
	}
	if limit <= 0 {
		return nil, port.Invalidf("Invalid limit value")
	}

	records, err := s.store.ListUsage(ctx, limit)
	if err != nil {
		return nil, s.maskStoreErr("list", err)
	}
	if records == nil {
		records = []domain.UsageRecord{}
	}
	return &ListResult{
		TotalRecords: len(records),
		LimitApplied: limit,
		Records:      records,
	}, nil
}

// ListByUser returns records for an exact user match, newest log date
// first. The user is trimmed and truncated to its stored maximum before
// matching; empty after trim is rejected.
func (s *UsageService) ListByUser(ctx context.Context, user string, limit int) (*UserListResult, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, port.Invalidf("User parameter is required")
	}
	user = domain.Truncate(user, domain.MaxUserLen)

	if limit <= 0 || limit > s.cfg.MaxQueryResults {
		limit = s.cfg.MaxQueryResults
	}

	records, err := s.store.ListUsageByUser(ctx, user, limit)
	if err != nil {
		return nil, s.maskStoreErr("list_by_user", err)
	}
	if records == nil {
		records = []domain.UsageRecord{}
	}
	return &UserListResult{
		User:         user,
		TotalRecords: len(records),
		LimitApplied: limit,
		Records:      records,
	}, nil
}

// MaxQueryResults returns the configured per-query record cap.
func (s *UsageService) MaxQueryResults() int {
	return s.cfg.MaxQueryResults
}

// Stats returns exact aggregate counts plus the configured backup and
// rate-limit settings.
func (s *UsageService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, s.maskStoreErr("stats", err)
	}

	stats.LastBackup = "Disabled"
	if s.cfg.BackupEnabled {
		stats.LastBackup = "Enabled"
	}
	stats.RateLimiting = s.cfg.RateLimitSummary()
	return stats, nil
}

// AuditLogs returns recent audit entries, newest first.
func (s *UsageService) AuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > s.cfg.MaxQueryResults {
		limit = s.cfg.MaxQueryResults
	}
	entries, err := s.store.ListAuditEntries(ctx, limit, action)
	if err != nil {
		return nil, s.maskStoreErr("audit_logs", err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

// maskStoreErr logs the raw persistence fault and replaces it with the
// generic failure value. Validation rejections, not-found, and pool
// exhaustion carry no store internals and pass through unchanged.
func (s *UsageService) maskStoreErr(op string, err error) error {
	if port.IsValidation(err) ||
		errors.Is(err, port.ErrNotFound) ||
		errors.Is(err, port.ErrPoolExhausted) {
		return err
	}
	slog.Error("store operation failed", "op", op, "error", err)
	return port.ErrStoreFailure
}
