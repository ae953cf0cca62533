package port

import (
	"context"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
)

// UsageStore is the persistence surface for usage records. Implementations
// must be safe for concurrent use; every call borrows one pooled connection
// for its whole duration and returns it on every exit path.
type UsageStore interface {
	// InsertUsage persists a record (string fields already truncated by
	// the caller) and returns the store-assigned id. When audit logging
	// is enabled the audit row is committed in the same transaction.
	InsertUsage(ctx context.Context, r domain.UsageRecord) (int64, error)

	// DeleteUsage removes the record with the given id, returning the
	// deleted record's user for traceability. Returns ErrNotFound when
	// no such record exists.
	DeleteUsage(ctx context.Context, id int64) (string, error)

	// ListUsage returns up to limit records ordered by creation time,
	// newest first.
	ListUsage(ctx context.Context, limit int) ([]domain.UsageRecord, error)

	// ListUsageByUser returns up to limit records for an exact user
	// match, ordered by log date, newest first.
	ListUsageByUser(ctx context.Context, user string, limit int) ([]domain.UsageRecord, error)

	// Stats computes exact aggregate counts and the store size in bytes.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// ListAuditEntries returns up to limit audit rows, newest first,
	// optionally filtered by action.
	ListAuditEntries(ctx context.Context, limit int, action string) ([]domain.AuditEntry, error)

	Close() error
}
