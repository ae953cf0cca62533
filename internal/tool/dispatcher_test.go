package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rmoralesv/go-app-monitor/internal/adapter/store"
	"github.com/rmoralesv/go-app-monitor/internal/ratelimit"
	"github.com/rmoralesv/go-app-monitor/internal/service"
	"github.com/rmoralesv/go-app-monitor/pkg/config"
)

func newTestDispatcher(t *testing.T, limiter *ratelimit.Limiter) *Dispatcher {
	t.Helper()
	cfg := &config.Config{
		MaxQueryResults:    100,
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		PoolSize:           2,
		PoolAcquireTimeout: 5 * time.Second,
		EnableAuditLog:     true,
	}
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tool_test.db"), store.Options{
		PoolSize:       cfg.PoolSize,
		AcquireTimeout: cfg.PoolAcquireTimeout,
		EnableAudit:    cfg.EnableAuditLog,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if limiter == nil {
		limiter = ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	return NewDispatcher(service.NewUsageService(s, cfg), limiter, cfg.EnableAuditLog)
}

func insertArgs(user string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"monitor_app_version": "1.0",
		"platform": "linux",
		"user": %q,
		"application_name": "terminal",
		"application_version": "5.2",
		"log_date": "2024-06-01T12:00:00Z",
		"legacy_app": false,
		"duration_seconds": 120
	}`, user))
}

func TestInsertToolSuccess(t *testing.T) {
	d := newTestDispatcher(t, nil)

	result, err := d.Call(context.Background(), "insert_app_usage_record", insertArgs("alice"))
	require.NoError(t, err)
	require.Regexp(t, `^Successfully inserted record with ID: \d+$`, result)
}

func TestInsertToolRejectsBadDuration(t *testing.T) {
	d := newTestDispatcher(t, nil)

	args := json.RawMessage(strings.Replace(string(insertArgs("alice")), `"duration_seconds": 120`, `"duration_seconds": 86401`, 1))
	result, err := d.Call(context.Background(), "insert_app_usage_record", args)
	require.NoError(t, err)
	require.Equal(t, "Error: Invalid duration_seconds (must be 0-86400)", result)
}

func TestInsertToolRejectsBadDate(t *testing.T) {
	d := newTestDispatcher(t, nil)

	args := json.RawMessage(strings.Replace(string(insertArgs("alice")), "2024-06-01T12:00:00Z", "not-a-date", 1))
	result, err := d.Call(context.Background(), "insert_app_usage_record", args)
	require.NoError(t, err)
	require.Equal(t, "Error: Invalid log_date format (use ISO format)", result)
}

func TestOversizedInputShortCircuits(t *testing.T) {
	d := newTestDispatcher(t, nil)

	result, err := d.Call(context.Background(), "insert_app_usage_record", insertArgs(strings.Repeat("x", 1001)))
	require.NoError(t, err)
	require.Equal(t, "Error: Input too long", result)

	// Validation rejections never reach the store.
	list, err := d.Call(context.Background(), "get_all_app_usage_records", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Contains(t, list, `"total_records": 0`)
}

func TestUnsafeCharactersPassThrough(t *testing.T) {
	d := newTestDispatcher(t, nil)

	// Detection-only policy: flagged input is logged, not blocked.
	result, err := d.Call(context.Background(), "insert_app_usage_record", insertArgs(`o'brien <admin>`))
	require.NoError(t, err)
	require.Contains(t, result, "Successfully inserted record")
}

func TestRateLimitShortCircuitsAllTools(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	d := newTestDispatcher(t, limiter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := d.Call(ctx, "get_database_stats", json.RawMessage(`{}`))
		require.NoError(t, err)
		require.NotContains(t, result, "Rate limit")
	}

	// The window is shared across tools: the third call is rejected no
	// matter which tool it targets.
	result, err := d.Call(ctx, "insert_app_usage_record", insertArgs("alice"))
	require.NoError(t, err)
	require.Equal(t, "Error: Rate limit exceeded. Please try again later.", result)
}

func TestCompletionLogOnlyAfterExecution(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	d := newTestDispatcher(t, limiter)
	ctx := context.Background()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	_, err := d.Call(ctx, "get_database_stats", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "tool completed")

	// A rate-limited call never executes, so it must not report completion.
	buf.Reset()
	result, err := d.Call(ctx, "get_database_stats", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Equal(t, "Error: Rate limit exceeded. Please try again later.", result)
	require.NotContains(t, buf.String(), "tool completed")
}

func TestDeleteToolMessages(t *testing.T) {
	d := newTestDispatcher(t, nil)
	ctx := context.Background()

	result, err := d.Call(ctx, "delete_app_usage_record", json.RawMessage(`{"record_id": 999999}`))
	require.NoError(t, err)
	require.Equal(t, "No record found with ID: 999999", result)

	result, err = d.Call(ctx, "delete_app_usage_record", json.RawMessage(`{"record_id": -1}`))
	require.NoError(t, err)
	require.Equal(t, "Error: Invalid record ID", result)

	_, err = d.Call(ctx, "insert_app_usage_record", insertArgs("bob"))
	require.NoError(t, err)
	result, err = d.Call(ctx, "delete_app_usage_record", json.RawMessage(`{"record_id": 1}`))
	require.NoError(t, err)
	require.Equal(t, "Successfully deleted record with ID: 1", result)
}

func TestListToolJSONShape(t *testing.T) {
	d := newTestDispatcher(t, nil)
	ctx := context.Background()

	_, err := d.Call(ctx, "insert_app_usage_record", insertArgs("carol"))
	require.NoError(t, err)

	result, err := d.Call(ctx, "get_all_app_usage_records", json.RawMessage(`{"limit": 5}`))
	require.NoError(t, err)

	var payload struct {
		TotalRecords int `json:"total_records"`
		LimitApplied int `json:"limit_applied"`
		Records      []struct {
			User string `json:"user"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	require.Equal(t, 1, payload.TotalRecords)
	require.Equal(t, 5, payload.LimitApplied)
	require.Equal(t, "carol", payload.Records[0].User)
}

func TestByUserToolRequiresUser(t *testing.T) {
	d := newTestDispatcher(t, nil)

	result, err := d.Call(context.Background(), "get_app_usage_by_user", json.RawMessage(`{"user": "  "}`))
	require.NoError(t, err)
	require.Equal(t, "Error: User parameter is required", result)
}

func TestStatsToolJSONShape(t *testing.T) {
	d := newTestDispatcher(t, nil)
	ctx := context.Background()

	_, err := d.Call(ctx, "insert_app_usage_record", insertArgs("dave"))
	require.NoError(t, err)

	result, err := d.Call(ctx, "get_database_stats", json.RawMessage(`{}`))
	require.NoError(t, err)

	var stats struct {
		TotalRecords int              `json:"total_records"`
		Platforms    map[string]int64 `json:"platform_distribution"`
		RateLimiting string           `json:"rate_limiting"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &stats))
	require.Equal(t, 1, stats.TotalRecords)
	require.EqualValues(t, 1, stats.Platforms["linux"])
	require.Equal(t, "100 requests per 60s", stats.RateLimiting)
}

func TestUnknownToolIsProtocolError(t *testing.T) {
	d := newTestDispatcher(t, nil)

	_, err := d.Call(context.Background(), "drop_all_tables", json.RawMessage(`{}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown tool")
}

func TestToolDefinitionsComplete(t *testing.T) {
	d := newTestDispatcher(t, nil)

	names := map[string]bool{}
	for _, def := range d.Tools() {
		require.NotEmpty(t, def.Description)
		require.True(t, json.Valid(def.InputSchema), "schema for %s must be valid JSON", def.Name)
		names[def.Name] = true
	}
	for _, want := range []string{
		"insert_app_usage_record",
		"delete_app_usage_record",
		"get_all_app_usage_records",
		"get_app_usage_by_user",
		"get_database_stats",
	} {
		require.True(t, names[want], "missing tool %s", want)
	}
}
