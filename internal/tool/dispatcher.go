package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
	"github.com/rmoralesv/go-app-monitor/internal/port"
	"github.com/rmoralesv/go-app-monitor/internal/ratelimit"
	"github.com/rmoralesv/go-app-monitor/internal/service"
)

// Definition describes one remote-callable tool.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Dispatcher routes named tool calls through the stage pipeline to the
// usage service and renders every outcome as a string.
type Dispatcher struct {
	usage    *service.UsageService
	pipeline *Pipeline
	audit    bool
}

// NewDispatcher wires the pipeline: rate check, audit log, validation,
// in that order, ahead of every operation.
func NewDispatcher(usage *service.UsageService, limiter *ratelimit.Limiter, auditEnabled bool) *Dispatcher {
	return &Dispatcher{
		usage:    usage,
		pipeline: NewPipeline(RateCheck(limiter), AuditLog(auditEnabled), Validate()),
		audit:    auditEnabled,
	}
}

// Tools lists the available tool definitions.
func (d *Dispatcher) Tools() []Definition {
	return []Definition{
		{
			Name:        "insert_app_usage_record",
			Description: "Insert a new application usage record",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"monitor_app_version": {"type": "string", "description": "Version of the monitoring agent"},
					"platform": {"type": "string", "description": "Operating system / platform"},
					"user": {"type": "string", "description": "User the session belongs to"},
					"application_name": {"type": "string", "description": "Application that was used"},
					"application_version": {"type": "string", "description": "Application version"},
					"log_date": {"type": "string", "description": "Observation timestamp, ISO-8601"},
					"legacy_app": {"type": "boolean", "description": "Whether the application is a legacy one"},
					"duration_seconds": {"type": "integer", "description": "Session duration, 0-86400"}
				},
				"required": ["monitor_app_version", "platform", "user", "application_name", "application_version", "log_date", "legacy_app", "duration_seconds"]
			}`),
		},
		{
			Name:        "delete_app_usage_record",
			Description: "Delete an application usage record by id",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"record_id": {"type": "integer", "description": "Record id to delete"}
				},
				"required": ["record_id"]
			}`),
		},
		{
			Name:        "get_all_app_usage_records",
			Description: "Retrieve application usage records, newest first",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "description": "Maximum records to return"}
				}
			}`),
		},
		{
			Name:        "get_app_usage_by_user",
			Description: "Retrieve application usage records for one user",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"user": {"type": "string", "description": "Exact user to filter by"},
					"limit": {"type": "integer", "description": "Maximum records to return"}
				},
				"required": ["user"]
			}`),
		},
		{
			Name:        "get_database_stats",
			Description: "Get usage store statistics",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
	}
}

// Call invokes a tool by name. All operational outcomes — success,
// rejection, not-found, masked store failure — come back as the string
// result; the error return is reserved for protocol problems (unknown
// tool, undecodable arguments).
func (d *Dispatcher) Call(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	var result string
	switch name {
	case "insert_app_usage_record":
		var args struct {
			MonitorAppVersion  string `json:"monitor_app_version"`
			Platform           string `json:"platform"`
			User               string `json:"user"`
			ApplicationName    string `json:"application_name"`
			ApplicationVersion string `json:"application_version"`
			LogDate            string `json:"log_date"`
			LegacyApp          bool   `json:"legacy_app"`
			DurationSeconds    int64  `json:"duration_seconds"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		req := &Request{Tool: name, StringArgs: []string{
			args.MonitorAppVersion, args.Platform, args.User,
			args.ApplicationName, args.ApplicationVersion, args.LogDate,
		}}
		result = d.run(ctx, req, func(ctx context.Context) string {
			id, err := d.usage.Insert(ctx, domain.UsageRecord{
				MonitorAppVersion:  args.MonitorAppVersion,
				Platform:           args.Platform,
				User:               args.User,
				ApplicationName:    args.ApplicationName,
				ApplicationVersion: args.ApplicationVersion,
				LogDate:            args.LogDate,
				LegacyApp:          args.LegacyApp,
				DurationSeconds:    args.DurationSeconds,
			})
			if err != nil {
				return errText(err, "Error inserting record: Database operation failed")
			}
			return fmt.Sprintf("Successfully inserted record with ID: %d", id)
		})

	case "delete_app_usage_record":
		var args struct {
			RecordID int64 `json:"record_id"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		req := &Request{Tool: name}
		result = d.run(ctx, req, func(ctx context.Context) string {
			err := d.usage.Delete(ctx, args.RecordID)
			if errors.Is(err, port.ErrNotFound) {
				return fmt.Sprintf("No record found with ID: %d", args.RecordID)
			}
			if err != nil {
				return errText(err, "Error deleting record: Database operation failed")
			}
			return fmt.Sprintf("Successfully deleted record with ID: %d", args.RecordID)
		})

	case "get_all_app_usage_records":
		var args struct {
			Limit *int `json:"limit"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		req := &Request{Tool: name}
		result = d.run(ctx, req, func(ctx context.Context) string {
			limit := d.usage.MaxQueryResults()
			if args.Limit != nil {
				limit = *args.Limit
			}
			list, err := d.usage.List(ctx, limit)
			if err != nil {
				return errText(err, "Error retrieving records: Database operation failed")
			}
			return toJSON(list)
		})

	case "get_app_usage_by_user":
		var args struct {
			User  string `json:"user"`
			Limit *int   `json:"limit"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		req := &Request{Tool: name, StringArgs: []string{args.User}}
		result = d.run(ctx, req, func(ctx context.Context) string {
			limit := 0
			if args.Limit != nil {
				limit = *args.Limit
			}
			list, err := d.usage.ListByUser(ctx, args.User, limit)
			if err != nil {
				return errText(err, "Error retrieving records: Database operation failed")
			}
			return toJSON(list)
		})

	case "get_database_stats":
		req := &Request{Tool: name}
		result = d.run(ctx, req, func(ctx context.Context) string {
			stats, err := d.usage.Stats(ctx)
			if err != nil {
				return errText(err, "Error getting database stats: Database operation failed")
			}
			return toJSON(stats)
		})

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	return result, nil
}

// run sends a request through the pipeline. The completion log is part of
// the exec path so a short-circuited call (rate limited, invalid input)
// never reports completion.
func (d *Dispatcher) run(ctx context.Context, req *Request, exec func(context.Context) string) string {
	return d.pipeline.Run(ctx, req, func(ctx context.Context) string {
		out := exec(ctx)
		if d.audit {
			slog.Info("tool completed", "tool", req.Tool)
		}
		return out
	})
}

// errText renders an operation error: validation rejections surface their
// reason, everything else collapses to the generic failure text.
func errText(err error, failText string) string {
	var ve *port.ValidationError
	if errors.As(err, &ve) {
		return "Error: " + ve.Reason
	}
	return failText
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "Error encoding result"
	}
	return string(b)
}
