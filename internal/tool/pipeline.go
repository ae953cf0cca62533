// Package tool implements the dispatch pipeline that wraps every remote
// tool invocation: admission check, audit logging, input validation, then
// execution. All outcomes collapse to a single string result; nothing
// panics or errors across the dispatcher boundary.
package tool

import (
	"context"
	"log/slog"

	"github.com/rmoralesv/go-app-monitor/internal/ratelimit"
)

// Request is the value a tool invocation carries through the pipeline.
type Request struct {
	Tool string
	// StringArgs are the caller-supplied string arguments, subject to
	// length and character validation.
	StringArgs []string
}

// Result is a terminal pipeline outcome.
type Result struct {
	Text string
}

// Stage inspects a request before execution. Returning a non-nil Result
// short-circuits the pipeline; returning nil continues to the next stage.
type Stage func(ctx context.Context, req *Request) *Result

// Pipeline runs an ordered list of stages, then the operation itself.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds a pipeline from stages, applied in order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run sends req through every stage and, if none short-circuits, executes
// exec and returns its result.
func (p *Pipeline) Run(ctx context.Context, req *Request, exec func(context.Context) string) string {
	for _, stage := range p.stages {
		if res := stage(ctx, req); res != nil {
			return res.Text
		}
	}
	return exec(ctx)
}

// RateCheck rejects the request when the shared admission window is full.
// Rejection is cheap and never reaches the store.
func RateCheck(limiter *ratelimit.Limiter) Stage {
	return func(_ context.Context, req *Request) *Result {
		if !limiter.Allow() {
			slog.Warn("rate limit exceeded", "tool", req.Tool)
			return &Result{Text: "Error: Rate limit exceeded. Please try again later."}
		}
		return nil
	}
}

// AuditLog records the invocation when audit logging is enabled. It never
// rejects.
func AuditLog(enabled bool) Stage {
	return func(_ context.Context, req *Request) *Result {
		if enabled {
			slog.Info("tool called", "tool", req.Tool, "string_args", len(req.StringArgs))
		}
		return nil
	}
}
