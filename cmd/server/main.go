package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/rmoralesv/go-app-monitor/internal/adapter/store"
	"github.com/rmoralesv/go-app-monitor/internal/backup"
	"github.com/rmoralesv/go-app-monitor/internal/handler"
	"github.com/rmoralesv/go-app-monitor/internal/mcp"
	"github.com/rmoralesv/go-app-monitor/internal/middleware"
	"github.com/rmoralesv/go-app-monitor/internal/ratelimit"
	"github.com/rmoralesv/go-app-monitor/internal/service"
	"github.com/rmoralesv/go-app-monitor/internal/tool"
	"github.com/rmoralesv/go-app-monitor/pkg/config"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("starting App Monitor Server",
		"port", cfg.Port,
		"db_driver", cfg.DBDriver,
		"max_query_results", cfg.MaxQueryResults,
		"rate_limit", cfg.RateLimitSummary(),
		"audit_log", cfg.EnableAuditLog,
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx := context.Background()

	// ── Database ─────────────────────────────────────────────────────────
	usageStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer usageStore.Close()

	// ── Core pipeline ────────────────────────────────────────────────────
	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	usageService := service.NewUsageService(usageStore, cfg)
	dispatcher := tool.NewDispatcher(usageService, limiter, cfg.EnableAuditLog)

	// ── Backups (sqlite only) ────────────────────────────────────────────
	if sqliteStore, ok := usageStore.(*store.SQLiteStore); ok {
		backup.CleanupSidecarFiles(filepath.Dir(sqliteStore.Path()))
		if cfg.BackupEnabled {
			scheduler := backup.NewScheduler(sqliteStore, cfg.BackupInterval)
			go scheduler.Run(ctx)
			slog.Info("backup scheduler started", "interval", cfg.BackupInterval)
		}
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())
	app.Use(middleware.RequestAudit(cfg.EnableAuditLog))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── API Routes (behind the shared admission gate) ────────────────────
	api := app.Group("/api/v1", middleware.RateLimit(limiter))

	usageHandler := handler.NewUsageHandler(usageService)
	usageHandler.Register(api)

	statsHandler := handler.NewStatsHandler(usageService)
	statsHandler.Register(api)

	auditHandler := handler.NewAuditHandler(usageService)
	auditHandler.Register(api)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(dispatcher, cfg.AppName, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging points slog at stderr with the configured level.
func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
