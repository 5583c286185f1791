package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ledgermate/ledgermate/internal/adapters/gateway/httpapi"
	"github.com/ledgermate/ledgermate/internal/adapters/localstore/sqlite"
	"github.com/ledgermate/ledgermate/internal/core/services"
	"github.com/ledgermate/ledgermate/internal/handlers"
	"github.com/ledgermate/ledgermate/internal/middleware"
	"github.com/ledgermate/ledgermate/internal/platform/config"
	"github.com/ledgermate/ledgermate/pkg/database"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Open the local key-value store
	db, err := database.NewSQLiteDB(ctx, cfg.SQLitePath)
	if err != nil {
		logger.Error("Failed to open local database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.CloseDB(db)
	logger.Info("Local database opened", slog.String("path", cfg.SQLitePath))

	store, err := sqlite.NewStore(ctx, db)
	if err != nil {
		logger.Error("Failed to initialize local store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Remote gateway client
	gateway := httpapi.NewClient(cfg.RemoteAPIURL, cfg.RealtimeWSURL, logger)

	// Service container rehydrates persisted sync state from the store
	container := services.NewContainer(store, gateway, services.Options{
		Logger:                 logger,
		RealtimeEnabled:        cfg.RealtimeEnabled,
		AutoBackupInitialDelay: cfg.AutoBackupInitialDelay,
		AutoBackupTick:         cfg.AutoBackupTick,
	})

	engineCtx, stopEngine := context.WithCancel(middleware.WithLogger(ctx, logger))
	defer stopEngine()
	container.Start(engineCtx)
	defer container.Realtime.Close()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS for the local UI)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
