package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgermate/ledgermate/internal/core/services"
	"github.com/ledgermate/ledgermate/internal/middleware"
	"github.com/ledgermate/ledgermate/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using
// interfaces.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	container *services.Container,
) {
	registerCustomValidators()

	// Health check and other unauthenticated service routes
	registerHomeRoutes(r)

	// Public authentication routes
	registerAuthRoutes(r, cfg, container.Sync)

	// API v1 routes behind the auth middleware
	setupAPIV1Routes(r, cfg, container)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific
// route registrations.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	container *services.Container,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	registerLogoutRoute(v1, container.Sync, cfg)
	registerLedgerRoutes(v1, container.Ledger)
	registerSyncRoutes(v1, container.Sync, container.Contexts)
	registerWalletRoutes(v1, container.Sync)
	registerNotificationRoutes(v1, container.Realtime)
}
