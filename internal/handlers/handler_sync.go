package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/dto"
	"github.com/ledgermate/ledgermate/internal/middleware"
)

// syncHandler handles HTTP requests for backup, restore and context
// switching.
type syncHandler struct {
	syncService    portssvc.SyncSvcFacade
	contextService portssvc.ContextSvc
}

// newSyncHandler creates a new syncHandler.
func newSyncHandler(ss portssvc.SyncSvcFacade, cs portssvc.ContextSvc) *syncHandler {
	return &syncHandler{syncService: ss, contextService: cs}
}

// registerSyncRoutes registers the sync engine routes.
func registerSyncRoutes(rg *gin.RouterGroup, syncService portssvc.SyncSvcFacade, contextService portssvc.ContextSvc) {
	h := newSyncHandler(syncService, contextService)

	sync := rg.Group("/sync")
	{
		sync.GET("/state", h.getState)
		sync.POST("/push", h.push)
		sync.POST("/restore", h.restore)
		sync.PUT("/online", h.setOnline)
	}

	rg.POST("/context", h.switchContext)
	rg.GET("/context", h.getActiveContext)
}

// getState returns the current sync read model.
func (h *syncHandler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToSyncStateResponse(h.syncService.State()))
}

// push triggers a manual backup of the active context.
func (h *syncHandler) push(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	outcome, err := h.syncService.Push(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to push backup")
		return
	}

	state := h.syncService.State()
	logger.Info("Push finished", slog.String("outcome", string(outcome)))
	c.JSON(http.StatusOK, dto.PushResponse{Outcome: outcome, LastSync: state.LastSync})
}

// restore applies the pending remote backup with the chosen strategy.
func (h *syncHandler) restore(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Restore", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	strategy, ok := domain.ParseRestoreStrategy(req.Strategy)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown restore strategy"})
		return
	}

	if err := h.syncService.Restore(c.Request.Context(), strategy); err != nil {
		respondServiceError(c, logger, err, "Failed to restore backup")
		return
	}

	logger.Info("Restore applied", slog.String("strategy", string(strategy)))
	c.JSON(http.StatusOK, dto.ToSyncStateResponse(h.syncService.State()))
}

// setOnline flips the connectivity flag.
func (h *syncHandler) setOnline(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.SetOnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetOnline", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	h.syncService.SetOnline(c.Request.Context(), *req.Online)
	c.JSON(http.StatusOK, dto.ToSyncStateResponse(h.syncService.State()))
}

// switchContext activates a different context (personal space or a wallet).
func (h *syncHandler) switchContext(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.SwitchContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SwitchContext", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	target := domain.ContextID(req.ContextID)
	if err := h.contextService.SwitchContext(c.Request.Context(), target); err != nil {
		respondServiceError(c, logger, err, "Failed to switch context")
		return
	}

	logger.Info("Context switched", slog.String("context", target.StorageKey()))
	c.JSON(http.StatusOK, dto.ToSyncStateResponse(h.syncService.State()))
}

// getActiveContext returns the context currently live in memory.
func (h *syncHandler) getActiveContext(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contextID": string(h.contextService.ActiveContext())})
}
