package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/dto"
	"github.com/ledgermate/ledgermate/internal/middleware"
)

// walletHandler handles HTTP requests for shared wallets.
type walletHandler struct {
	syncService portssvc.SyncSvcFacade
}

// newWalletHandler creates a new walletHandler.
func newWalletHandler(ss portssvc.SyncSvcFacade) *walletHandler {
	return &walletHandler{syncService: ss}
}

// registerWalletRoutes registers routes for shared wallet management.
func registerWalletRoutes(rg *gin.RouterGroup, syncService portssvc.SyncSvcFacade) {
	h := newWalletHandler(syncService)

	wallets := rg.Group("/wallets")
	{
		wallets.GET("", h.listWallets)
		wallets.POST("", h.createWallet)
		wallets.DELETE("/:id", h.deleteWallet)
	}
}

// listWallets returns the wallets the signed-in user belongs to.
func (h *walletHandler) listWallets(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	wallets, err := h.syncService.ListWallets(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list wallets")
		return
	}

	c.JSON(http.StatusOK, dto.ToWalletResponses(wallets))
}

// createWallet creates a shared wallet owned by the signed-in user.
func (h *walletHandler) createWallet(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateWallet", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	wallet, err := h.syncService.CreateWallet(c.Request.Context(), req.Name, req.CurrencyCode)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create wallet")
		return
	}

	logger.Info("Wallet created", slog.String("wallet_id", wallet.WalletID))
	c.JSON(http.StatusCreated, dto.ToWalletResponse(wallet))
}

// deleteWallet deletes a wallet. If it is the active context the engine
// switches back to the personal space first.
func (h *walletHandler) deleteWallet(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	walletID := c.Param("id")

	if err := h.syncService.DeleteWallet(c.Request.Context(), walletID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete wallet")
		return
	}

	logger.Info("Wallet deleted", slog.String("wallet_id", walletID))
	c.Status(http.StatusNoContent)
}
