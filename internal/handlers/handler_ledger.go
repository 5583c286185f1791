package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/dto"
	"github.com/ledgermate/ledgermate/internal/middleware"
)

// ledgerHandler handles HTTP requests against the active context's dataset.
type ledgerHandler struct {
	ledger portssvc.LedgerSvcFacade
}

// newLedgerHandler creates a new ledgerHandler.
func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledger: ls}
}

// registerLedgerRoutes registers routes for transactions, accounts,
// categories, budgets and settings.
func registerLedgerRoutes(rg *gin.RouterGroup, ledger portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledger)

	rg.GET("/snapshot", h.getSnapshot)

	txns := rg.Group("/transactions")
	{
		txns.GET("", h.listTransactions)
		txns.POST("", h.createTransaction)
		txns.PUT("/:id", h.updateTransaction)
		txns.DELETE("/:id", h.deleteTransaction)
		txns.POST("/import", h.importTransactions)
	}

	accounts := rg.Group("/accounts")
	{
		accounts.GET("", h.listAccounts)
		accounts.POST("", h.createAccount)
		accounts.PUT("/:id", h.updateAccount)
		accounts.DELETE("/:id", h.deleteAccount)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", h.listCategories)
		categories.POST("", h.createCategory)
		categories.PUT("/:id", h.updateCategory)
		categories.DELETE("/:id", h.deleteCategory)
		categories.PUT("/:id/budget", h.setCategoryBudget)
	}

	rg.PUT("/budget", h.setBudget)
	rg.PUT("/settings", h.updateSettings)
}

// getSnapshot returns the complete dataset of the active context.
func (h *ledgerHandler) getSnapshot(c *gin.Context) {
	snap := h.ledger.Snapshot()
	c.JSON(http.StatusOK, dto.ToSnapshotResponse(snap))
}

func (h *ledgerHandler) listTransactions(c *gin.Context) {
	snap := h.ledger.Snapshot()
	c.JSON(http.StatusOK, dto.ToTransactionResponses(snap.Transactions))
}

func (h *ledgerHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	created, err := h.ledger.CreateTransaction(c.Request.Context(), req.ToDomain())
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create transaction")
		return
	}

	logger.Info("Transaction created", slog.String("transaction_id", created.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(created))
}

func (h *ledgerHandler) updateTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	var req dto.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.ledger.UpdateTransaction(c.Request.Context(), req.ToDomain(transactionID)); err != nil {
		respondServiceError(c, logger, err, "Failed to update transaction")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) deleteTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	if err := h.ledger.DeleteTransaction(c.Request.Context(), transactionID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete transaction")
		return
	}

	logger.Info("Transaction deleted", slog.String("transaction_id", transactionID))
	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) importTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ImportTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ImportTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	batch := make([]domain.Transaction, 0, len(req.Transactions))
	for _, r := range req.Transactions {
		batch = append(batch, r.ToDomain())
	}

	imported, err := h.ledger.ImportTransactions(c.Request.Context(), batch)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to import transactions")
		return
	}

	logger.Info("Transactions imported", slog.Int("imported", imported), slog.Int("submitted", len(req.Transactions)))
	c.JSON(http.StatusOK, dto.ImportTransactionsResponse{
		Imported: imported,
		Rejected: len(req.Transactions) - imported,
	})
}

func (h *ledgerHandler) listAccounts(c *gin.Context) {
	snap := h.ledger.Snapshot()
	c.JSON(http.StatusOK, dto.ToAccountResponses(snap.Accounts))
}

func (h *ledgerHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	created, err := h.ledger.CreateAccount(c.Request.Context(), domain.Account{
		Name:         req.Name,
		CurrencyCode: req.CurrencyCode,
		Balance:      req.Balance,
	})
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create account")
		return
	}

	logger.Info("Account created", slog.String("account_id", created.AccountID), slog.String("account_name", created.Name))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(created))
}

func (h *ledgerHandler) updateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	acc := domain.Account{
		AccountID:    accountID,
		Name:         req.Name,
		CurrencyCode: req.CurrencyCode,
		Balance:      req.Balance,
	}
	if err := h.ledger.UpdateAccount(c.Request.Context(), acc); err != nil {
		respondServiceError(c, logger, err, "Failed to update account")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) deleteAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	if err := h.ledger.DeleteAccount(c.Request.Context(), accountID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete account")
		return
	}

	logger.Info("Account deleted", slog.String("account_id", accountID))
	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) listCategories(c *gin.Context) {
	snap := h.ledger.Snapshot()
	c.JSON(http.StatusOK, dto.ToCategoryResponses(snap.Categories))
}

func (h *ledgerHandler) createCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateCategory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	created, err := h.ledger.CreateCategory(c.Request.Context(), domain.Category{
		Name: req.Name,
		Kind: req.Kind,
		Icon: req.Icon,
	})
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create category")
		return
	}

	logger.Info("Category created", slog.String("category_id", created.CategoryID))
	c.JSON(http.StatusCreated, dto.ToCategoryResponse(created))
}

func (h *ledgerHandler) updateCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	categoryID := c.Param("id")

	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateCategory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	cat := domain.Category{
		CategoryID: categoryID,
		Name:       req.Name,
		Kind:       req.Kind,
		Icon:       req.Icon,
	}
	if err := h.ledger.UpdateCategory(c.Request.Context(), cat); err != nil {
		respondServiceError(c, logger, err, "Failed to update category")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) deleteCategory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	categoryID := c.Param("id")

	if err := h.ledger.DeleteCategory(c.Request.Context(), categoryID); err != nil {
		respondServiceError(c, logger, err, "Failed to delete category")
		return
	}

	logger.Info("Category deleted", slog.String("category_id", categoryID))
	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) setBudget(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetBudget", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.ledger.SetBudget(c.Request.Context(), req.Amount); err != nil {
		respondServiceError(c, logger, err, "Failed to set budget")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) setCategoryBudget(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	categoryID := c.Param("id")

	var req dto.SetCategoryBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetCategoryBudget", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.ledger.SetCategoryBudget(c.Request.Context(), categoryID, req.Amount); err != nil {
		respondServiceError(c, logger, err, "Failed to set category budget")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ledgerHandler) updateSettings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateSettings", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.ledger.UpdateSettings(c.Request.Context(), req.ToDomain()); err != nil {
		respondServiceError(c, logger, err, "Failed to update settings")
		return
	}

	c.Status(http.StatusNoContent)
}

// respondServiceError maps service errors onto HTTP status codes.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate resource", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSyncInProgress):
		logger.Warn("Push in flight", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		logger.Warn("Unauthorized", slog.String("error", err.Error()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrOffline):
		logger.Warn("Remote unavailable while offline", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrTransport):
		logger.Error("Remote gateway unreachable", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
