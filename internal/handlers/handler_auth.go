package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/dto"
	"github.com/ledgermate/ledgermate/internal/middleware"
	"github.com/ledgermate/ledgermate/internal/platform/config"
	"github.com/ledgermate/ledgermate/internal/utils"
)

// authHandler handles authentication against the remote provider and issues
// local API tokens for this process.
type authHandler struct {
	syncService portssvc.SyncSvcFacade
	cfg         *config.Config
}

// newAuthHandler creates a new authHandler.
func newAuthHandler(ss portssvc.SyncSvcFacade, cfg *config.Config) *authHandler {
	return &authHandler{syncService: ss, cfg: cfg}
}

// registerAuthRoutes registers the public authentication routes.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, syncService portssvc.SyncSvcFacade) {
	h := newAuthHandler(syncService, cfg)

	auth := r.Group("/auth")
	{
		auth.POST("/login", h.login)
		auth.POST("/signup", h.signup)
		auth.POST("/reset-password", h.resetPassword)
	}
}

// registerLogoutRoute registers logout behind the auth middleware.
func registerLogoutRoute(rg *gin.RouterGroup, syncService portssvc.SyncSvcFacade, cfg *config.Config) {
	h := newAuthHandler(syncService, cfg)
	rg.POST("/auth/logout", h.logout)
}

// login authenticates against the remote provider, runs the pull decision and
// returns a local API token.
func (h *authHandler) login(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Login", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.syncService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to log in")
		return
	}

	token, err := utils.GenerateJWT(sess.User.UserID, h.cfg.JWTSecret, h.cfg.JWTExpiryDuration, h.cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to generate token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.Info("User logged in", slog.String("user_id", sess.User.UserID))
	c.JSON(http.StatusOK, dto.AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.cfg.JWTExpiryDuration),
		User:      dto.ToUserResponse(&sess.User),
	})
}

// signup creates a remote account and signs the new user in.
func (h *authHandler) signup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Signup", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.syncService.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to sign up")
		return
	}

	token, err := utils.GenerateJWT(sess.User.UserID, h.cfg.JWTSecret, h.cfg.JWTExpiryDuration, h.cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to generate token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.Info("User signed up", slog.String("user_id", sess.User.UserID))
	c.JSON(http.StatusCreated, dto.AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.cfg.JWTExpiryDuration),
		User:      dto.ToUserResponse(&sess.User),
	})
}

// resetPassword forwards a password reset request to the remote provider.
func (h *authHandler) resetPassword(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ResetPassword", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := h.syncService.ResetPassword(c.Request.Context(), req.Email); err != nil {
		respondServiceError(c, logger, err, "Failed to request password reset")
		return
	}

	c.Status(http.StatusAccepted)
}

// logout signs the user out and wipes local data.
func (h *authHandler) logout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.syncService.Logout(c.Request.Context()); err != nil {
		respondServiceError(c, logger, err, "Failed to log out")
		return
	}

	c.Status(http.StatusNoContent)
}
