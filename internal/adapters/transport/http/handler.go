package http

import (
	"net/http"

	"github.com/casaviva/auth-service/internal/adapters/transport/http/dto"
	"github.com/casaviva/auth-service/internal/adapters/transport/http/middleware"
	"github.com/casaviva/auth-service/internal/app/auth/service"
	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	"github.com/casaviva/auth-service/internal/infra/config"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const refreshCookieName = "refresh_token"

// refreshCookiePath scopes the cookie to the auth endpoints so it is not
// replayed to the rest of the API.
const refreshCookiePath = "/api/auth"

type AuthHandler struct {
	svc service.Service
	cfg *config.Config
	v   *validator.Validate
	log *zap.Logger
}

func NewAuthHandler(svc service.Service, cfg *config.Config, v *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg, v: v, log: log}
}

// RegisterRoutes mounts the auth API. The gate guards the bearer-only
// endpoints; refresh and logout authenticate by cookie instead, because an
// expired access token must not lock a client out of refreshing.
func (h *AuthHandler) RegisterRoutes(r *gin.Engine, gate *middleware.Gate) {
	auth := r.Group("/api/auth")

	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password", h.ResetPassword)
	auth.GET("/verify-email/:userId/:token", h.VerifyEmail)

	protected := auth.Group("")
	protected.Use(gate.Authenticate())
	protected.POST("/logout-all", h.LogoutAll)
	protected.POST("/change-password", h.ChangePassword)
	protected.GET("/profile", h.Profile)
	protected.PUT("/profile", h.UpdateProfile)
	protected.POST("/resend-verification", h.ResendVerification)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	if err := h.v.Struct(body); err != nil {
		respondValidation(c, err)
		return
	}

	user, pair, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, int(pair.RefreshTTL.Seconds()))
	respondOK(c, http.StatusCreated, "user registered", gin.H{
		"user":        toUserResponse(user),
		"accessToken": pair.AccessToken,
		"expiresIn":   int(pair.AccessTTL.Seconds()),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	if err := h.v.Struct(body); err != nil {
		respondValidation(c, err)
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, int(pair.RefreshTTL.Seconds()))
	respondOK(c, http.StatusOK, "login successful", gin.H{
		"user":        toUserResponse(user),
		"accessToken": pair.AccessToken,
		"expiresIn":   int(pair.AccessTTL.Seconds()),
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		respondError(c, h.log, customErrors.ErrInvalidRefreshToken)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		h.clearRefreshCookie(c)
		respondError(c, h.log, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken, int(pair.RefreshTTL.Seconds()))
	respondOK(c, http.StatusOK, "token refreshed", gin.H{
		"accessToken": pair.AccessToken,
		"expiresIn":   int(pair.AccessTTL.Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	// Absent cookie is fine; logout is idempotent.
	raw, _ := c.Cookie(refreshCookieName)

	if err := h.svc.Logout(c.Request.Context(), raw); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.clearRefreshCookie(c)
	respondOK(c, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.log, customErrors.ErrNotAuthenticated)
		return
	}

	if err := h.svc.LogoutAll(c.Request.Context(), identity.ID); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.clearRefreshCookie(c)
	respondOK(c, http.StatusOK, "logged out everywhere", nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.log, customErrors.ErrNotAuthenticated)
		return
	}

	var body dto.ChangePasswordDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	if err := h.v.Struct(body); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), identity.ID, body); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.clearRefreshCookie(c)
	respondOK(c, http.StatusOK, "password changed, please sign in again", nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var body dto.ForgotPasswordDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	if err := h.v.Struct(body); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), body.Email); err != nil {
		respondError(c, h.log, err)
		return
	}

	// The answer is the same whether or not the email is registered.
	respondOK(c, http.StatusOK, "if that email is registered, a reset link has been sent", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var body dto.ResetPasswordDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	if err := h.v.Struct(body); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), body); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "password reset, please sign in", nil)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.log, customErrors.ErrNotAuthenticated)
		return
	}

	user, err := h.svc.Profile(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "profile", gin.H{"user": toUserResponse(user)})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.log, customErrors.ErrNotAuthenticated)
		return
	}

	var body dto.UpdateProfileDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	if err := h.v.Struct(body); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), identity.ID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "profile updated", gin.H{"user": toUserResponse(user)})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, h.log, customErrors.NewInvalidArgument("malformed user id"))
		return
	}
	token := c.Param("token")

	if err := h.svc.VerifyEmail(c.Request.Context(), userID, token); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "email verified", nil)
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.log, customErrors.ErrNotAuthenticated)
		return
	}

	if _, err := h.svc.ResendVerification(c.Request.Context(), identity.ID); err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "verification email sent", nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		refreshCookieName,
		token,
		maxAge,
		refreshCookiePath,
		h.cfg.CookieDomain,
		h.cfg.CookieSecure,
		true, // httpOnly
	)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}
