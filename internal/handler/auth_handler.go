package handler

import (
	"errors"
	"net/http"

	"github.com/Jinomee/jURL/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   service.Auth
	logger *zap.Logger
}

func NewAuthHandler(auth service.Auth, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Login godoc
// @Summary Admin login
// @Description Exchange the admin password for a signed session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthNotConfigured) {
			h.logger.Warn("Login attempt while admin auth is not configured")
		}
		// Детали не раскрываем — снаружи любой отказ одинаков
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid credentials",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

// VerifyToken godoc
// @Summary Verify session token
// @Description Check the bearer token presented by the admin UI
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/verify [get]
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	// Middleware уже проверил токен — осталось вернуть субъект
	subject := c.GetString("auth_subject")
	c.JSON(http.StatusOK, gin.H{"subject": subject})
}
