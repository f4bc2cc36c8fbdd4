package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/Jinomee/jURL/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MappingHandler struct {
	lifecycle service.Lifecycle
	resolver  service.Resolver
	logger    *zap.Logger
	baseURL   string
}

func NewMappingHandler(lifecycle service.Lifecycle, resolver service.Resolver, logger *zap.Logger, baseURL string) *MappingHandler {
	return &MappingHandler{
		lifecycle: lifecycle,
		resolver:  resolver,
		logger:    logger,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

type MappingResponse struct {
	*models.Mapping
	ShortURL string `json:"short_url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (h *MappingHandler) mappingResponse(m *models.Mapping) MappingResponse {
	return MappingResponse{
		Mapping:  m,
		ShortURL: h.baseURL + "/" + m.ShortCode,
	}
}

// CreateURL godoc
// @Summary Create a short URL
// @Description Create a new short code for an original URL
// @Tags urls
// @Accept json
// @Produce json
// @Param request body models.CreateMappingInput true "URL creation request"
// @Success 201 {object} MappingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/urls [post]
func (h *MappingHandler) CreateURL(c *gin.Context) {
	var input models.CreateMappingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	m, err := h.lifecycle.Create(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, err, "Failed to create short URL")
		return
	}

	c.JSON(http.StatusCreated, h.mappingResponse(m))
}

// Redirect godoc
// @Summary Redirect to original URL
// @Description Resolve a short code and redirect, counting the click
// @Tags urls
// @Param code path string true "Short code"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /{code} [get]
func (h *MappingHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	originalURL, err := h.resolver.Resolve(c.Request.Context(), code)
	if err != nil {
		// not_found и expired различаются: UI показывает для них
		// разные страницы
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Short URL not found",
			})
		case errors.Is(err, service.ErrExpired):
			c.JSON(http.StatusGone, ErrorResponse{
				Error:   "expired",
				Message: "Short URL has expired",
			})
		default:
			h.logger.Error("Failed to resolve short URL", zap.String("code", code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to resolve short URL",
			})
		}
		return
	}

	c.Redirect(http.StatusFound, originalURL)
}

// Validate godoc
// @Summary Validate a short code
// @Description Check a short code without counting a click or touching state
// @Tags urls
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/urls/{code}/validate [get]
func (h *MappingHandler) Validate(c *gin.Context) {
	code := c.Param("code")

	originalURL, err := h.resolver.Peek(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Short URL not found",
			})
		case errors.Is(err, service.ErrExpired):
			c.JSON(http.StatusGone, ErrorResponse{
				Error:   "expired",
				Message: "Short URL has expired",
			})
		default:
			h.logger.Error("Failed to peek short URL", zap.String("code", code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to validate short URL",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"original_url": originalURL})
}

// ListURLs godoc
// @Summary List short URLs
// @Description Paginated list of all mappings, newest first (admin)
// @Tags admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} models.MappingPage
// @Failure 500 {object} ErrorResponse
// @Router /api/urls [get]
func (h *MappingHandler) ListURLs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.lifecycle.List(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.Error("Failed to list URLs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list URLs",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetURL godoc
// @Summary Get a mapping by id
// @Tags admin
// @Produce json
// @Param id path string true "Mapping id"
// @Success 200 {object} MappingResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/id/{id} [get]
func (h *MappingHandler) GetURL(c *gin.Context) {
	m, err := h.lifecycle.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get URL")
		return
	}

	c.JSON(http.StatusOK, h.mappingResponse(m))
}

// UpdateURL godoc
// @Summary Update a mapping
// @Description Edit original URL and/or expiry; the cache entry is refreshed
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Mapping id"
// @Param request body models.UpdateMappingInput true "Fields to update"
// @Success 200 {object} MappingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/id/{id} [put]
func (h *MappingHandler) UpdateURL(c *gin.Context) {
	var input models.UpdateMappingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	m, err := h.lifecycle.Update(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		h.respondError(c, err, "Failed to update URL")
		return
	}

	c.JSON(http.StatusOK, h.mappingResponse(m))
}

// RefreshURL godoc
// @Summary Refresh a mapping's cache entry
// @Description Re-read the mapping from the store and rebuild its cache entry
// @Tags admin
// @Produce json
// @Param id path string true "Mapping id"
// @Success 200 {object} MappingResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/refresh/{id} [get]
func (h *MappingHandler) RefreshURL(c *gin.Context) {
	m, err := h.lifecycle.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to refresh URL")
		return
	}

	c.JSON(http.StatusOK, h.mappingResponse(m))
}

// DeleteURL godoc
// @Summary Delete a mapping
// @Description Remove the record and purge its cache entry
// @Tags admin
// @Produce json
// @Param id path string true "Mapping id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/id/{id} [delete]
func (h *MappingHandler) DeleteURL(c *gin.Context) {
	if err := h.lifecycle.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete URL")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL deleted successfully"})
}

// GetStats godoc
// @Summary Aggregate statistics
// @Description Totals computed from the durable store (admin)
// @Tags admin
// @Produce json
// @Success 200 {object} models.MappingStats
// @Failure 500 {object} ErrorResponse
// @Router /api/urls/stats [get]
func (h *MappingHandler) GetStats(c *gin.Context) {
	stats, err := h.lifecycle.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get statistics",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Cleanup godoc
// @Summary Sweep expired mappings
// @Description Manually trigger the expiry sweep (admin)
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 500 {object} ErrorResponse
// @Router /api/urls/cleanup [post]
func (h *MappingHandler) Cleanup(c *gin.Context) {
	count, err := h.lifecycle.SweepExpired(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to sweep expired URLs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to clean up expired URLs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": count})
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError единое отображение типизированных ошибок сервиса в HTTP
func (h *MappingHandler) respondError(c *gin.Context, err error, logMsg string) {
	if ve, ok := service.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: ve.Message,
			Field:   ve.Field,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "URL not found",
		})
	case errors.Is(err, service.ErrCodeGenerationExhausted):
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "code_generation_exhausted",
			Message: "Could not generate a unique short code, please retry",
		})
	default:
		// Все прочие ошибки схлопываются в generic failure
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}
