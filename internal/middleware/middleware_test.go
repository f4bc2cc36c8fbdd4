package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Jinomee/jURL/internal/middleware"
	"github.com/Jinomee/jURL/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestRateLimiter_Middleware первые запросы в пределах burst проходят,
// следующий отсекается с 429
func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
	})

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// setupAdminRouter тестовый роутер с защищённым эндпоинтом
func setupAdminRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := service.NewAuth(string(hash), "test-secret", time.Hour)
	token, err := auth.Login("s3cret")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin", middleware.RequireAdmin(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString("auth_subject")})
	})

	return router, token
}

// TestRequireAdmin_ValidToken валидный Bearer-токен пропускается,
// субъект доступен обработчику
func TestRequireAdmin_ValidToken(t *testing.T) {
	router, token := setupAdminRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")
}

// TestRequireAdmin_MissingToken запрос без токена отклоняется
func TestRequireAdmin_MissingToken(t *testing.T) {
	router, _ := setupAdminRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestRequireAdmin_InvalidToken мусорный токен отклоняется
func TestRequireAdmin_InvalidToken(t *testing.T) {
	router, _ := setupAdminRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
