package middleware

import (
	"net/http"
	"strings"

	"github.com/Jinomee/jURL/internal/service"
	"github.com/gin-gonic/gin"
)

// RequireAdmin пропускает запрос, только если предъявлен валидный
// токен сессии администратора. Токен принимается из заголовка
// Authorization: Bearer <token>.
func RequireAdmin(auth service.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization token is required",
			})
			c.Abort()
			return
		}

		subject, err := auth.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// Identity claim для последующих handlers
		c.Set("auth_subject", subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
