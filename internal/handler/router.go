package handler

import (
	"github.com/Jinomee/jURL/internal/middleware"
	"github.com/Jinomee/jURL/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps зависимости роутера, собираются в main
type RouterDeps struct {
	Lifecycle   service.Lifecycle
	Resolver    service.Resolver
	Auth        service.Auth
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
	BaseURL     string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Логгирование запросов
	router.Use(func(c *gin.Context) {
		deps.Logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	mappingHandler := NewMappingHandler(deps.Lifecycle, deps.Resolver, deps.Logger, deps.BaseURL)
	authHandler := NewAuthHandler(deps.Auth, deps.Logger)

	router.GET("/health", HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/urls", mappingHandler.CreateURL)
		api.GET("/urls/:code/validate", mappingHandler.Validate)

		// Администрирование — только с валидным токеном сессии
		admin := api.Group("/")
		admin.Use(middleware.RequireAdmin(deps.Auth))
		{
			admin.GET("/auth/verify", authHandler.VerifyToken)
			admin.GET("/urls", mappingHandler.ListURLs)
			admin.GET("/urls/stats", mappingHandler.GetStats)
			admin.POST("/urls/cleanup", mappingHandler.Cleanup)
			admin.GET("/urls/refresh/:id", mappingHandler.RefreshURL)
			admin.GET("/urls/id/:id", mappingHandler.GetURL)
			admin.PUT("/urls/id/:id", mappingHandler.UpdateURL)
			admin.DELETE("/urls/id/:id", mappingHandler.DeleteURL)
		}
	}

	// Редирект по короткому коду — корневой путь, без аутентификации
	router.GET("/:code", mappingHandler.Redirect)

	return router
}
