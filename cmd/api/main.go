package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jinomee/jURL/internal/config"
	"github.com/Jinomee/jURL/internal/handler"
	"github.com/Jinomee/jURL/internal/middleware"
	"github.com/Jinomee/jURL/internal/repository"
	"github.com/Jinomee/jURL/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}
	cancel()

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	mappingRepo := repository.NewMappingRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)

	// Инициализация сервисов
	generator := service.NewCodeGenerator(mappingRepo)
	resolver := service.NewResolver(mappingRepo, cacheRepo, logger, cfg.Shortener.DefaultCacheTTL)
	lifecycle := service.NewLifecycle(
		mappingRepo,
		cacheRepo,
		generator,
		logger,
		cfg.Shortener.CodeLength,
		cfg.Shortener.DefaultCacheTTL,
	)
	auth := service.NewAuth(cfg.Auth.AdminPasswordHash, cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is not set, admin endpoints are inaccessible")
	}

	// Фоновая очистка истёкших ссылок
	sweeper := service.NewSweeper(lifecycle, logger, cfg.Sweep.Interval)
	sweeper.Start()
	defer sweeper.Stop()

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	// Настройка роутера
	router := handler.NewRouter(handler.RouterDeps{
		Lifecycle:   lifecycle,
		Resolver:    resolver,
		Auth:        auth,
		RateLimiter: rateLimiter,
		Logger:      logger,
		BaseURL:     cfg.App.BaseURL,
	})

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
