package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/Jinomee/jURL/internal/repository"
	"go.uber.org/zap"
)

// Resolver отвечает на вопрос "куда ведёт этот код и жив ли он сейчас"
type Resolver interface {
	// Resolve возвращает оригинальный URL и учитывает переход.
	// Ошибки: ErrNotFound, ErrExpired, либо ошибка хранилища.
	Resolve(ctx context.Context, shortCode string) (string, error)
	// Peek та же классификация, но без каких-либо побочных эффектов:
	// счётчик не трогается, кэш и БД не изменяются.
	Peek(ctx context.Context, shortCode string) (string, error)
}

type resolver struct {
	repo            repository.MappingRepository
	cache           repository.CacheRepository
	logger          *zap.Logger
	defaultCacheTTL time.Duration
	now             func() time.Time
}

func NewResolver(
	repo repository.MappingRepository,
	cache repository.CacheRepository,
	logger *zap.Logger,
	defaultCacheTTL time.Duration,
) Resolver {
	return NewResolverWithClock(repo, cache, logger, defaultCacheTTL, time.Now)
}

// NewResolverWithClock вариант с внешними часами для тестов истечения
func NewResolverWithClock(
	repo repository.MappingRepository,
	cache repository.CacheRepository,
	logger *zap.Logger,
	defaultCacheTTL time.Duration,
	now func() time.Time,
) Resolver {
	return &resolver{
		repo:            repo,
		cache:           cache,
		logger:          logger,
		defaultCacheTTL: defaultCacheTTL,
		now:             now,
	}
}

// Resolve двухуровневый поиск: кэш → БД.
// Инвариант порядка: проверка истечения всегда ДО учёта перехода,
// на обоих путях — истёкшая ссылка не получает клик, даже если её
// разрешили через микросекунду после дедлайна.
func (r *resolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	now := r.now()

	cached, err := r.cache.Get(ctx, shortCode)
	if err != nil && !errors.Is(err, repository.ErrCacheMiss) {
		// Ошибка кэша никогда не фатальна — деградируем до похода в БД
		r.logger.Warn("cache read failed, falling back to store",
			zap.String("short_code", shortCode),
			zap.Error(err),
		)
	}

	if err == nil {
		// Попадание в кэш. Запись несёт собственный expires_at,
		// и он проверяется всегда: TTL ключа в Redis — лишь
		// ограничитель роста кэша, а не источник истины.
		if cached.ExpiresAt != nil && !cached.ExpiresAt.After(now) {
			if derr := r.cache.Delete(ctx, shortCode); derr != nil {
				r.logger.Warn("failed to purge expired cache entry",
					zap.String("short_code", shortCode),
					zap.Error(derr),
				)
			}
			return "", ErrExpired
		}

		r.countClick(ctx, shortCode)
		return cached.OriginalURL, nil
	}

	// Промах кэша — авторитетный ответ даёт БД
	m, err := r.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve %q: %w", shortCode, err)
	}

	if m.IsExpired(now) {
		// Запись остаётся в БД — её приберёт фоновая очистка
		return "", ErrExpired
	}

	r.countClick(ctx, shortCode)
	r.repopulate(ctx, m, now)

	return m.OriginalURL, nil
}

func (r *resolver) Peek(ctx context.Context, shortCode string) (string, error) {
	now := r.now()

	cached, err := r.cache.Get(ctx, shortCode)
	if err != nil && !errors.Is(err, repository.ErrCacheMiss) {
		r.logger.Warn("cache read failed, falling back to store",
			zap.String("short_code", shortCode),
			zap.Error(err),
		)
	}

	if err == nil {
		if cached.ExpiresAt != nil && !cached.ExpiresAt.After(now) {
			return "", ErrExpired
		}
		return cached.OriginalURL, nil
	}

	m, err := r.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("peek %q: %w", shortCode, err)
	}

	if m.IsExpired(now) {
		return "", ErrExpired
	}

	return m.OriginalURL, nil
}

// countClick учитывает переход атомарным инкрементом на стороне БД.
// Ошибка записи логируется и глотается: корректность редиректа
// важнее полноты статистики, клик при сбое теряется.
func (r *resolver) countClick(ctx context.Context, shortCode string) {
	if err := r.repo.IncrementClicks(ctx, shortCode); err != nil {
		r.logger.Warn("failed to increment click count",
			zap.String("short_code", shortCode),
			zap.Error(err),
		)
	}
}

// repopulate кладёт свежую запись в кэш после промаха.
// TTL не превышает остаток срока жизни ссылки; бессрочные ссылки
// кэшируются на ограниченный срок и перепроверяются по БД.
func (r *resolver) repopulate(ctx context.Context, m *models.Mapping, now time.Time) {
	ttl, ok := cacheTTL(m, now, r.defaultCacheTTL)
	if !ok {
		return
	}

	cached := &models.CachedMapping{
		OriginalURL: m.OriginalURL,
		ExpiresAt:   m.ExpiresAt,
	}
	if err := r.cache.Set(ctx, m.ShortCode, cached, ttl); err != nil {
		r.logger.Warn("failed to repopulate cache",
			zap.String("short_code", m.ShortCode),
			zap.Error(err),
		)
	}
}

// cacheTTL вычисляет TTL записи кэша по правилу: остаток срока жизни
// либо defaultTTL для бессрочных. ok=false — кэшировать нечего.
func cacheTTL(m *models.Mapping, now time.Time, defaultTTL time.Duration) (time.Duration, bool) {
	if m.ExpiresAt == nil {
		return defaultTTL, true
	}

	remaining := m.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}
