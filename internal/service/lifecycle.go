package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/Jinomee/jURL/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Lifecycle управляет жизненным циклом соответствий: создание,
// редактирование, удаление, массовая очистка истёкших и агрегаты.
type Lifecycle interface {
	Create(ctx context.Context, input *models.CreateMappingInput) (*models.Mapping, error)
	GetByID(ctx context.Context, id string) (*models.Mapping, error)
	List(ctx context.Context, page, limit int) (*models.MappingPage, error)
	Update(ctx context.Context, id string, input *models.UpdateMappingInput) (*models.Mapping, error)
	Refresh(ctx context.Context, id string) (*models.Mapping, error)
	Delete(ctx context.Context, id string) error
	SweepExpired(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*models.MappingStats, error)
}

type lifecycle struct {
	repo            repository.MappingRepository
	cache           repository.CacheRepository
	generator       *CodeGenerator
	logger          *zap.Logger
	codeLength      int
	defaultCacheTTL time.Duration
	now             func() time.Time
}

func NewLifecycle(
	repo repository.MappingRepository,
	cache repository.CacheRepository,
	generator *CodeGenerator,
	logger *zap.Logger,
	codeLength int,
	defaultCacheTTL time.Duration,
) Lifecycle {
	return NewLifecycleWithClock(repo, cache, generator, logger, codeLength, defaultCacheTTL, time.Now)
}

// NewLifecycleWithClock вариант с внешними часами для тестов истечения
func NewLifecycleWithClock(
	repo repository.MappingRepository,
	cache repository.CacheRepository,
	generator *CodeGenerator,
	logger *zap.Logger,
	codeLength int,
	defaultCacheTTL time.Duration,
	now func() time.Time,
) Lifecycle {
	return &lifecycle{
		repo:            repo,
		cache:           cache,
		generator:       generator,
		logger:          logger,
		codeLength:      codeLength,
		defaultCacheTTL: defaultCacheTTL,
		now:             now,
	}
}

// Create создаёт новую короткую ссылку: кастомный код валидируется,
// иначе код генерируется; запись уходит в БД, затем в кэш.
func (s *lifecycle) Create(ctx context.Context, input *models.CreateMappingInput) (*models.Mapping, error) {
	// Защитная перепроверка URL: значение может прийти от любого
	// вызывающего, не только от HTTP-слоя с его binding-валидацией
	if err := validateOriginalURL(input.OriginalURL); err != nil {
		return nil, err
	}

	var shortCode string
	isCustom := false

	if input.CustomCode != nil && *input.CustomCode != "" {
		if err := s.generator.ValidateCustomCode(ctx, *input.CustomCode); err != nil {
			return nil, err
		}
		shortCode = *input.CustomCode
		isCustom = true
	} else {
		code, err := s.generator.Generate(ctx, s.codeLength)
		if err != nil {
			return nil, err
		}
		shortCode = code
	}

	now := s.now()
	m := &models.Mapping{
		ID:          uuid.NewString(),
		ShortCode:   shortCode,
		OriginalURL: input.OriginalURL,
		IsCustom:    isCustom,
		ExpiresAt:   input.ExpireDuration.ExpiresAtFrom(now),
	}

	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			if isCustom {
				// Гонка: код заняли между валидацией и вставкой
				return nil, &ValidationError{
					Field:   "custom_code",
					Message: "This custom code is already in use",
				}
			}
			// Сгенерированный код проиграл гонку — пробуем заново
			return s.Create(ctx, input)
		}
		return nil, err
	}

	s.recache(ctx, m, now)

	return m, nil
}

func (s *lifecycle) GetByID(ctx context.Context, id string) (*models.Mapping, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List постраничный список для админки, свежие записи первыми
func (s *lifecycle) List(ctx context.Context, page, limit int) (*models.MappingPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	mappings, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &models.MappingPage{
		Mappings:    mappings,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// Update применяет новые поля и освежает кэш. Если новый срок уже
// в прошлом, запись из кэша удаляется вместо перезаписи.
func (s *lifecycle) Update(ctx context.Context, id string, input *models.UpdateMappingInput) (*models.Mapping, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := s.now()

	if input.OriginalURL != nil {
		if err := validateOriginalURL(*input.OriginalURL); err != nil {
			return nil, err
		}
		m.OriginalURL = *input.OriginalURL
	}

	switch {
	case input.ExpireDuration != nil:
		m.ExpiresAt = input.ExpireDuration.ExpiresAtFrom(now)
	case input.ExpiresAt != nil:
		m.ExpiresAt = input.ExpiresAt
	}

	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if m.IsExpired(now) {
		if derr := s.cache.Delete(ctx, m.ShortCode); derr != nil {
			s.logger.Warn("failed to purge cache entry after update",
				zap.String("short_code", m.ShortCode),
				zap.Error(derr),
			)
		}
	} else {
		s.recache(ctx, m, now)
	}

	return m, nil
}

// Refresh пересобирает кэш одной записи по свежему чтению из БД.
// Нужен админке, когда запись в кэше подозревается в устаревании:
// старая проекция выбрасывается, живая ссылка кэшируется заново.
func (s *lifecycle) Refresh(ctx context.Context, id string) (*models.Mapping, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if derr := s.cache.Delete(ctx, m.ShortCode); derr != nil {
		s.logger.Warn("failed to purge cache entry during refresh",
			zap.String("short_code", m.ShortCode),
			zap.Error(derr),
		)
	}

	now := s.now()
	if !m.IsExpired(now) {
		s.recache(ctx, m, now)
	}

	return m, nil
}

// Delete удаляет запись из БД, затем чистит кэш. Порядок важен:
// чистка кэша до удаления из БД позволила бы параллельному резолву
// заново закэшировать запись, которую мы как раз удаляем.
func (s *lifecycle) Delete(ctx context.Context, id string) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return ErrNotFound
		}
		return err
	}

	if derr := s.cache.Delete(ctx, m.ShortCode); derr != nil {
		s.logger.Warn("failed to purge cache entry after delete",
			zap.String("short_code", m.ShortCode),
			zap.Error(derr),
		)
	}

	return nil
}

// SweepExpired массовая уборка истёкших записей: сначала чистим кэш
// по каждому коду, затем одним запросом удаляем из БД. Идемпотентна
// и безопасна при наложении запусков — удаление по предикату.
func (s *lifecycle) SweepExpired(ctx context.Context) (int64, error) {
	now := s.now()

	expired, err := s.repo.FindExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, m := range expired {
		if derr := s.cache.Delete(ctx, m.ShortCode); derr != nil {
			s.logger.Warn("failed to purge cache entry during sweep",
				zap.String("short_code", m.ShortCode),
				zap.Error(derr),
			)
		}
	}

	count, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.logger.Info("expired mappings swept", zap.Int64("count", count))
	}

	return count, nil
}

// Stats агрегаты считаются напрямую по БД — кэш неавторитетен
func (s *lifecycle) Stats(ctx context.Context) (*models.MappingStats, error) {
	return s.repo.Stats(ctx, s.now())
}

// recache пишет запись в кэш по правилу TTL из резолвера.
// Сбой кэша не прерывает бизнес-операцию.
func (s *lifecycle) recache(ctx context.Context, m *models.Mapping, now time.Time) {
	ttl, ok := cacheTTL(m, now, s.defaultCacheTTL)
	if !ok {
		return
	}

	cached := &models.CachedMapping{
		OriginalURL: m.OriginalURL,
		ExpiresAt:   m.ExpiresAt,
	}
	if err := s.cache.Set(ctx, m.ShortCode, cached, ttl); err != nil {
		s.logger.Warn("failed to cache mapping",
			zap.String("short_code", m.ShortCode),
			zap.Error(err),
		)
	}
}

// validateOriginalURL принимает только абсолютные http/https URL
func validateOriginalURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "original_url", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "original_url", Message: "URL must use http or https scheme"}
	}
	if parsed.Host == "" {
		return &ValidationError{Field: "original_url", Message: "URL must be absolute"}
	}
	return nil
}
