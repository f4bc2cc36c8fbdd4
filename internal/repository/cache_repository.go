package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss ключ отсутствует в кэше. Вызывающая сторона обязана
// отличать промах от прочих ошибок Redis: промах — штатная ситуация,
// ошибка — повод для fallback в БД с логированием.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository производная проекция хранилища в Redis.
// Значения всегда кладутся с TTL — бессрочных записей в кэше нет.
type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.CachedMapping, error)
	Set(ctx context.Context, code string, cached *models.CachedMapping, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
	Clear(ctx context.Context) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.CachedMapping, error) {
	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var cached models.CachedMapping
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached mapping: %w", err)
	}

	return &cached, nil
}

func (r *cacheRepository) Set(ctx context.Context, code string, cached *models.CachedMapping, ttl time.Duration) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached mapping: %w", err)
	}

	if err := r.redis.Client.Set(ctx, r.key(code), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	if err := r.redis.Client.Del(ctx, r.key(code)).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Clear удаляет все записи кэша ссылок. Административная операция,
// на горячем пути не используется. Чистим по префиксу, а не FLUSHDB,
// чтобы не задеть чужие ключи в той же базе Redis.
func (r *cacheRepository) Clear(ctx context.Context) error {
	iter := r.redis.Client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.redis.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache clear failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache clear scan failed: %w", err)
	}
	return nil
}

const keyPrefix = "url:"

func (r *cacheRepository) key(code string) string {
	return keyPrefix + code
}
