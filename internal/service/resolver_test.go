package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/Jinomee/jURL/internal/service"
	"github.com/Jinomee/jURL/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCacheTTL = 24 * time.Hour

// testClock управляемые часы для проверки сценариев истечения
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// setupResolverEnv создаёт резолвер и менеджер жизненного цикла
// поверх общих моков и общих часов
func setupResolverEnv() (service.Resolver, service.Lifecycle, *mocks.MockMappingRepository, *mocks.MockCacheRepository, *testClock) {
	repo := mocks.NewMockMappingRepository()
	cache := mocks.NewMockCacheRepository()
	clock := newTestClock()
	logger := zap.NewNop()

	generator := service.NewCodeGenerator(repo)
	resolver := service.NewResolverWithClock(repo, cache, logger, testCacheTTL, clock.Now)
	lifecycle := service.NewLifecycleWithClock(repo, cache, generator, logger, 6, testCacheTTL, clock.Now)

	return resolver, lifecycle, repo, cache, clock
}

// TestResolver_CreateThenResolve проверяет базовый сценарий:
// созданная ссылка разрешается в оригинальный URL, счётчик становится 1
func TestResolver_CreateThenResolve(t *testing.T) {
	resolver, lifecycle, repo, _, _ := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL: "https://example.com/page",
	})
	require.NoError(t, err)

	got, err := resolver.Resolve(ctx, m.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", got)
	assert.Equal(t, int64(1), repo.ClickCount(m.ShortCode))
}

// TestResolver_NotFound неизвестный код даёт ErrNotFound
func TestResolver_NotFound(t *testing.T) {
	resolver, _, _, _, _ := setupResolverEnv()

	_, err := resolver.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

// TestResolver_ExpiredFromCache истёкшая запись из кэша: expired,
// кэш чистится, клик не учитывается
func TestResolver_ExpiredFromCache(t *testing.T) {
	resolver, lifecycle, repo, cache, clock := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL:    "https://example.com",
		ExpireDuration: &models.ExpireDuration{Value: 1, Unit: models.UnitHours},
	})
	require.NoError(t, err)
	require.True(t, cache.Contains(m.ShortCode), "запись должна попасть в кэш при создании")

	clock.Advance(2 * time.Hour)

	_, err = resolver.Resolve(ctx, m.ShortCode)
	assert.ErrorIs(t, err, service.ErrExpired)
	assert.False(t, cache.Contains(m.ShortCode), "истёкшая запись должна быть удалена из кэша")
	assert.Equal(t, int64(0), repo.ClickCount(m.ShortCode), "клик по истёкшей ссылке не учитывается")
}

// TestResolver_ExpiredFromStore истёкшая запись при промахе кэша:
// expired, запись остаётся в БД до прохода очистки
func TestResolver_ExpiredFromStore(t *testing.T) {
	resolver, lifecycle, repo, cache, clock := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL:    "https://example.com",
		ExpireDuration: &models.ExpireDuration{Value: 30, Unit: models.UnitMinutes},
	})
	require.NoError(t, err)

	// Имитируем вытеснение из кэша по TTL
	require.NoError(t, cache.Delete(ctx, m.ShortCode))
	clock.Advance(time.Hour)

	_, err = resolver.Resolve(ctx, m.ShortCode)
	assert.ErrorIs(t, err, service.ErrExpired)
	assert.Equal(t, int64(0), repo.ClickCount(m.ShortCode))

	// Запись не удалена — это работа фоновой очистки
	_, err = repo.GetByShortCode(ctx, m.ShortCode)
	assert.NoError(t, err)
}

// TestResolver_ExpiryRoundTrip часовая ссылка: в пределах часа
// разрешается, после часа — expired (свойство из раздела тестов)
func TestResolver_ExpiryRoundTrip(t *testing.T) {
	resolver, lifecycle, _, _, clock := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL:    "https://example.com",
		ExpireDuration: &models.ExpireDuration{Value: 1, Unit: models.UnitHours},
	})
	require.NoError(t, err)

	got, err := resolver.Resolve(ctx, m.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)

	clock.Advance(61 * time.Minute)

	_, err = resolver.Resolve(ctx, m.ShortCode)
	assert.ErrorIs(t, err, service.ErrExpired)
}

// TestResolver_CacheMissRepopulates промах кэша заново наполняет его из БД
func TestResolver_CacheMissRepopulates(t *testing.T) {
	resolver, lifecycle, _, cache, _ := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL: "https://example.com",
	})
	require.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, m.ShortCode))

	got, err := resolver.Resolve(ctx, m.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.True(t, cache.Contains(m.ShortCode), "кэш должен быть наполнен после промаха")
}

// TestResolver_CacheFailureFallsBack недоступный кэш деградирует
// до похода в БД, операция успешна
func TestResolver_CacheFailureFallsBack(t *testing.T) {
	resolver, lifecycle, repo, cache, _ := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL: "https://example.com",
	})
	require.NoError(t, err)

	cache.FailAll = true

	got, err := resolver.Resolve(ctx, m.ShortCode)
	require.NoError(t, err, "сбой кэша не должен ломать резолв")
	assert.Equal(t, "https://example.com", got)
	assert.Equal(t, int64(1), repo.ClickCount(m.ShortCode))
}

// TestResolver_ClickFailureDoesNotBlockRedirect сбой инкремента
// логируется и глотается — редирект всё равно успешен
func TestResolver_ClickFailureDoesNotBlockRedirect(t *testing.T) {
	resolver, lifecycle, repo, _, _ := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL: "https://example.com",
	})
	require.NoError(t, err)

	repo.FailIncrement = true

	got, err := resolver.Resolve(ctx, m.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.Equal(t, int64(0), repo.ClickCount(m.ShortCode), "клик потерян, но редирект не заблокирован")
}

// TestResolver_Peek read-only вариант: URL возвращается, но ни
// счётчик, ни кэш не изменяются
func TestResolver_Peek(t *testing.T) {
	resolver, lifecycle, repo, cache, _ := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL: "https://example.com",
	})
	require.NoError(t, err)

	// Уберём запись из кэша: peek не должен наполнять его заново
	require.NoError(t, cache.Delete(ctx, m.ShortCode))

	got, err := resolver.Peek(ctx, m.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.Equal(t, int64(0), repo.ClickCount(m.ShortCode), "peek не учитывает клики")
	assert.False(t, cache.Contains(m.ShortCode), "peek не наполняет кэш")
}

// TestResolver_PeekExpiredKeepsCache peek по истёкшей записи в кэше
// классифицирует её как expired, но кэш не трогает
func TestResolver_PeekExpiredKeepsCache(t *testing.T) {
	resolver, lifecycle, _, cache, clock := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL:    "https://example.com",
		ExpireDuration: &models.ExpireDuration{Value: 1, Unit: models.UnitMinutes},
	})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = resolver.Peek(ctx, m.ShortCode)
	assert.ErrorIs(t, err, service.ErrExpired)
	assert.True(t, cache.Contains(m.ShortCode), "peek не мутирует кэш даже для истёкших записей")
}

// TestResolver_ConcurrentClicks 50 одновременных резолвов одного кода:
// каждый успешен, итоговый счётчик ровно 50 (атомарность инкремента)
func TestResolver_ConcurrentClicks(t *testing.T) {
	resolver, lifecycle, repo, _, _ := setupResolverEnv()
	ctx := context.Background()

	m, err := lifecycle.Create(ctx, &models.CreateMappingInput{
		OriginalURL: "https://example.com/popular",
	})
	require.NoError(t, err)

	const concurrency = 50
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, rerr := resolver.Resolve(ctx, m.ShortCode)
			errs <- rerr
		}()
	}
	wg.Wait()
	close(errs)

	for rerr := range errs {
		assert.NoError(t, rerr)
	}
	assert.Equal(t, int64(concurrency), repo.ClickCount(m.ShortCode))
}
