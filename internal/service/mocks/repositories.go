package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/Jinomee/jURL/internal/repository"
)

// MockMappingRepository implements repository.MappingRepository for testing
type MockMappingRepository struct {
	mu       sync.RWMutex
	byCode   map[string]*models.Mapping
	byID     map[string]*models.Mapping
	sequence int

	// FailIncrement makes IncrementClicks return an error, emulating
	// a store write failure on the click accounting path
	FailIncrement bool

	// AllCodesTaken makes CodeExists always report a collision,
	// exercising the generator retry budget
	AllCodesTaken bool
}

func NewMockMappingRepository() *MockMappingRepository {
	return &MockMappingRepository{
		byCode: make(map[string]*models.Mapping),
		byID:   make(map[string]*models.Mapping),
	}
}

func (m *MockMappingRepository) Create(ctx context.Context, mapping *models.Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[mapping.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	m.sequence++
	now := time.Now()
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	stored := *mapping
	m.byCode[mapping.ShortCode] = &stored
	m.byID[mapping.ID] = &stored
	return nil
}

func (m *MockMappingRepository) GetByShortCode(ctx context.Context, code string) (*models.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, exists := m.byCode[code]
	if !exists {
		return nil, repository.ErrMappingNotFound
	}
	copied := *mapping
	return &copied, nil
}

func (m *MockMappingRepository) GetByID(ctx context.Context, id string) (*models.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, exists := m.byID[id]
	if !exists {
		return nil, repository.ErrMappingNotFound
	}
	copied := *mapping
	return &copied, nil
}

func (m *MockMappingRepository) Update(ctx context.Context, mapping *models.Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.byID[mapping.ID]
	if !exists {
		return repository.ErrMappingNotFound
	}

	stored.OriginalURL = mapping.OriginalURL
	stored.ExpiresAt = mapping.ExpiresAt
	stored.UpdatedAt = time.Now()
	mapping.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MockMappingRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mapping, exists := m.byID[id]
	if !exists {
		return repository.ErrMappingNotFound
	}
	delete(m.byCode, mapping.ShortCode)
	delete(m.byID, id)
	return nil
}

func (m *MockMappingRepository) List(ctx context.Context, limit, offset int) ([]*models.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*models.Mapping, 0, len(m.byID))
	for _, mapping := range m.byID {
		copied := *mapping
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockMappingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.AllCodesTaken {
		return true, nil
	}

	_, exists := m.byCode[code]
	return exists, nil
}

func (m *MockMappingRepository) IncrementClicks(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailIncrement {
		return errors.New("store write failed")
	}

	mapping, exists := m.byCode[code]
	if !exists {
		return repository.ErrMappingNotFound
	}
	mapping.ClickCount++
	return nil
}

func (m *MockMappingRepository) FindExpired(ctx context.Context, now time.Time) ([]*models.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*models.Mapping
	for _, mapping := range m.byID {
		if mapping.IsExpired(now) {
			copied := *mapping
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

func (m *MockMappingRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, mapping := range m.byID {
		if mapping.IsExpired(now) {
			delete(m.byCode, mapping.ShortCode)
			delete(m.byID, id)
			count++
		}
	}
	return count, nil
}

func (m *MockMappingRepository) Stats(ctx context.Context, now time.Time) (*models.MappingStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.MappingStats{}
	for _, mapping := range m.byID {
		stats.TotalUrls++
		stats.TotalClicks += mapping.ClickCount
		if mapping.ExpiresAt != nil && !mapping.ExpiresAt.After(now) {
			stats.ExpiredUrls++
		} else {
			stats.ActiveUrls++
		}
	}
	return stats, nil
}

func (m *MockMappingRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.byID)), nil
}

// ClickCount returns the current counter for assertions
func (m *MockMappingRepository) ClickCount(code string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, exists := m.byCode[code]
	if !exists {
		return 0
	}
	return mapping.ClickCount
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.CachedMapping

	// FailAll makes every operation return an error, emulating an
	// unreachable Redis — the business operation must still succeed
	FailAll bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		entries: make(map[string]*models.CachedMapping),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.CachedMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailAll {
		return nil, errors.New("cache unavailable")
	}

	cached, exists := m.entries[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	copied := *cached
	return &copied, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code string, cached *models.CachedMapping, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAll {
		return errors.New("cache unavailable")
	}

	copied := *cached
	m.entries[code] = &copied
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAll {
		return errors.New("cache unavailable")
	}

	delete(m.entries, code)
	return nil
}

func (m *MockCacheRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAll {
		return errors.New("cache unavailable")
	}

	m.entries = make(map[string]*models.CachedMapping)
	return nil
}

// Contains reports whether a code is currently cached
func (m *MockCacheRepository) Contains(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.entries[code]
	return exists
}

// Put seeds a cache entry directly, bypassing the services
func (m *MockCacheRepository) Put(code string, cached *models.CachedMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *cached
	m.entries[code] = &copied
}
