package models

import (
	"time"
)

// Единицы измерения срока жизни ссылки
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// Mapping связывает короткий код с оригинальным URL.
// Запись в PostgreSQL авторитетна; кэш хранит производную проекцию.
type Mapping struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	IsCustom    bool       `json:"is_custom"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClickCount  int64      `json:"click_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsExpired сообщает, истёк ли срок жизни ссылки на момент now.
// nil ExpiresAt означает бессрочную ссылку.
func (m *Mapping) IsExpired(now time.Time) bool {
	if m.ExpiresAt == nil {
		return false
	}
	return !m.ExpiresAt.After(now)
}

// CachedMapping — то, что лежит в Redis под коротким кодом.
// ExpiresAt дублируется, чтобы резолвер мог проверить срок жизни,
// не обращаясь к БД (TTL записи в кэше — отдельный механизм).
type CachedMapping struct {
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// ExpireDuration задаёт срок жизни ссылки в человекочитаемом виде
type ExpireDuration struct {
	Value int    `json:"value" binding:"required,min=1"`
	Unit  string `json:"unit" binding:"required,oneof=minutes hours days"`
}

// ExpiresAtFrom вычисляет момент истечения от точки отсчёта now.
// Неизвестная единица измерения трактуется как отсутствие срока.
func (d *ExpireDuration) ExpiresAtFrom(now time.Time) *time.Time {
	if d == nil || d.Value <= 0 {
		return nil
	}

	var ttl time.Duration
	switch d.Unit {
	case UnitMinutes:
		ttl = time.Duration(d.Value) * time.Minute
	case UnitHours:
		ttl = time.Duration(d.Value) * time.Hour
	case UnitDays:
		ttl = time.Duration(d.Value) * 24 * time.Hour
	default:
		return nil
	}

	t := now.Add(ttl)
	return &t
}

// CreateMappingInput входные данные для создания короткой ссылки
type CreateMappingInput struct {
	OriginalURL    string          `json:"original_url" binding:"required,url"`
	CustomCode     *string         `json:"custom_code,omitempty"`
	ExpireDuration *ExpireDuration `json:"expire_duration,omitempty"`
}

// UpdateMappingInput входные данные для редактирования ссылки.
// nil-поля не изменяются. Если задан ExpireDuration, он имеет
// приоритет над ExpiresAt (пересчитывается от текущего момента).
type UpdateMappingInput struct {
	OriginalURL    *string         `json:"original_url,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	ExpireDuration *ExpireDuration `json:"expire_duration,omitempty"`
}

// MappingStats агрегированная статистика по всем ссылкам.
// Считается только по БД — кэш неавторитетен.
type MappingStats struct {
	TotalUrls   int64 `json:"total_urls"`
	ActiveUrls  int64 `json:"active_urls"`
	ExpiredUrls int64 `json:"expired_urls"`
	TotalClicks int64 `json:"total_clicks"`
}

// MappingPage страница списка ссылок для админки
type MappingPage struct {
	Mappings    []*Mapping `json:"urls"`
	TotalItems  int64      `json:"total_items"`
	TotalPages  int        `json:"total_pages"`
	CurrentPage int        `json:"current_page"`
}
