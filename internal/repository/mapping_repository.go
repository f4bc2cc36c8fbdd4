package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jinomee/jURL/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMappingNotFound = errors.New("mapping not found")
	ErrCodeExists      = errors.New("short code already exists")
)

// MappingRepository доступ к авторитетному хранилищу соответствий
type MappingRepository interface {
	Create(ctx context.Context, m *models.Mapping) error
	GetByShortCode(ctx context.Context, code string) (*models.Mapping, error)
	GetByID(ctx context.Context, id string) (*models.Mapping, error)
	Update(ctx context.Context, m *models.Mapping) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Mapping, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	IncrementClicks(ctx context.Context, code string) error
	FindExpired(ctx context.Context, now time.Time) ([]*models.Mapping, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (*models.MappingStats, error)
	Count(ctx context.Context) (int64, error)
}

type mappingRepository struct {
	db *PostgresDB
}

func NewMappingRepository(db *PostgresDB) MappingRepository {
	return &mappingRepository{db: db}
}

const mappingColumns = `id, short_code, original_url, is_custom, expires_at, click_count, created_at, updated_at`

func scanMapping(row pgx.Row) (*models.Mapping, error) {
	m := &models.Mapping{}
	err := row.Scan(
		&m.ID,
		&m.ShortCode,
		&m.OriginalURL,
		&m.IsCustom,
		&m.ExpiresAt,
		&m.ClickCount,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mappingRepository) Create(ctx context.Context, m *models.Mapping) error {
	query := `
		INSERT INTO url_mappings (id, short_code, original_url, is_custom, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		m.ID,
		m.ShortCode,
		m.OriginalURL,
		m.IsCustom,
		m.ExpiresAt,
	).Scan(&m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	return nil
}

func (r *mappingRepository) GetByShortCode(ctx context.Context, code string) (*models.Mapping, error) {
	// Без фильтра по expires_at: классификация "истёк/не истёк" —
	// ответственность резолвера, а не хранилища
	query := `SELECT ` + mappingColumns + ` FROM url_mappings WHERE short_code = $1`

	m, err := scanMapping(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to get mapping by code: %w", err)
	}

	return m, nil
}

func (r *mappingRepository) GetByID(ctx context.Context, id string) (*models.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM url_mappings WHERE id = $1`

	m, err := scanMapping(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to get mapping by id: %w", err)
	}

	return m, nil
}

func (r *mappingRepository) Update(ctx context.Context, m *models.Mapping) error {
	query := `
		UPDATE url_mappings
		SET original_url = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query, m.ID, m.OriginalURL, m.ExpiresAt).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMappingNotFound
		}
		return fmt.Errorf("failed to update mapping: %w", err)
	}

	return nil
}

func (r *mappingRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM url_mappings WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMappingNotFound
	}

	return nil
}

func (r *mappingRepository) List(ctx context.Context, limit, offset int) ([]*models.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM url_mappings
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}

	return mappings, nil
}

func (r *mappingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM url_mappings WHERE short_code = $1)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}

	return exists, nil
}

// IncrementClicks атомарно увеличивает счётчик переходов на стороне БД.
// Никакого read-modify-write: N конкурентных редиректов дают ровно N инкрементов.
func (r *mappingRepository) IncrementClicks(ctx context.Context, code string) error {
	query := `UPDATE url_mappings SET click_count = click_count + 1 WHERE short_code = $1`

	result, err := r.db.Pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMappingNotFound
	}

	return nil
}

func (r *mappingRepository) FindExpired(ctx context.Context, now time.Time) ([]*models.Mapping, error) {
	// Граница включительно — та же классификация, что у IsExpired и Stats
	query := `SELECT ` + mappingColumns + ` FROM url_mappings WHERE expires_at IS NOT NULL AND expires_at <= $1`

	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired mappings: %w", err)
	}

	return mappings, nil
}

func (r *mappingRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM url_mappings WHERE expires_at IS NOT NULL AND expires_at <= $1`

	result, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired mappings: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *mappingRepository) Stats(ctx context.Context, now time.Time) (*models.MappingStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at IS NULL OR expires_at > $1),
			COUNT(*) FILTER (WHERE expires_at IS NOT NULL AND expires_at <= $1),
			COALESCE(SUM(click_count), 0)
		FROM url_mappings
	`

	stats := &models.MappingStats{}
	err := r.db.Pool.QueryRow(ctx, query, now).Scan(
		&stats.TotalUrls,
		&stats.ActiveUrls,
		&stats.ExpiredUrls,
		&stats.TotalClicks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping stats: %w", err)
	}

	return stats, nil
}

func (r *mappingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM url_mappings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return count, nil
}

// Проверка на нарушение уникальности (код 23505 в PostgreSQL)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
