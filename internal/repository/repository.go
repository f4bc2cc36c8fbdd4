package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Jinomee/jURL/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB config: %w", err)
	}

	// Настройка пула соединений
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

// EnsureSchema создаёт таблицу соответствий, если её ещё нет.
// short_code под уникальным индексом — генератор и валидатор
// кастомных кодов полагаются на это ограничение при гонках.
func (db *PostgresDB) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS url_mappings (
			id           UUID PRIMARY KEY,
			short_code   VARCHAR(20) NOT NULL,
			original_url TEXT NOT NULL,
			is_custom    BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at   TIMESTAMPTZ,
			click_count  BIGINT NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_url_mappings_short_code
			ON url_mappings (short_code);
		CREATE INDEX IF NOT EXISTS idx_url_mappings_expires_at
			ON url_mappings (expires_at) WHERE expires_at IS NOT NULL;
	`

	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}
