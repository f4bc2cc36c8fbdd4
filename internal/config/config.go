package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Shortener ShortenerConfig
	Sweep     SweepConfig
}

type AppConfig struct {
	Port    string
	BaseURL string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type AuthConfig struct {
	// Bcrypt-хэш пароля администратора. Пустое значение означает,
	// что вход в админку полностью отключён — никакого пароля
	// по умолчанию.
	AdminPasswordHash string
	TokenSecret       string
	TokenTTL          time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ShortenerConfig struct {
	// Длина генерируемого кода (кастомные коды могут быть 3-20 символов)
	CodeLength int
	// TTL кэша для бессрочных ссылок
	DefaultCacheTTL time.Duration
}

type SweepConfig struct {
	// Интервал фоновой очистки истёкших ссылок
	Interval time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// .env опционален — переменные окружения имеют приоритет
	_ = viper.ReadInConfig()

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.App.BaseURL = viper.GetString("BASE_URL")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}

	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")

	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.Password = viper.GetString("REDIS_PASSWORD")

	cfg.Auth.AdminPasswordHash = viper.GetString("ADMIN_PASSWORD_HASH")
	cfg.Auth.TokenSecret = viper.GetString("AUTH_TOKEN_SECRET")
	cfg.Auth.TokenTTL = viper.GetDuration("AUTH_TOKEN_TTL")
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Shortener.CodeLength = viper.GetInt("URL_CODE_LENGTH")
	if cfg.Shortener.CodeLength == 0 {
		cfg.Shortener.CodeLength = 6
	}
	cfg.Shortener.DefaultCacheTTL = viper.GetDuration("CACHE_DEFAULT_TTL")
	if cfg.Shortener.DefaultCacheTTL == 0 {
		cfg.Shortener.DefaultCacheTTL = 24 * time.Hour
	}

	cfg.Sweep.Interval = viper.GetDuration("SWEEP_INTERVAL")
	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = 24 * time.Hour
	}

	return &cfg, nil
}
