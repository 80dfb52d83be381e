package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// SessionSecretLength is the exact length required of SESSION_SECRET.
const SessionSecretLength = 32

var weakPasswords = []string{"admin1234", "admin123", "password", "12345678", "qwerty123"}

type Config struct {
	App struct {
		Env      string `envconfig:"APP_ENV" default:"development"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	Store struct {
		DSN          string  `envconfig:"STORE_DSN" default:"file:invoices.db?cache=shared"`
		DataSourceID string  `envconfig:"STORE_DATA_SOURCE_ID" default:"invoices"`
		RPS          float64 `envconfig:"STORE_RPS" default:"3"`
		Burst        int     `envconfig:"STORE_BURST" default:"3"`
	}

	Cache struct {
		TTL      time.Duration `envconfig:"CACHE_TTL" default:"60s"`
		MaxTTL   time.Duration `envconfig:"CACHE_MAX_TTL" default:"5m"`
		Capacity int           `envconfig:"CACHE_CAPACITY" default:"10000"`
		Shards   int           `envconfig:"CACHE_SHARDS" default:"64"`
	}

	Retry struct {
		MaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
		BaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
		MaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
	}

	RateLimit struct {
		Limit          int           `envconfig:"RATE_LIMIT" default:"10"`
		Window         time.Duration `envconfig:"RATE_WINDOW" default:"60s"`
		SweepEvery     time.Duration `envconfig:"RATE_SWEEP_EVERY" default:"60s"`
		ConcurrencyMax int           `envconfig:"CONCURRENCY_MAX" default:"100"`
		StatsPrefix    string        `envconfig:"RATE_STATS_PREFIX" default:"ratelimit:stats"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Admin struct {
		Password      string        `envconfig:"ADMIN_PASSWORD"`
		SessionSecret string        `envconfig:"SESSION_SECRET"`
		SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv processes the environment without consulting .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges and the admin credentials.
func (c *Config) Validate() error {
	return errors.Join(
		validation.ValidateStruct(&c.App,
			validation.Field(&c.App.Env, validation.Required, validation.In(EnvDevelopment, EnvProduction, EnvTest)),
			validation.Field(&c.App.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&c.App.LogLevel, validation.In("debug", "info", "warn", "error")),
		),
		validation.ValidateStruct(&c.Store,
			validation.Field(&c.Store.DSN, validation.Required),
			validation.Field(&c.Store.DataSourceID, validation.Required),
			validation.Field(&c.Store.Burst, validation.Min(0)),
		),
		validation.ValidateStruct(&c.Cache,
			validation.Field(&c.Cache.TTL, validation.Required, validation.Max(c.Cache.MaxTTL)),
			validation.Field(&c.Cache.Capacity, validation.Required, validation.Min(1)),
			validation.Field(&c.Cache.Shards, validation.Required, validation.Min(1), validation.Max(c.Cache.Capacity)),
		),
		validation.ValidateStruct(&c.Retry,
			validation.Field(&c.Retry.MaxAttempts, validation.Required, validation.Min(1)),
			validation.Field(&c.Retry.MaxDelay, validation.Min(c.Retry.BaseDelay)),
		),
		validation.ValidateStruct(&c.RateLimit,
			validation.Field(&c.RateLimit.Limit, validation.Required, validation.Min(1)),
			validation.Field(&c.RateLimit.Window, validation.Required),
			validation.Field(&c.RateLimit.ConcurrencyMax, validation.Min(0)),
		),
		validation.ValidateStruct(&c.Admin,
			validation.Field(&c.Admin.Password,
				validation.Required,
				validation.Length(8, 0),
				validation.By(c.rejectWeakPassword),
			),
			validation.Field(&c.Admin.SessionSecret,
				validation.Required,
				validation.Length(SessionSecretLength, SessionSecretLength),
			),
			validation.Field(&c.Admin.SessionTTL, validation.Required),
		),
	)
}

func (c *Config) rejectWeakPassword(value any) error {
	password, _ := value.(string)
	if c.IsProduction() && slices.Contains(weakPasswords, password) {
		return errors.New("must not be a commonly used password in production")
	}
	return nil
}
