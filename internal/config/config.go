package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSecret is returned when the token signing secret is not configured.
var ErrMissingSecret = errors.New("JWT_SECRET_KEY must be set")

// Config holds application configuration
type Config struct {
	Env string

	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Mail     MailConfig

	// RedisURL enables the redis-backed refresh token store when set.
	RedisURL string

	Tracing TracingConfig
}

// TracingConfig holds OpenTelemetry export settings. Tracing is off without
// an endpoint.
type TracingConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	SampleRatio    float64
}

// Enabled reports whether spans are exported.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	RequestTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	DefaultPageSize int
	MaxPageSize     int
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	Driver      string
	URL         string
	AutoMigrate bool
}

// AuthConfig holds token settings.
type AuthConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// MailConfig holds mail relay settings.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Configured reports whether relay credentials are present.
func (m MailConfig) Configured() bool {
	return m.Username != "" && m.Password != ""
}

// RefreshEnabled reports whether refresh tokens are issued.
func (a AuthConfig) RefreshEnabled() bool {
	return a.RefreshTokenTTL > 0
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from environment variables, reading a .env file first
// when one exists. Secrets have no defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "5000"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		},
		Auth: AuthConfig{
			Secret: firstEnv("JWT_SECRET_KEY", "JWT_SECRET"),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Username: os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
		},
		RedisURL:     os.Getenv("REDIS_URL"),
		Tracing: TracingConfig{
			Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "pennywise-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0"),
		},
	}

	if cfg.Auth.Secret == "" {
		return nil, ErrMissingSecret
	}

	var err error
	if cfg.Server.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.MaxBodyBytes, err = getInt64("MAX_BODY_BYTES", 10<<20); err != nil {
		return nil, err
	}
	pageSize, err := getInt64("PAGE_SIZE_DEFAULT", 20)
	if err != nil {
		return nil, err
	}
	maxPageSize, err := getInt64("PAGE_SIZE_MAX", 100)
	if err != nil {
		return nil, err
	}
	if pageSize < 1 || maxPageSize < pageSize {
		return nil, fmt.Errorf("PAGE_SIZE_DEFAULT must be between 1 and PAGE_SIZE_MAX (%d)", maxPageSize)
	}
	cfg.Server.DefaultPageSize, cfg.Server.MaxPageSize = int(pageSize), int(maxPageSize)
	if cfg.Auth.AccessTokenTTL, err = getDuration("JWT_EXPIRES_IN", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Auth.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.Mail.Timeout, err = getDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	port, err := getInt64("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.Mail.Port = int(port)
	cfg.Mail.From = getEnv("EMAIL_FROM", cfg.Mail.Username)

	if cfg.Database.AutoMigrate, err = getBool("DB_AUTO_MIGRATE", false); err != nil {
		return nil, err
	}
	if cfg.Tracing.Insecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}
	if cfg.Tracing.SampleRatio, err = getFloat("OTEL_TRACES_SAMPLER_ARG", 1); err != nil {
		return nil, err
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return nil, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1, got %v", cfg.Tracing.SampleRatio)
	}

	switch cfg.Database.Driver {
	case "postgres":
		cfg.Database.URL = getEnv("DATABASE_URL", buildPostgresURL())
	case "sqlite":
		cfg.Database.URL = getEnv("DATABASE_URL", "pennywise.db")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (use postgres or sqlite)", cfg.Database.Driver)
	}

	return cfg, nil
}

func buildPostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("DB_USER", "pennywise"), os.Getenv("DB_PASSWORD")),
		Host:   getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + getEnv("DB_NAME", "pennywise"),
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return d, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return b, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return f, nil
}
