package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	OTP          OTPConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Policy       PolicyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"land-dispute-service"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values. An empty DSN selects in-memory storage.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	MigrationsPath string `env:"POSTGRES_MIGRATIONS_PATH" envDefault:"./migrations"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password    string `env:"REDIS_PASSWORD"`
	DB          int    `env:"REDIS_DB" envDefault:"0"`
	AuditStream string `env:"REDIS_AUDIT_STREAM" envDefault:"audit:events"`
	Disabled    bool   `env:"REDIS_DISABLED" envDefault:"false"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
	Service     string `env:"APP_NAME" envDefault:"land-dispute-service"`
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	Issuer                string `env:"AUTH_JWT_ISSUER" envDefault:"land-dispute-service"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST" envDefault:"10"`
}

// OTPConfig tunes one-time code issuance.
type OTPConfig struct {
	Length      int `env:"OTP_LENGTH" envDefault:"6"`
	TTLSeconds  int `env:"OTP_TTL_SECONDS" envDefault:"300"`
	MaxAttempts int `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
}

// NotificationConfig holds collaborator endpoints. Empty URLs select log-only stubs.
type NotificationConfig struct {
	LetterRendererURL string `env:"NOTIFY_LETTER_RENDERER_URL"`
	OTPWebhookURL     string `env:"NOTIFY_OTP_WEBHOOK_URL"`
	ChatWebhookURL    string `env:"NOTIFY_CHAT_WEBHOOK_URL"`
	EventWebhookURL   string `env:"NOTIFY_EVENT_WEBHOOK_URL"`
	TimeoutSeconds    int    `env:"NOTIFY_TIMEOUT_SECONDS" envDefault:"10"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// PolicyConfig toggles authorization behavior.
type PolicyConfig struct {
	// StrictFields rejects updates that touch non-editable fields instead of dropping them.
	StrictFields bool `env:"POLICY_STRICT_FIELDS" envDefault:"false"`
}

// Load reads configuration from the environment, after loading an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued bearer tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// TTL returns how long an issued code stays valid.
func (o OTPConfig) TTL() time.Duration {
	return time.Duration(o.TTLSeconds) * time.Second
}

// Timeout returns the collaborator call timeout.
func (n NotificationConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}
