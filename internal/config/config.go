package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Telemetry    TelemetryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	AuthRateLimit         int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	RefreshRotation       bool
	ResetTokenKey         string
	BcryptCost            int
	StorageTimeoutSeconds int
	ResetThrottleLimit    int
	ResetThrottleWindow   int
	CleanupIntervalMin    int
	ResetResponseFloorMS  int
}

// NotificationConfig holds mail settings for outgoing messages.
type NotificationConfig struct {
	EmailFrom       string
	FrontendBaseURL string
}

// TelemetryConfig controls the OTLP trace exporter.
type TelemetryConfig struct {
	Endpoint string
	Insecure bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "hr-identity"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			AuthRateLimit:         getEnvAsInt("HTTP_AUTH_RATE_LIMIT_PER_MINUTE", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:  getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 24*7),
			RefreshRotation:       getEnvAsBool("AUTH_REFRESH_ROTATION", true),
			ResetTokenKey:         os.Getenv("AUTH_RESET_TOKEN_KEY"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			StorageTimeoutSeconds: getEnvAsInt("AUTH_STORAGE_TIMEOUT_SECONDS", 5),
			ResetThrottleLimit:    getEnvAsInt("AUTH_RESET_THROTTLE_LIMIT", 5),
			ResetThrottleWindow:   getEnvAsInt("AUTH_RESET_THROTTLE_WINDOW_MINUTES", 60),
			CleanupIntervalMin:    getEnvAsInt("AUTH_CLEANUP_INTERVAL_MINUTES", 60),
			ResetResponseFloorMS:  getEnvAsInt("AUTH_RESET_RESPONSE_FLOOR_MS", 400),
		},
		Notification: NotificationConfig{
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
		Telemetry: TelemetryConfig{
			Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.App.Env != "development" {
			return fmt.Errorf("AUTH_JWT_SECRET is required")
		}
		c.Auth.JWTSecret = "dev-secret"
	}
	if c.Auth.ResetTokenKey == "" {
		if c.App.Env != "development" {
			return fmt.Errorf("AUTH_RESET_TOKEN_KEY is required")
		}
		c.Auth.ResetTokenKey = "dev-reset-key"
	}
	return nil
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

// AccessTokenTTL returns the default access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return minutesOr(a.AccessTokenTTLMinutes, 15)
}

// RefreshTokenTTL returns the refresh session lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	if a.RefreshTokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// StorageTimeout bounds every storage round trip.
func (a AuthConfig) StorageTimeout() time.Duration {
	if a.StorageTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.StorageTimeoutSeconds) * time.Second
}

// ResetThrottleWindowDuration is the window for counting reset requests per email.
func (a AuthConfig) ResetThrottleWindowDuration() time.Duration {
	return minutesOr(a.ResetThrottleWindow, 60)
}

// CleanupInterval is the tick of the expired-row cleanup worker.
func (a AuthConfig) CleanupInterval() time.Duration {
	return minutesOr(a.CleanupIntervalMin, 60)
}

// ResetResponseFloor is the minimum duration of a forgot-password request.
// Zero or a negative setting disables the floor.
func (a AuthConfig) ResetResponseFloor() time.Duration {
	if a.ResetResponseFloorMS <= 0 {
		return 0
	}
	return time.Duration(a.ResetResponseFloorMS) * time.Millisecond
}

func minutesOr(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
