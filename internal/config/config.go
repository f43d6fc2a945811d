package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretBytes is the smallest accepted HS256 signing secret (256 bits).
const MinSecretBytes = 32

// Revocation backends.
const (
	RevocationBackendMemory   = "memory"
	RevocationBackendRedis    = "redis"
	RevocationBackendPostgres = "postgres"
)

// ErrWeakSecret is returned when the signing secret is shorter than MinSecretBytes.
var ErrWeakSecret = errors.New("AUTH_JWT_SECRET must be at least 32 bytes")

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Federation FederationConfig
	WebSocket  WebSocketConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
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
	Level string
}

// AuthConfig defines token issuance and revocation parameters.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	Issuer                 string
	LegacyTokensEnabled    bool
	RevocationBackend      string
	RevocationSweepSeconds int
}

// FederationConfig holds Google sign-in settings. GoogleClientIDs lists every
// accepted audience (web, android, ios ...).
type FederationConfig struct {
	GoogleClientIDs      []string
	GoogleJWKSURL        string
	VerifyTimeoutSeconds int
	KeyCacheTTLMinutes   int
}

// WebSocketConfig configures the realtime endpoint.
type WebSocketConfig struct {
	Path           string
	ReadLimitBytes int
	SendBuffer     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "pillpath-identity"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			Issuer:                 getEnv("AUTH_ISSUER", "pillpath"),
			LegacyTokensEnabled:    getEnvAsBool("AUTH_LEGACY_TOKENS_ENABLED", true),
			RevocationBackend:      strings.ToLower(getEnv("AUTH_REVOCATION_BACKEND", RevocationBackendMemory)),
			RevocationSweepSeconds: getEnvAsInt("AUTH_REVOCATION_SWEEP_SECONDS", 300),
		},
		Federation: FederationConfig{
			GoogleClientIDs:      splitCSV(os.Getenv("GOOGLE_CLIENT_IDS")),
			GoogleJWKSURL:        getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
			VerifyTimeoutSeconds: getEnvAsInt("GOOGLE_VERIFY_TIMEOUT_SECONDS", 5),
			KeyCacheTTLMinutes:   getEnvAsInt("GOOGLE_KEY_CACHE_TTL_MINUTES", 60),
		},
		WebSocket: WebSocketConfig{
			Path:           getEnv("WS_PATH", "/ws"),
			ReadLimitBytes: getEnvAsInt("WS_READ_LIMIT_BYTES", 64*1024),
			SendBuffer:     getEnvAsInt("WS_SEND_BUFFER", 32),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinSecretBytes {
		return ErrWeakSecret
	}
	if c.Auth.AccessTokenTTLMinutes < 0 {
		return fmt.Errorf("AUTH_ACCESS_TOKEN_TTL_MINUTES must not be negative, got %d", c.Auth.AccessTokenTTLMinutes)
	}
	switch c.Auth.RevocationBackend {
	case RevocationBackendMemory:
	case RevocationBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("AUTH_REVOCATION_BACKEND=redis requires REDIS_ADDR")
		}
	case RevocationBackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("AUTH_REVOCATION_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown AUTH_REVOCATION_BACKEND %q", c.Auth.RevocationBackend)
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

// AccessTokenTTL returns the signed token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RevocationSweepInterval returns how often expired revocations are purged.
func (a AuthConfig) RevocationSweepInterval() time.Duration {
	if a.RevocationSweepSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RevocationSweepSeconds) * time.Second
}

// VerifyTimeout bounds a single Google token verification.
func (f FederationConfig) VerifyTimeout() time.Duration {
	if f.VerifyTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(f.VerifyTimeoutSeconds) * time.Second
}

// KeyCacheTTL is how long fetched signing keys are trusted.
func (f FederationConfig) KeyCacheTTL() time.Duration {
	if f.KeyCacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(f.KeyCacheTTLMinutes) * time.Minute
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

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
