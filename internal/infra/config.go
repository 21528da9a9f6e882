package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via STORE_BACKEND.
const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	ReplicateAPIToken string
	ReplicateBaseURL  string
	StoreBackend      string
	DatabaseURL       string
	RedisURL          string
	PollInterval      time.Duration
	PollMaxAttempts   int
	RetentionTTL      time.Duration
	AuthRequired      bool
	JWTSecret         string
	GeoIPDBPath       string
	CORSOrigins       []string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// Production reports whether the service runs in its hardened mode, which
// among other things stops the not-found response from listing known IDs.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The prediction API token is required: a missing
// token must fail startup here rather than surface later as an opaque
// upstream error.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		StoreBackend:      getEnv("STORE_BACKEND", StoreBackendMemory),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1000)),
		PollMaxAttempts:   getEnvInt("POLL_MAX_ATTEMPTS", 60),
		RetentionTTL:      time.Hour * time.Duration(getEnvInt("PREDICTION_RETENTION_TTL_HOURS", 24)),
		AuthRequired:      getEnvBool("AUTH_REQUIRED", false),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:       splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
	}

	if strings.TrimSpace(cfg.ReplicateAPIToken) == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}

	switch cfg.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.AuthRequired && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED=true")
	}

	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
