package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Remote document store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Remote document store
	RemoteBackend string
	DatabaseURL   string
	RedisURL      string

	// Local persistent store
	DataDir string

	// Data layer tuning
	FetchTimeout  time.Duration
	CacheTTL      time.Duration
	ProbeInterval time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		RemoteBackend: getEnvOrDefault("REMOTE_BACKEND", BackendPostgres),
		DataDir:       getEnvOrDefault("DATA_DIR", "./data"),
		FetchTimeout:  getEnvAsDuration("FETCH_TIMEOUT_SECONDS", 10, time.Second),
		CacheTTL:      getEnvAsDuration("CACHE_TTL_MINUTES", 5, time.Minute),
		ProbeInterval: getEnvAsDuration("PROBE_INTERVAL_SECONDS", 30, time.Second),
		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	switch cfg.RemoteBackend {
	case BackendPostgres:
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	case BackendRedis:
		cfg.RedisURL = mustGetEnv("REDIS_URL")
	default:
		panic(fmt.Sprintf("unknown REMOTE_BACKEND %q (want %s or %s)", cfg.RemoteBackend, BackendPostgres, BackendRedis))
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsDuration(key string, defaultVal int, unit time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return time.Duration(defaultVal) * unit
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return time.Duration(defaultVal) * unit
	}
	return time.Duration(n) * unit
}
