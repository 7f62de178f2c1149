package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Persistence backends for client snapshots.
const (
	PersistFile  = "file"
	PersistRedis = "redis"
	PersistNone  = "none"
)

type Config struct {
	APIBaseURL  string
	HTTPTimeout time.Duration

	CacheDuration time.Duration

	PersistBackend string
	StateDir       string
	RedisURL       string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.APIBaseURL = getEnv("API_BASE_URL", "http://localhost:8080/api")
	cfg.HTTPTimeout = getDuration("HTTP_TIMEOUT", 10*time.Second)

	cfg.CacheDuration = getDuration("CACHE_DURATION", 5*time.Minute)

	cfg.PersistBackend = getEnv("PERSIST_BACKEND", PersistFile)
	cfg.StateDir = getEnv("STATE_DIR", defaultStateDir())
	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	switch cfg.PersistBackend {
	case PersistFile, PersistRedis, PersistNone:
	default:
		return nil, fmt.Errorf("invalid PERSIST_BACKEND %q (want file, redis or none)", cfg.PersistBackend)
	}

	return cfg, nil
}

func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".tikiti"
	}
	return filepath.Join(base, "tikiti")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
