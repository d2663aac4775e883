package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// Config holds the social service settings beyond the platform AppConfig.
type Config struct {
	Production     bool
	DatabaseURL    string
	JWTSecret      string
	RedisURL       string // empty disables the thread cache
	ThreadCacheTTL time.Duration
	NATSURL        string // empty disables analytics publishing
	CDNBaseURL     string
	CDNSecret      string
	CDNURLTTL      time.Duration
}

// Load reads Config from environment variables.
func Load() (Config, error) {
	cfg := Config{
		Production:     strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		ThreadCacheTTL: envDuration("THREAD_CACHE_TTL", 30*time.Second),
		NATSURL:        strings.TrimSpace(os.Getenv("NATS_URL")),
		CDNBaseURL:     strings.TrimSpace(os.Getenv("CDN_BASE_URL")),
		CDNSecret:      strings.TrimSpace(os.Getenv("CDN_SIGNING_SECRET")),
		CDNURLTTL:      envDuration("CDN_URL_TTL", time.Hour),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.Production && cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required in production")
	}
	return cfg, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
