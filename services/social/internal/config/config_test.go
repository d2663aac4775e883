package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoad_ProductionRequiresDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL in production")
	}
}

func TestLoad_Durations(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("APP_ENV", "")
	t.Setenv("THREAD_CACHE_TTL", "2m")
	t.Setenv("CDN_URL_TTL", "bogus")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ThreadCacheTTL != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", cfg.ThreadCacheTTL)
	}
	if cfg.CDNURLTTL != time.Hour {
		t.Fatalf("expected fallback 1h, got %s", cfg.CDNURLTTL)
	}
}
