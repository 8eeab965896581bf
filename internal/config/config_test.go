package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MAX_TASK_RETRIES", "3")
	t.Setenv("REQUEST_TIMEOUT", "10s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxTaskRetries != 3 {
		t.Fatalf("MaxTaskRetries=%d", cfg.MaxTaskRetries)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("RequestTimeout=%s", cfg.RequestTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("AllowedOrigins=%v", cfg.AllowedOrigins)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected dev secret fallback")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REQUEST_TIMEOUT")
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET in production")
	}
}

func TestLoadNegativeRetries(t *testing.T) {
	t.Setenv("MAX_TASK_RETRIES", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative retries")
	}
}

func TestLoadRequiresBotTokenInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without TELEGRAM_BOT_TOKEN in production")
	}
}
