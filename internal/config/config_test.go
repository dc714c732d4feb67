package config

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.CriticalStockThreshold != 5 {
		t.Errorf("CriticalStockThreshold = %d, want 5", cfg.CriticalStockThreshold)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.SessionCookieName != "ppe_session" {
		t.Errorf("SessionCookieName = %q", cfg.SessionCookieName)
	}
	if cfg.Minio.Enabled() || cfg.Redis.Enabled() {
		t.Error("optional backends should be disabled without endpoints")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CRITICAL_STOCK_THRESHOLD", "3")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "9090" || cfg.CriticalStockThreshold != 3 || cfg.SessionTTL != 2*time.Hour {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.Redis.Enabled() {
		t.Error("redis should be enabled")
	}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "http://a.test" || origins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", origins)
	}
}

func TestLoadRejectsWeakSecret(t *testing.T) {
	cases := []struct {
		secret string
		want   error
	}{
		{"", ErrMissingJWTSecret},
		{"short", ErrShortJWTSecret},
	}
	for _, tc := range cases {
		t.Setenv("JWT_SECRET", tc.secret)
		if _, err := Load(); !errors.Is(err, tc.want) {
			t.Errorf("secret %q: err = %v, want %v", tc.secret, err, tc.want)
		}
	}
}
