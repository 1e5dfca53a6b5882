package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.DisplayTimezone != "Asia/Singapore" {
		t.Errorf("expected default timezone Asia/Singapore, got %s", cfg.DisplayTimezone)
	}
	if cfg.StateTTL != 720*time.Hour {
		t.Errorf("expected default state TTL 720h, got %s", cfg.StateTTL)
	}
	if cfg.SendTimeout != 10*time.Second {
		t.Errorf("expected default send timeout 10s, got %s", cfg.SendTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DISPLAY_TZ", "UTC")
	t.Setenv("STATE_TTL", "48h")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DisplayTimezone != "UTC" {
		t.Errorf("expected timezone UTC, got %s", cfg.DisplayTimezone)
	}
	if cfg.StateTTL != 48*time.Hour {
		t.Errorf("expected state TTL 48h, got %s", cfg.StateTTL)
	}
	if !cfg.RedisTLS {
		t.Error("expected redis TLS enabled")
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{DisplayTimezone: "Asia/Singapore"}
	loc := cfg.Location()
	if loc == nil {
		t.Fatal("expected non-nil location")
	}

	// Unknown zones fall back to a fixed UTC+8 offset rather than failing.
	cfg = &Config{DisplayTimezone: "Not/AZone"}
	loc = cfg.Location()
	if loc == nil {
		t.Fatal("expected fallback location")
	}
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 8*60*60 {
		t.Errorf("expected +8h fallback offset, got %d", offset)
	}
}
