package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("PHONE_NUMBER_ID", "123456")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Expected port 3000, got %s", cfg.Port)
	}
	if cfg.Generation.Timeout != 20*time.Second {
		t.Errorf("Expected 20s generation timeout, got %v", cfg.Generation.Timeout)
	}
	if cfg.State.Backend != "sqlite" || cfg.State.DBPath == "" {
		t.Errorf("Expected sqlite state by default, got %+v", cfg.State)
	}
	if cfg.MaxBody != 10<<20 {
		t.Errorf("Expected 10 MiB body limit, got %d", cfg.MaxBody)
	}
	if cfg.Generation.RateLimit != 20 || cfg.Generation.RateWindow != time.Minute {
		t.Errorf("Expected 20 calls per minute, got %d per %v", cfg.Generation.RateLimit, cfg.Generation.RateWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("GENERATION_MODEL", "gpt-4o-mini")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("STATE_BACKEND", "redis")
	t.Setenv("STATE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LILA_ID_1", "lila")
	t.Setenv("DORY_ID_1", "dory")
	t.Setenv("THANKS_STICKER_IDS", "extra, lila ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Generation.Model != "gpt-4o-mini" || cfg.Generation.Timeout != 5*time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	ids := cfg.StickerIDs()
	want := []string{"lila", "dory", "extra"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("sticker %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestLoadRequiresVerifyToken(t *testing.T) {
	t.Setenv("VERIFY_TOKEN", "")
	t.Setenv("PHONE_NUMBER_ID", "123")
	if _, err := Load(); err == nil {
		t.Error("Expected error without VERIFY_TOKEN")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("STATE_BACKEND", "etcd")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestValidateRateLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("GENERATION_RATE_LIMIT", "-1")
	if _, err := Load(); err == nil {
		t.Error("Expected error for negative rate limit")
	}

	t.Setenv("GENERATION_RATE_LIMIT", "0")
	t.Setenv("GENERATION_RATE_WINDOW", "0s")
	if _, err := Load(); err != nil {
		t.Errorf("Expected a disabled limiter to ignore the window, got %v", err)
	}
}
