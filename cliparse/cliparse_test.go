package cliparse

import (
	"testing"
	"time"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("RATE_LIMIT", "")
	t.Setenv("RATE_WINDOW", "")

	cfg, err := ParseFlags([]string{
		"-d", "postgres://localhost/turnstile",
		"-admin-salt", "s1",
		"-phone-salt", "s2",
	})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Port != 3380 {
		t.Errorf("Expected default port 3380, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("Expected default type postgres, got %s", cfg.DatabaseType)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("Expected default rate limit 10, got %d", cfg.RateLimit)
	}
	if cfg.RateWindow != time.Minute {
		t.Errorf("Expected default rate window 1m, got %v", cfg.RateWindow)
	}
}

func TestParseFlagsMissingSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADMIN_KEY_SALT", "")
	t.Setenv("PHONE_HASH_SALT", "")

	_, err := ParseFlags([]string{"-d", "postgres://localhost/turnstile"})
	if err == nil {
		t.Error("Expected error when secrets are missing")
	}
}

func TestParseFlagsInvalidDatabaseType(t *testing.T) {
	_, err := ParseFlags([]string{
		"-d", "x", "-t", "oracle",
		"-admin-salt", "s1", "-phone-salt", "s2",
	})
	if err == nil {
		t.Error("Expected error for unknown database type")
	}
}

func TestParseFlagsRateOverrides(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-d", "x",
		"-admin-salt", "s1", "-phone-salt", "s2",
		"-rate-limit", "3",
		"-rate-window", "250ms",
	})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.RateLimit != 3 {
		t.Errorf("Expected rate limit 3, got %d", cfg.RateLimit)
	}
	if cfg.RateWindow != 250*time.Millisecond {
		t.Errorf("Expected rate window 250ms, got %v", cfg.RateWindow)
	}
}
