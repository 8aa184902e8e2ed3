package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("VAPID_SUBSCRIBER", "mailto:ops@nudgelab.dev")
	t.Setenv("VAPID_PUBLIC_KEY", "test-public-key")
	t.Setenv("VAPID_PRIVATE_KEY", "test-private-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.TickIntervalSeconds != 60 {
		t.Errorf("TickIntervalSeconds = %d, want 60", cfg.TickIntervalSeconds)
	}
	if cfg.ScanLimit != 100 {
		t.Errorf("ScanLimit = %d, want 100", cfg.ScanLimit)
	}
	if cfg.DispatchConcurrency != 8 {
		t.Errorf("DispatchConcurrency = %d, want 8", cfg.DispatchConcurrency)
	}
	if cfg.RateLimitPerSec != 100 {
		t.Errorf("RateLimitPerSec = %d, want 100", cfg.RateLimitPerSec)
	}
	if cfg.PushWebhookURL != "" {
		t.Errorf("PushWebhookURL = %s, want empty", cfg.PushWebhookURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TICK_INTERVAL_SECONDS", "15")
	t.Setenv("PUSH_WEBHOOK_URL", "https://webhook.site/test-uuid")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.TickIntervalSeconds != 15 {
		t.Errorf("TickIntervalSeconds = %d, want 15", cfg.TickIntervalSeconds)
	}
	if cfg.PushWebhookURL != "https://webhook.site/test-uuid" {
		t.Errorf("PushWebhookURL = %s, want webhook url", cfg.PushWebhookURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	// t.Setenv registers the restore; unset to simulate absence.
	t.Setenv("VAPID_PRIVATE_KEY", "x")
	os.Unsetenv("VAPID_PRIVATE_KEY")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when a required variable is missing")
	}
}
