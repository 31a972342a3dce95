package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	t.Setenv("SEED_CASHIER_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.SeedAdminPassword != "" || cfg.SeedCashierPassword != "" {
		t.Fatalf("expected no seeded passwords when unset")
	}
}

func TestLoadParsesDurationsAndLists(t *testing.T) {
	t.Setenv("SYNC_DEBOUNCE_MS", "500")
	t.Setenv("CLOUD_TIMEOUT_SECONDS", "0")
	t.Setenv("CLOUD_STUB_DELAY_MS", "0")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")
	t.Setenv("LOG_PRETTY", "true")

	cfg := Load()
	if cfg.SyncDebounce != 500*time.Millisecond {
		t.Fatalf("expected 500ms debounce, got %s", cfg.SyncDebounce)
	}
	if cfg.CloudTimeout != 10*time.Second {
		t.Fatalf("expected fallback cloud timeout, got %s", cfg.CloudTimeout)
	}
	if cfg.CloudStubDelay != 0 {
		t.Fatalf("expected zero stub delay to be allowed, got %s", cfg.CloudStubDelay)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if !cfg.LogPretty {
		t.Fatalf("expected pretty logging")
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "9090"}).Address(); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}
}
