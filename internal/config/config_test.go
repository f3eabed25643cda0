package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SyncMaxRetries != 3 {
		t.Errorf("SyncMaxRetries = %d, want 3", cfg.SyncMaxRetries)
	}
	if cfg.MatchingMaxDistanceKM != 20 {
		t.Errorf("MatchingMaxDistanceKM = %v, want 20", cfg.MatchingMaxDistanceKM)
	}
	if cfg.MetricsRefreshInterval != 30*time.Second {
		t.Errorf("MetricsRefreshInterval = %v, want 30s", cfg.MetricsRefreshInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_MAX_RETRIES", "5")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("NEW_RELIC_ENABLED", "true")
	t.Setenv("AVERAGE_SPEED_KMH", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SyncMaxRetries != 5 {
		t.Errorf("SyncMaxRetries = %d, want 5", cfg.SyncMaxRetries)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 250ms", cfg.RetryBaseDelay)
	}
	if !cfg.NewRelicEnabled {
		t.Error("NewRelicEnabled = false, want true")
	}
	if cfg.AverageSpeedKMH != 30 {
		t.Errorf("invalid AVERAGE_SPEED_KMH should fall back to 30, got %v", cfg.AverageSpeedKMH)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{PricingTimezone: "Nowhere/Invalid"}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}
