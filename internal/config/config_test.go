package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DodoEnvironment != "test" {
		t.Errorf("DodoEnvironment = %q, payments must default to test mode", cfg.DodoEnvironment)
	}
	if cfg.DefaultCacheTTL != 24*time.Hour {
		t.Errorf("DefaultCacheTTL = %v", cfg.DefaultCacheTTL)
	}
	if cfg.CategoriesFile != "categories.yaml" {
		t.Errorf("CategoriesFile = %q", cfg.CategoriesFile)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DODO_ENVIRONMENT", "live")
	t.Setenv("DODO_DEPOSIT_PRODUCT_ID", "prod-123")
	t.Setenv("CACHE_DEFAULT_TTL", "15m")
	t.Setenv("NETWORK_PROBE_INTERVAL", "5s")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DodoEnvironment != "live" {
		t.Errorf("DodoEnvironment = %q", cfg.DodoEnvironment)
	}
	if cfg.DodoDepositProductID != "prod-123" {
		t.Errorf("DodoDepositProductID = %q", cfg.DodoDepositProductID)
	}
	if cfg.DefaultCacheTTL != 15*time.Minute {
		t.Errorf("DefaultCacheTTL = %v", cfg.DefaultCacheTTL)
	}
	if cfg.NetworkProbeInterval != 5*time.Second {
		t.Errorf("NetworkProbeInterval = %v", cfg.NetworkProbeInterval)
	}
}

func TestLoadIgnoresMalformedDuration(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "not-a-duration")

	cfg := Load()
	if cfg.DefaultCacheTTL != 24*time.Hour {
		t.Errorf("malformed duration must fall back to the default, got %v", cfg.DefaultCacheTTL)
	}
}
