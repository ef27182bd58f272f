package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPPort != 7749 {
		t.Errorf("expected HTTPPort=7749, got %d", cfg.HTTPPort)
	}
	if cfg.HTTPHost != "127.0.0.1" {
		t.Errorf("expected HTTPHost=127.0.0.1, got %s", cfg.HTTPHost)
	}
	if cfg.DecayRate != 0.95 {
		t.Errorf("expected DecayRate=0.95, got %v", cfg.DecayRate)
	}
	if cfg.AccessBoostStrength != 1.0 {
		t.Errorf("expected AccessBoostStrength=1.0, got %v", cfg.AccessBoostStrength)
	}
	if !cfg.EnableScopes || !cfg.EnableIdempotency || !cfg.EnableContextHydration {
		t.Error("expected scopes, idempotency, and context hydration enabled by default")
	}
	if cfg.EnableWorkItems {
		t.Error("expected work items disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("ENGRAM_HTTP_PORT", "9090")
	t.Setenv("ENGRAM_DECAY_RATE", "0.8")
	t.Setenv("ENGRAM_ENABLE_WORK_ITEMS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("expected HTTPPort=9090, got %d", cfg.HTTPPort)
	}
	if cfg.DecayRate != 0.8 {
		t.Errorf("expected DecayRate=0.8, got %v", cfg.DecayRate)
	}
	if !cfg.EnableWorkItems {
		t.Error("expected EnableWorkItems=true")
	}
}

func TestLoadFallsBackOnMalformedPort(t *testing.T) {
	t.Setenv("ENGRAM_HTTP_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != DefaultConfig().HTTPPort {
		t.Errorf("expected fallback to default port, got %d", cfg.HTTPPort)
	}
}

func TestLoadFallsBackOnOutOfRangePort(t *testing.T) {
	t.Setenv("ENGRAM_HTTP_PORT", "99999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != DefaultConfig().HTTPPort {
		t.Errorf("expected fallback to default port for out-of-range value, got %d", cfg.HTTPPort)
	}
}
