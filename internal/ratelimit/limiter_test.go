package ratelimit

import (
	"testing"
)

func TestNewLimiter(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Tools: []ToolLimit{
			{Name: "recall", RequestsPerSecond: 20, BurstSize: 40},
		},
	}

	limiter := NewLimiter(cfg)

	if !limiter.IsEnabled() {
		t.Error("expected limiter to be enabled")
	}

	if limiter.GetGlobalBucket() == nil {
		t.Error("expected global bucket to exist")
	}

	if limiter.GetToolBucket("recall") == nil {
		t.Error("expected recall bucket to exist")
	}

	if limiter.GetToolBucket("unknown") != nil {
		t.Error("expected unknown tool's bucket to be nil")
	}
}

func TestAllowGlobalLimit(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
	}

	limiter := NewLimiter(cfg)

	result1 := limiter.Allow("remember")
	if !result1.Allowed {
		t.Error("expected first call to be allowed")
	}

	result2 := limiter.Allow("remember")
	if !result2.Allowed {
		t.Error("expected second call to be allowed")
	}

	result3 := limiter.Allow("remember")
	if result3.Allowed {
		t.Error("expected third call to be rejected (burst exceeded)")
	}
	if result3.LimitType != "global" {
		t.Errorf("expected limit type 'global', got '%s'", result3.LimitType)
	}
}

func TestAllowToolLimit(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Tools: []ToolLimit{
			{Name: "forget", RequestsPerSecond: 1, BurstSize: 1},
		},
	}

	limiter := NewLimiter(cfg)

	result1 := limiter.Allow("forget")
	if !result1.Allowed {
		t.Error("expected first forget call to be allowed")
	}

	result2 := limiter.Allow("forget")
	if result2.Allowed {
		t.Error("expected second forget call to be rejected by its tool limit")
	}
	if result2.LimitType != "forget" {
		t.Errorf("expected limit type 'forget', got '%s'", result2.LimitType)
	}

	result3 := limiter.Allow("recall")
	if !result3.Allowed {
		t.Error("expected a call to an unconfigured tool to still pass the global limit")
	}
}

func TestDisabledLimiter(t *testing.T) {
	cfg := &Config{
		Enabled: false,
		Global: LimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         1,
		},
	}

	limiter := NewLimiter(cfg)

	for i := 0; i < 100; i++ {
		result := limiter.Allow("remember")
		if !result.Allowed {
			t.Errorf("expected call %d to be allowed when disabled", i)
		}
		if result.LimitType != "disabled" {
			t.Errorf("expected limit type 'disabled', got '%s'", result.LimitType)
		}
	}
}

func TestSetEnabled(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         1,
		},
	}

	limiter := NewLimiter(cfg)

	limiter.Allow("remember")

	result := limiter.Allow("remember")
	if result.Allowed {
		t.Error("expected call to be rejected")
	}

	limiter.SetEnabled(false)

	result = limiter.Allow("remember")
	if !result.Allowed {
		t.Error("expected call to be allowed once disabled")
	}
}

func TestGetStats(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Tools: []ToolLimit{
			{Name: "recall", RequestsPerSecond: 20, BurstSize: 40},
		},
	}

	limiter := NewLimiter(cfg)
	stats := limiter.GetStats()

	if !stats.Enabled {
		t.Error("expected stats.Enabled to be true")
	}
	if stats.GlobalTokens < 199 {
		t.Errorf("expected ~200 global tokens, got %f", stats.GlobalTokens)
	}
	if _, ok := stats.ToolTokens["recall"]; !ok {
		t.Error("expected recall tool tokens in stats")
	}
}

func TestLimiterReset(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Global: LimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
	}

	limiter := NewLimiter(cfg)

	limiter.Allow("remember")
	limiter.Allow("remember")

	limiter.Reset()

	result := limiter.Allow("remember")
	if !result.Allowed {
		t.Error("expected call to be allowed after reset")
	}
}
