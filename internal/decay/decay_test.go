package decay

import (
	"testing"
	"time"
)

func TestEffectiveStrength(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	t.Run("fresh access returns base unscaled", func(t *testing.T) {
		last := now.Add(-30 * time.Second)
		got := EffectiveStrength(0.8, last, 5, now, DefaultRate)
		if got != 0.8 {
			t.Fatalf("want 0.8, got %v", got)
		}
	})

	t.Run("fresh access clamps base above 1", func(t *testing.T) {
		last := now.Add(-30 * time.Second)
		got := EffectiveStrength(1.5, last, 5, now, DefaultRate)
		if got != 1.0 {
			t.Fatalf("want 1.0, got %v", got)
		}
	})

	t.Run("zero accesses forces result to zero once stale", func(t *testing.T) {
		last := now.Add(-48 * time.Hour)
		got := EffectiveStrength(1.0, last, 0, now, DefaultRate)
		if got != 0 {
			t.Fatalf("want 0, got %v", got)
		}
	})

	t.Run("decays toward zero over many days", func(t *testing.T) {
		last := now.Add(-365 * 24 * time.Hour)
		got := EffectiveStrength(1.0, last, 1, now, DefaultRate)
		if got < 0 || got > 0.1 {
			t.Fatalf("want near-zero after a year of decay, got %v", got)
		}
	})

	t.Run("result is always within [0, 1]", func(t *testing.T) {
		last := now.Add(-10 * 24 * time.Hour)
		got := EffectiveStrength(1.0, last, 1000, now, DefaultRate)
		if got < 0 || got > 1 {
			t.Fatalf("out of range: %v", got)
		}
	})

	t.Run("higher access count boosts effective strength", func(t *testing.T) {
		last := now.Add(-10 * 24 * time.Hour)
		low := EffectiveStrength(0.5, last, 1, now, DefaultRate)
		high := EffectiveStrength(0.5, last, 50, now, DefaultRate)
		if high <= low {
			t.Fatalf("want higher access count to boost strength: low=%v high=%v", low, high)
		}
	})
}
