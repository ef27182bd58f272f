// Package decay computes the time-aware effective strength of a memory.
// Decay is a pure function of three inputs and is always computed on read —
// never persisted as a side effect of a query (see EffectiveStrength doc).
package decay

import (
	"math"
	"time"
)

// DefaultRate is the per-day decay multiplier used when none is configured.
const DefaultRate = 0.95

// EffectiveStrength computes the decay- and access-adjusted strength of a
// memory at query time. It never mutates anything; callers decide whether
// and when to persist a recomputed value (the `decay` maintenance command
// does; `recall` never does — see internal/memory).
//
//	days_since = (now - lastAccessed) / 86400
//	decay_factor = decayRate ^ days_since
//	access_boost = log2(accessCount + 1)
//	effective = clamp(baseStrength * decay_factor * access_boost, 0, 1)
func EffectiveStrength(baseStrength float64, lastAccessed time.Time, accessCount int, now time.Time, decayRate float64) float64 {
	daysSince := now.Sub(lastAccessed).Hours() / 24

	// Clock skew or a just-accessed memory: return the base strength
	// unscaled rather than letting a tiny or negative days_since distort the
	// decay_factor exponent.
	if daysSince < 0.001 {
		return clamp(math.Min(baseStrength, 1.0))
	}

	decayFactor := math.Pow(decayRate, daysSince)
	accessBoost := math.Log(float64(accessCount)+1) / math.Log(2)

	return clamp(baseStrength * decayFactor * accessBoost)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
