package ratelimit

import (
	"sync"
	"time"
)

// LimitResult is the outcome of one Allow check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration // suggested wait if !Allowed
	LimitType  string        // "global", "disabled", or the tool name
	Remaining  float64       // tokens left in the bucket that decided this check
}

// Limiter enforces a global bucket plus an optional per-tool bucket for
// each of engram's remember/recall/forget/context_hydrate calls. Each
// transport (internal/api, internal/mcp) builds its own Limiter instance.
type Limiter struct {
	mu           sync.RWMutex
	enabled      bool
	globalBucket *Bucket
	toolBuckets  map[string]*Bucket
	config       *Config
	metrics      *Metrics
}

// NewLimiter builds a Limiter from cfg, or DefaultConfig if cfg is nil.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Limiter{
		enabled:     cfg.Enabled,
		toolBuckets: make(map[string]*Bucket),
		config:      cfg,
		metrics:     NewMetrics(),
	}

	l.globalBucket = NewBucket(
		float64(cfg.Global.BurstSize),
		cfg.Global.RequestsPerSecond,
	)

	for _, toolLimit := range cfg.Tools {
		l.toolBuckets[toolLimit.Name] = NewBucket(
			float64(toolLimit.BurstSize),
			toolLimit.RequestsPerSecond,
		)
	}

	return l
}

// Allow checks the global bucket, then toolName's bucket if one is
// configured. A disabled limiter always allows.
func (l *Limiter) Allow(toolName string) *LimitResult {
	if !l.enabled {
		return &LimitResult{
			Allowed:   true,
			LimitType: "disabled",
			Remaining: -1,
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.globalBucket.TryConsume(1) {
		retryAfter := l.globalBucket.TimeToWait(1)
		l.metrics.RecordRejection("global", toolName)
		return &LimitResult{
			Allowed:    false,
			RetryAfter: retryAfter,
			LimitType:  "global",
			Remaining:  l.globalBucket.Tokens(),
		}
	}

	toolBucket, exists := l.toolBuckets[toolName]
	if !exists {
		l.metrics.RecordAllowed(toolName)
		return &LimitResult{
			Allowed:   true,
			LimitType: "global",
			Remaining: l.globalBucket.Tokens(),
		}
	}

	if !toolBucket.TryConsume(1) {
		// Refund the global token consumed above before we reject on the
		// tool-specific limit.
		l.globalBucket.mu.Lock()
		l.globalBucket.tokens++
		if l.globalBucket.tokens > l.globalBucket.capacity {
			l.globalBucket.tokens = l.globalBucket.capacity
		}
		l.globalBucket.mu.Unlock()
		retryAfter := toolBucket.TimeToWait(1)
		l.metrics.RecordRejection(toolName, toolName)
		return &LimitResult{
			Allowed:    false,
			RetryAfter: retryAfter,
			LimitType:  toolName,
			Remaining:  toolBucket.Tokens(),
		}
	}
	l.metrics.RecordAllowed(toolName)
	return &LimitResult{
		Allowed:   true,
		LimitType: toolName,
		Remaining: toolBucket.Tokens(),
	}
}

// IsEnabled reports whether rate limiting is active.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// SetEnabled toggles rate limiting at runtime.
func (l *Limiter) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// GetMetrics returns the limiter's allow/reject counters.
func (l *Limiter) GetMetrics() *Metrics {
	return l.metrics
}

// GetToolBucket returns toolName's bucket, for tests.
func (l *Limiter) GetToolBucket(toolName string) *Bucket {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.toolBuckets[toolName]
}

// GetGlobalBucket returns the global bucket, for tests.
func (l *Limiter) GetGlobalBucket() *Bucket {
	return l.globalBucket
}

// Reset refills every bucket to full capacity.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.globalBucket.Reset()
	for _, bucket := range l.toolBuckets {
		bucket.Reset()
	}
}

// Stats is a snapshot of token levels, suitable for a /capabilities-style
// diagnostic response.
type Stats struct {
	Enabled      bool               `json:"enabled"`
	GlobalTokens float64            `json:"global_tokens"`
	ToolTokens   map[string]float64 `json:"tool_tokens"`
}

// GetStats snapshots current token levels across all buckets.
func (l *Limiter) GetStats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &Stats{
		Enabled:      l.enabled,
		GlobalTokens: l.globalBucket.Tokens(),
		ToolTokens:   make(map[string]float64),
	}

	for name, bucket := range l.toolBuckets {
		stats.ToolTokens[name] = bucket.Tokens()
	}

	return stats
}
