// Package embedding implements the text-to-vector contract: embed, embed
// batch, cosine similarity, and a lossless blob codec, behind a process-wide
// lazily-initialized handle shared across callers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnavailable wraps any embedding load or inference failure. Never fatal:
// callers degrade to FTS-only behavior (see internal/memory).
var ErrUnavailable = errors.New("embedding unavailable")

// Provider is the contract a concrete embedding backend implements.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// Config describes how to reach and shape the local embedding backend.
type Config struct {
	BaseURL string
	Model   string
	Dim     int
	Timeout time.Duration
}

var (
	mu       sync.Mutex
	instance Provider
	initErr  error
	group    singleflight.Group
)

// Get returns the process-wide provider, initializing it on first call. A
// concurrent caller arriving while initialization is in flight shares that
// same in-progress initialization via singleflight and receives the same
// handle — no duplicate loads.
func Get(cfg Config) (Provider, error) {
	mu.Lock()
	if instance != nil {
		p := instance
		mu.Unlock()
		return p, nil
	}
	mu.Unlock()

	v, err, _ := group.Do("process-wide-embedder", func() (any, error) {
		mu.Lock()
		if instance != nil {
			p := instance
			mu.Unlock()
			return p, nil
		}
		mu.Unlock()

		p, err := newHTTPProvider(cfg)
		if err != nil {
			mu.Lock()
			initErr = err
			mu.Unlock()
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		mu.Lock()
		instance = p
		initErr = nil
		mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Provider), nil
}

// Reset clears the process-wide provider and any cached init error. Tests
// call this between cases that need a fresh (or differently configured)
// embedder.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	initErr = nil
	group = singleflight.Group{}
}

// SetProviderForTest installs provider as the process-wide instance
// directly, bypassing Config and the HTTP backend entirely. Tests elsewhere
// in this module use this to exercise the semantic-ranking path without a
// live embedding server.
func SetProviderForTest(provider Provider) {
	mu.Lock()
	defer mu.Unlock()
	instance = provider
	initErr = nil
}

// Embed embeds a single piece of text through the process-wide provider.
func Embed(ctx context.Context, cfg Config, text string) ([]float32, error) {
	p, err := Get(cfg)
	if err != nil {
		return nil, err
	}
	v, err := p.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

// EmbedBatch embeds multiple texts through the process-wide provider.
func EmbedBatch(ctx context.Context, cfg Config, texts []string) ([][]float32, error) {
	p, err := Get(cfg)
	if err != nil {
		return nil, err
	}
	vs, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vs, nil
}
