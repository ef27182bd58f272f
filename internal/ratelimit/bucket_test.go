package ratelimit

import (
	"testing"
	"time"
)

func TestNewBucket(t *testing.T) {
	bucket := NewBucket(10, 5)

	if bucket.Capacity() != 10 {
		t.Errorf("expected capacity 10, got %f", bucket.Capacity())
	}
	if bucket.RefillRate() != 5 {
		t.Errorf("expected refill rate 5, got %f", bucket.RefillRate())
	}
	if bucket.Tokens() < 9.9 { // allow for small scheduling drift
		t.Errorf("expected ~10 tokens, got %f", bucket.Tokens())
	}
}

func TestBucketTryConsume(t *testing.T) {
	bucket := NewBucket(10, 1)

	if !bucket.TryConsume(5) {
		t.Error("expected consume of 5 from 10 to succeed")
	}
	if !bucket.TryConsume(3) {
		t.Error("expected consume of 3 from 5 to succeed")
	}
	if bucket.TryConsume(5) {
		t.Error("expected consume of 5 from ~2 to fail")
	}
}

func TestBucketRefill(t *testing.T) {
	bucket := NewBucket(10, 100) // 100 tokens/sec

	bucket.TryConsume(10)
	if bucket.Tokens() > 0.5 {
		t.Errorf("expected ~0 tokens right after full consume, got %f", bucket.Tokens())
	}

	time.Sleep(50 * time.Millisecond) // should refill ~5 tokens

	tokens := bucket.Tokens()
	if tokens < 4 || tokens > 6 {
		t.Errorf("expected ~5 tokens after 50ms refill, got %f", tokens)
	}
}

func TestBucketTimeToWait(t *testing.T) {
	bucket := NewBucket(10, 10) // 10 tokens/sec

	bucket.TryConsume(10)

	waitTime := bucket.TimeToWait(5) // 5 tokens at 10/sec = 0.5s
	if waitTime < 400*time.Millisecond || waitTime > 600*time.Millisecond {
		t.Errorf("expected ~500ms wait, got %v", waitTime)
	}
}

func TestBucketReset(t *testing.T) {
	bucket := NewBucket(10, 1)

	bucket.TryConsume(8)
	bucket.Reset()

	if bucket.Tokens() < 9.9 {
		t.Errorf("expected ~10 tokens after reset, got %f", bucket.Tokens())
	}
}

func TestBucketCapacityLimit(t *testing.T) {
	bucket := NewBucket(10, 100)

	time.Sleep(200 * time.Millisecond) // long enough to overflow capacity

	if bucket.Tokens() > 10.1 {
		t.Errorf("expected tokens capped at 10, got %f", bucket.Tokens())
	}
}
