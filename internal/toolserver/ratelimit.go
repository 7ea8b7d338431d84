package toolserver

import (
	"sync"
	"time"
)

// tokenBucket is a simple mutex-guarded rate limiter: capacity tokens,
// refilling at a fixed rate. No third-party rate-limiting library
// appears anywhere in the example corpus, so this is hand-rolled
// against the stdlib (see DESIGN.md).
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	last       time.Time
	now        func() time.Time
}

// newTokenBucket returns a bucket starting full, with capacity tokens
// refilling to a rate of refillPerMinute tokens per minute.
func newTokenBucket(capacity int, refillPerMinute int) *tokenBucket {
	now := time.Now
	return &tokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillPerMinute) / 60.0,
		last:       now(),
		now:        now,
	}
}

// Allow reports whether a request may proceed, consuming one token if so.
func (b *tokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
