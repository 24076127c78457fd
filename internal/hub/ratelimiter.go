package hub

import (
	"sync"
	"time"
)

// RateLimiter is a per-address token bucket guarding inbound WebSocket
// frames. Buckets are created lazily and never proactively swept; a bucket
// for an address that stops sending simply stays idle and full.
type RateLimiter struct {
	mu       sync.Mutex
	capacity float64
	refill   float64 // tokens added per second
	buckets  map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewRateLimiter(capacity int, refillPerSecond float64) *RateLimiter {
	return &RateLimiter{
		capacity: float64(capacity),
		refill:   refillPerSecond,
		buckets:  make(map[string]*bucket),
	}
}

// Allow consumes one token for address, refilling the bucket for elapsed
// time first. Returns false if the bucket is empty.
func (r *RateLimiter) Allow(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	b, ok := r.buckets[address]
	if !ok {
		b = &bucket{tokens: r.capacity, last: now}
		r.buckets[address] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens += elapsed * r.refill
	if b.tokens > r.capacity {
		b.tokens = r.capacity
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
