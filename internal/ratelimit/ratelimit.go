// Package ratelimit provides a per-key token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type (
	// A Limiter holds one token bucket per key.
	// Buckets left untouched for longer than the idle duration are evicted.
	Limiter struct {
		mu      sync.Mutex
		buckets map[string]*bucket
		limit   rate.Limit
		burst   int
		idle    time.Duration
		now     func() time.Time

		done chan struct{}
		once sync.Once
	}

	bucket struct {
		limiter *rate.Limiter
		seen    time.Time
	}
)

// DefaultIdle is the duration after which an untouched bucket is evicted.
const DefaultIdle = 10 * time.Minute

// New returns a new Limiter allowing rps events per second per key with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
	l := &Limiter{
		buckets: map[string]*bucket{},
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    DefaultIdle,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if rps <= 0 {
		l.limit = rate.Inf
	}
	if l.burst < 1 {
		l.burst = 1
	}

	go l.janitor()
	return l
}

// Allow reports whether an event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Evict drops the buckets idle for longer than the idle duration.
func (l *Limiter) Evict() {
	l.mu.Lock()
	defer l.mu.Unlock()

	deadline := l.now().Add(-l.idle)
	for key, b := range l.buckets {
		if b.seen.Before(deadline) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the eviction goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.Evict()
		}
	}
}
