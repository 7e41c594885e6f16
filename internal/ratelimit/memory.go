package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one x/time/rate bucket per key in process. Used when Redis is not configured.
type MemoryLimiter struct {
	mu        sync.Mutex
	cfg       Config
	buckets   map[string]*bucket
	nowF      func() time.Time
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter returns an in-process limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{cfg: cfg, buckets: make(map[string]*bucket), nowF: time.Now}
}

// Allow takes one token from key's bucket. It never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowF()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.perSecond()), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// sweep drops buckets idle long enough to have refilled; they would start full anyway.
func (l *MemoryLimiter) sweep(now time.Time) {
	ttl := l.cfg.idleTTL()
	if now.Sub(l.lastSweep) < ttl {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= ttl {
			delete(l.buckets, k)
		}
	}
}
