// Package ratelimit throttles credential validation attempts per client address.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more attempt under key is allowed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config is a token bucket: Burst attempts back-to-back, refilled at PerMinute per minute.
type Config struct {
	PerMinute int
	Burst     int
}

// Enabled reports whether c describes an active limit.
func (c Config) Enabled() bool {
	return c.PerMinute > 0 && c.Burst > 0
}

func (c Config) perSecond() float64 {
	return float64(c.PerMinute) / 60
}

// idleTTL is how long a bucket may sit unused before it is dropped: the time to refill it fully.
func (c Config) idleTTL() time.Duration {
	d := time.Duration(c.Burst) * time.Minute / time.Duration(c.PerMinute)
	if d < time.Second {
		d = time.Second
	}
	return d
}
