package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window closes.
	ResetAt time.Time
	// RetryAfter is zero for admitted requests.
	RetryAfter time.Duration
}

// Limiter defines the main interface for rate limiting
type Limiter interface {
	// Admit counts one request for key and reports whether it may proceed.
	Admit(ctx context.Context, key string) (Decision, error)

	// Configuration and monitoring
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

// WindowCounter is the minimal shared store the Redis backend needs.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Health(ctx context.Context) error
}

// decide turns a window hit count into a Decision.
func decide(limit int, count int64, resetAt, now time.Time) Decision {
	d := Decision{
		Allowed: count <= int64(limit),
		Limit:   limit,
		ResetAt: resetAt,
	}
	if rem := int64(limit) - count; rem > 0 {
		d.Remaining = int(rem)
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d
}

func unlimited(limit int, window time.Duration, now time.Time) Decision {
	return Decision{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now.Add(window)}
}
