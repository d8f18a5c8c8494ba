// Package ratelimit implements sliding-window attempt limits keyed by an arbitrary string (client IP for logins).
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one attempt.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts attempts per key inside a sliding window.
type Limiter interface {
	// Allow records an attempt for key unless the window is already full.
	Allow(ctx context.Context, key string) (Result, error)
	// Reset forgets every attempt for key.
	Reset(ctx context.Context, key string) error
}

// Options configure a limiter.
type Options struct {
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = 5
	}
	if o.Window <= 0 {
		o.Window = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
