// Package ratelimit implements a cooperative pacing limiter used between
// search tasks so third-party APIs are not hammered. It throttles, it does
// not enforce admission control.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter spaces operations at a fixed interval with optional jitter. Safe
// for concurrent use.
type Limiter struct {
	ticker   *time.Ticker
	interval time.Duration
	jitter   float64
	ch       <-chan time.Time
}

// New creates a limiter that releases one operation per interval. A zero or
// negative interval yields a no-op limiter. Jitter (0.0 to 1.0) randomizes
// each wait by up to that fraction of the interval.
func New(interval time.Duration, jitter float64) *Limiter {
	if interval <= 0 {
		return &Limiter{}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	ticker := time.NewTicker(interval)
	return &Limiter{
		ticker:   ticker,
		interval: interval,
		jitter:   jitter,
		ch:       ticker.C,
	}
}

// Wait blocks until the next slot or context cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}

	if l.jitter > 0 {
		// Extra sleep in [0, jitter*interval). The ticker already enforces
		// the minimum spacing, so only positive jitter is applied.
		extra := time.Duration(rand.Float64() * l.jitter * float64(l.interval))
		if extra > 0 {
			select {
			case <-time.After(extra):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

// Stop releases the ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
