// Package network has helpers for flaky network links.
package network

import (
	"context"
	"time"
)

// Retry is a doubling pause between attempts, capped at max.
type Retry struct {
	t   time.Duration
	min time.Duration
	max time.Duration
}

func NewRetry(min, max time.Duration) Retry { return Retry{t: min, min: min, max: max} }

// Fail returns the pause before the next attempt and doubles it.
func (r *Retry) Fail() time.Duration {
	t := r.t
	if r.t *= 2; r.t > r.max {
		r.t = r.max
	}
	return t
}

// Wait sleeps for the next pause unless the context is done first.
func (r *Retry) Wait(ctx context.Context) error {
	timer := time.NewTimer(r.Fail())
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Retry) Success()            { r.t = r.min }
func (r *Retry) Time() time.Duration { return r.t }
