// Package retry re-checks a condition on a schedule until it holds, fails, or
// a deadline passes.
package retry

import (
	"context"
	"errors"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// ErrDeadlineExceeded is returned by Until when the policy deadline passes
// before the condition holds.
var ErrDeadlineExceeded = errors.New("retry deadline exceeded")

// Policy describes how often a condition is re-checked. When MaxInterval is
// above Interval the interval doubles after each check up to MaxInterval;
// otherwise it stays fixed. A zero Deadline never expires.
type Policy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Deadline    time.Time
}

// Fixed returns a policy that checks every interval until deadline.
func Fixed(interval time.Duration, deadline time.Time) Policy {
	return Policy{Interval: interval, Deadline: deadline}
}

// Until calls check until it reports true or returns an error. The deadline is
// tested before every check, and waits never extend past it. Until returns the
// number of checks made.
func Until(ctx context.Context, clock clockwork.Clock, p Policy, check func() (bool, error)) (int, error) {
	interval := p.Interval
	attempts := 0

	for {
		if p.expired(clock.Now()) {
			return attempts, ErrDeadlineExceeded
		}

		attempts++
		done, err := check()
		if err != nil {
			return attempts, err
		}
		if done {
			return attempts, nil
		}

		wait := interval
		if !p.Deadline.IsZero() {
			if remaining := p.Deadline.Sub(clock.Now()); remaining < wait {
				wait = remaining
			}
		}
		if !sleepWithContext(ctx, clock, wait) {
			return attempts, ctx.Err()
		}
		interval = p.next(interval)
	}
}

func (p Policy) expired(now time.Time) bool {
	return !p.Deadline.IsZero() && !now.Before(p.Deadline)
}

func (p Policy) next(current time.Duration) time.Duration {
	if p.MaxInterval <= p.Interval {
		return current
	}
	return sharedretry.NextBackoff(current, p.MaxInterval)
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
