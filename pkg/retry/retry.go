// Package retry provides a reusable backoff policy applied uniformly to
// every remote call site, instead of ad hoc retry loops in business logic.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

type Policy struct {
	// MaxAttempts counts the first try. Must be at least 1.
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter is the upper bound of a uniformly random addition to each
	// delay, spreading out retries from concurrent workers.
	Jitter time.Duration
}

// Default mirrors the exponential backoff used against throttled calls:
// 1s, 2s, 4s... plus up to a second of jitter, capped at 30s.
func Default(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
		Jitter:      time.Second,
	}
}

// Do runs op until it succeeds, exhausts the attempt budget, or hits a
// non-retryable error. retryable classifies errors; a nil classifier
// retries everything. Sleeps between attempts honor ctx cancellation.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if serr := sleep(ctx, p.delay(attempt)); serr != nil {
				return serr
			}
		}
		if err = op(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	d := time.Duration(float64(base) * math.Pow(mult, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter))) // nolint:gosec
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
