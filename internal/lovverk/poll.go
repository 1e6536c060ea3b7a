package lovverk

import (
	"context"
	"errors"
	"time"
)

// ErrBehovTimeout marks a re-run that never completed within the bounded
// poll. Definite failure for that one request; the caller must re-submit.
var ErrBehovTimeout = errors.New("behov_timeout")

// PollConfig bounds the wait for a re-run result.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

func (c PollConfig) withDefaults() PollConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 15
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	return c
}

// pollUntil calls done up to cfg.MaxAttempts times, pausing cfg.Interval
// between attempts. Returns ErrBehovTimeout when the attempts are
// exhausted. The wait runs on the caller's goroutine, so callers decide
// how the sleep is scheduled.
func pollUntil(ctx context.Context, cfg PollConfig, done func(ctx context.Context) (bool, error)) error {
	cfg = cfg.withDefaults()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}

		ok, err := done(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return ErrBehovTimeout
}
