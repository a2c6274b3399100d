package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc runs once per interval and receives the start of the hour bucket
// being processed.
type TickFunc func(ctx context.Context, hour time.Time) error

// Options tune the sampling cadence. The Finnish spot market publishes one
// price per hour, so Interval is normally time.Hour with alignment on.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
}

// Scheduler fires ticks aligned to wall-clock interval boundaries so every
// run of the daemon lands on the same hour buckets.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler. A non-positive interval is a programming error.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks until ctx is cancelled, invoking tick once per interval. Tick
// errors are logged and swallowed; the next hour gets a fresh attempt.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	for {
		target := s.nextFire(time.Now().UTC())
		s.logger.Debug().Time("next_hour", target).Msg("waiting for next hour")

		if err := sleep(ctx, time.Until(target)); err != nil {
			return err
		}

		hour := target
		if s.opts.AlignToStart {
			hour = target.Truncate(s.opts.Interval)
		}
		s.logger.Info().Time("hour", hour).Msg("hour tick")

		if err := tick(ctx, hour); err != nil {
			s.logger.Error().Err(err).Time("hour", hour).Msg("tick failed")
		}
	}
}

// nextFire returns the next wall-clock-aligned fire time strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	next := now.Truncate(s.opts.Interval).Add(s.opts.Interval)
	for !next.After(now) {
		next = next.Add(s.opts.Interval)
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
