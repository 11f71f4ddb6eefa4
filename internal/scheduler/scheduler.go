package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PassFunc is invoked on every scheduled pipeline pass.
type PassFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler drives interval-aligned execution of pipeline passes. A failed
// pass is logged and the loop continues; only context cancellation stops it.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the pass function at each aligned interval until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context, pass PassFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := s.nextPass(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.nextPass(time.Now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_pass", next).Msg("waiting for next pass")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		at := next.Truncate(s.opts.Interval)
		s.logger.Info().Time("pass", at).Msg("executing scheduled pass")

		if err := pass(ctx, at); err != nil {
			s.logger.Error().Err(err).Time("pass", at).Msg("scheduled pass failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) nextPass(now time.Time) time.Time {
	aligned := now.Truncate(s.opts.Interval)
	if !aligned.After(now) {
		aligned = aligned.Add(s.opts.Interval)
	}
	return aligned
}
