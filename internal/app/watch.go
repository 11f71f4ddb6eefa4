package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbitar/holdingswatch/internal/scheduler"
	"github.com/peterbitar/holdingswatch/internal/telemetry"
)

// Watch runs the pipeline on the configured interval until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; run auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sink, closeSink := a.newSink(store)
	defer closeSink()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Watch.Interval).Msg("starting watch loop")

	err = sched.Run(ctx, func(passCtx context.Context, at time.Time) error {
		unlock, proceed, lockErr := a.acquireLock(passCtx, store)
		if lockErr != nil {
			return lockErr
		}
		if !proceed {
			a.Logger.Debug().Time("pass", at).Msg("skip pass because advisory lock held elsewhere")
			return nil
		}
		if unlock != nil {
			defer unlock()
		}

		_, passErr := a.executePass(passCtx, sink, store, RunOptions{})
		return passErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

func (a *App) acquireLock(ctx context.Context, store *telemetry.Store) (func(), bool, error) {
	key := a.Config.Watch.AdvisoryLockKey
	if key == 0 || store == nil {
		return nil, true, nil
	}
	unlock, acquired, err := store.TryAdvisoryLock(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
