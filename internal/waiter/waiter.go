// Package waiter blocks until a wall-clock instant.
package waiter

import (
	"context"
	"log/slog"
	"time"
)

// Clock abstracts the wall clock so tests can drive time.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// System is the real wall clock.
var System Clock = systemClock{}

// WaitUntil blocks until target on the system clock.
func WaitUntil(ctx context.Context, target time.Time) error {
	return WaitUntilClock(ctx, System, target)
}

// WaitUntilClock sleeps for the remaining time, then checks again, so an
// early wake-up or a clock step just leads to another, shorter sleep.
func WaitUntilClock(ctx context.Context, c Clock, target time.Time) error {
	for {
		remaining := target.Sub(c.Now())
		if remaining <= 0 {
			return nil
		}
		if err := c.Sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

// WaitForOpening waits until opening, logging when the wait starts and again
// lead before opening. It reports false without waiting if opening has
// already passed.
func WaitForOpening(ctx context.Context, c Clock, opening time.Time, lead time.Duration, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "waiter")
	now := c.Now()
	if !now.Before(opening) {
		logger.Info("reservations already open, not waiting; slots may be gone", "opened", opening)
		return false, nil
	}
	logger.Info("waiting for reservations to open", "opens", opening, "local", opening.Local(), "in", opening.Sub(now).Round(time.Second))

	notice := opening.Add(-lead)
	if now.Before(notice) {
		if err := WaitUntilClock(ctx, c, notice); err != nil {
			return true, err
		}
		logger.Info("reservations open soon", "in", lead)
	}
	if err := WaitUntilClock(ctx, c, opening); err != nil {
		return true, err
	}
	logger.Info("reservations open")
	return true, nil
}
