package common

import (
	"context"
	"errors"
	"time"
)

var ErrIdleTimeout = errors.New("no stream event received within idle timeout")

// IdleWatchdog cancels its context with ErrIdleTimeout when Reset is not
// called within the idle window.
type IdleWatchdog struct {
	idle  time.Duration
	timer *time.Timer
}

// NewIdleWatchdog derives a context that the watchdog cancels on expiry. The
// returned stop func releases the timer and the context.
func NewIdleWatchdog(ctx context.Context, idle time.Duration) (context.Context, *IdleWatchdog, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	watchdog := WatchIdle(cancel, idle)
	stop := func() {
		watchdog.Stop()
		cancel(nil)
	}
	return ctx, watchdog, stop
}

// WatchIdle arms a watchdog on a context the caller already owns, for when
// the idle window should only start partway through an operation.
func WatchIdle(cancel context.CancelCauseFunc, idle time.Duration) *IdleWatchdog {
	return &IdleWatchdog{
		idle:  idle,
		timer: time.AfterFunc(idle, func() { cancel(ErrIdleTimeout) }),
	}
}

func (w *IdleWatchdog) Reset() {
	w.timer.Reset(w.idle)
}

func (w *IdleWatchdog) Stop() {
	w.timer.Stop()
}

// IsIdleTimeout reports whether ctx was cancelled by an IdleWatchdog.
func IsIdleTimeout(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrIdleTimeout)
}
