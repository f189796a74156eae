package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleWatchdog_Expires(t *testing.T) {
	t.Parallel()

	ctx, _, stop := NewIdleWatchdog(context.Background(), 10*time.Millisecond)
	defer stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
	assert.True(t, IsIdleTimeout(ctx))
}

func TestIdleWatchdog_ResetKeepsAlive(t *testing.T) {
	t.Parallel()

	ctx, watchdog, stop := NewIdleWatchdog(context.Background(), 100*time.Millisecond)
	defer stop()

	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		watchdog.Reset()
	}
	assert.NoError(t, ctx.Err())
}

func TestIdleWatchdog_StopIsNotTimeout(t *testing.T) {
	t.Parallel()

	ctx, _, stop := NewIdleWatchdog(context.Background(), time.Minute)
	stop()

	<-ctx.Done()
	assert.False(t, IsIdleTimeout(ctx))
}

func TestWatchIdle_CancelsOwnedContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	watchdog := WatchIdle(cancel, 10*time.Millisecond)
	defer watchdog.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
	assert.True(t, IsIdleTimeout(ctx))
}

func TestWatchIdle_StopPreventsExpiry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	WatchIdle(cancel, 20*time.Millisecond).Stop()
	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, ctx.Err())
}
