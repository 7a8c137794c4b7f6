package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/picketer/pkg/logger"
)

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(Options{Workers: 2, QueueSize: 8})

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.True(t, pool.Dispatch("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	require.EqualValues(t, 5, ran.Load())
}

func TestPoolTaskContextOutlivesCaller(t *testing.T) {
	pool := NewPool(Options{Workers: 1, Timeout: time.Second})

	reqCtx, cancel := context.WithCancel(context.Background())
	var taskErr atomic.Value
	require.True(t, pool.Dispatch("detached", func(ctx context.Context) error {
		<-reqCtx.Done()
		taskErr.Store(ctx.Err() == nil)
		return nil
	}))
	cancel()

	require.NoError(t, pool.Shutdown(context.Background()))
	require.Equal(t, true, taskErr.Load())
}

func TestPoolDropsWhenFull(t *testing.T) {
	pool := NewPool(Options{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.Dispatch("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.True(t, pool.Dispatch("queued", func(ctx context.Context) error { return nil }))
	require.False(t, pool.Dispatch("overflow", func(ctx context.Context) error { return nil }))

	close(release)
	require.NoError(t, pool.Shutdown(context.Background()))
	require.False(t, pool.Dispatch("late", func(ctx context.Context) error { return nil }))
}

func TestFailuresAreLoggedNotPropagated(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	Inline{}.Dispatch("mail.invitation", func(ctx context.Context) error {
		return errors.New("smtp unavailable")
	})
	Inline{}.Dispatch("push.fanout", func(ctx context.Context) error {
		panic("boom")
	})

	entries := recorded.FilterMessage("background task failed").All()
	require.Len(t, entries, 2)
	require.Equal(t, "mail.invitation", entries[0].ContextMap()["task"])
	require.Contains(t, entries[1].ContextMap()["error"], "panic: boom")
}

func TestShutdownHonoursDeadline(t *testing.T) {
	pool := NewPool(Options{Workers: 1})
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	pool.Dispatch("slow", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
}
