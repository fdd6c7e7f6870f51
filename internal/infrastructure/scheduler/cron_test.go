package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	err := s.Schedule("bad", "every now and then", func(context.Context) {})
	assert.Error(t, err)
}

func TestScheduleRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	require.NoError(t, s.Schedule("trending", "@every 15m", func(context.Context) {}))
	assert.Error(t, s.Schedule("trending", "@every 15m", func(context.Context) {}))
}

func TestNextActivation(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	require.NoError(t, s.Schedule("popular", "@every 6h", func(context.Context) {}))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	next, ok := s.Next("popular")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), next, time.Minute)

	_, ok = s.Next("missing")
	assert.False(t, ok)
}

func TestJobsRunAndSurvivePanics(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewCronScheduler(time.UTC, nil)
	require.NoError(t, s.Schedule("flaky", "@every 1s", func(ctx context.Context) {
		runs.Add(1)
		panic("boom")
	}))

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "jobs must not run after Stop")
}

func TestStopCancelsJobContext(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	s := NewCronScheduler(time.UTC, nil)
	require.NoError(t, s.Schedule("slow", "@every 1s", func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		close(cancelled)
	}))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	require.NoError(t, s.Stop(context.Background()))
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, nil)
	assert.NoError(t, s.Stop(context.Background()))
}
