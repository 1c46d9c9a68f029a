package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStopWaitsAndCounts(t *testing.T) {
	s := New(context.Background())
	started := make(chan struct{})
	s.Go0("worker", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started
	assert.Equal(t, Counters{Active: 1, Started: 1}, s.Counters())

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, Counters{Active: 0, Started: 1}, s.Counters())

	snap := s.Snapshot()
	require.Len(t, snap.Goroutines, 1)
	assert.Equal(t, "worker", snap.Goroutines[0].Name)
	assert.False(t, snap.Goroutines[0].LastStopAt.IsZero())
}

func TestFirstErrorKept(t *testing.T) {
	s := New(context.Background())
	s.Go("a", func(context.Context) error { return errors.New("boom") })
	require.Eventually(t, func() bool { return s.Counters().Active == 0 }, time.Second, time.Millisecond)
	s.Go("b", func(context.Context) error { return context.Canceled })

	err := s.Stop(context.Background())
	require.Error(t, err)
	assert.Equal(t, "a: boom", err.Error())
	// without cancel-on-error the context stayed live until Stop
	assert.Equal(t, "a: boom", s.Snapshot().FirstError)
}

func TestCancelOnError(t *testing.T) {
	s := New(context.Background(), WithCancelOnError(true))
	s.Go0("waiter", func(ctx context.Context) { <-ctx.Done() })
	s.Go("fails", func(context.Context) error { return errors.New("nope") })

	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
	assert.Error(t, s.Wait(context.Background()))
}

func TestPanicRecovered(t *testing.T) {
	s := New(context.Background())
	s.Go0("bad", func(context.Context) { panic("oops") })

	err := s.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: oops")
	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Goroutines[0].Panics)
	assert.Zero(t, snap.Counters.Active)
}

func TestWaitBoundedByContext(t *testing.T) {
	s := New(context.Background())
	release := make(chan struct{})
	s.Go0("stuck", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, s.Wait(context.Background()))
}
