package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTaskRejectsNonPositiveInterval(t *testing.T) {
	s := NewScheduler(nil)

	err := s.AddTask("broken", 0, func(context.Context) error { return nil })

	assert.Error(t, err)
}

func TestTasksRunImmediatelyOnStart(t *testing.T) {
	// Setup
	s := NewScheduler(nil)
	var ok, failing atomic.Int32
	require.NoError(t, s.AddTask("ok", time.Hour, func(context.Context) error {
		ok.Add(1)
		return nil
	}))
	require.NoError(t, s.AddTask("failing", time.Hour, func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	}))

	// Execute
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	// Assert
	require.Eventually(t, func() bool {
		return ok.Load() == 1 && failing.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.Equal(t, int32(1), ok.Load())
}

func TestTaskContextCancelledOnStop(t *testing.T) {
	s := NewScheduler(nil)
	started := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, s.AddTask("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(done)
		return ctx.Err()
	}))

	require.NoError(t, s.Start(context.Background()))
	<-started
	require.NoError(t, s.Stop())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) SweepExpired(ctx context.Context) int {
	c.calls.Add(1)
	return 2
}

type countingPruner struct{ calls atomic.Int32 }

func (c *countingPruner) Prune() int {
	c.calls.Add(1)
	return 0
}

type countingIndexPruner struct {
	calls atomic.Int32
	keep  atomic.Int32
}

func (c *countingIndexPruner) PruneIndices(ctx context.Context, keepMonths int) (int, error) {
	c.calls.Add(1)
	c.keep.Store(int32(keepMonths))
	return 1, nil
}

func TestMaintenanceSchedulerRunsEveryTask(t *testing.T) {
	// Setup
	sweeper := &countingSweeper{}
	pruner := &countingPruner{}
	indices := &countingIndexPruner{}
	m := NewMaintenanceScheduler(nil, sweeper, pruner, indices, MaintenanceConfig{
		SweepInterval:  time.Hour,
		IndexRetention: 6,
	})

	// Execute
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	// Assert
	require.Eventually(t, func() bool {
		return sweeper.calls.Load() == 1 && pruner.calls.Load() == 1 && indices.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(6), indices.keep.Load())
}

func TestMaintenanceSchedulerWithoutIndices(t *testing.T) {
	sweeper := &countingSweeper{}
	pruner := &countingPruner{}
	m := NewMaintenanceScheduler(nil, sweeper, pruner, nil, MaintenanceConfig{})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() == 1 && pruner.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, m.scheduler.tasks, 2)
}
