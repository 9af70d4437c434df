package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTasksEmptyInput(t *testing.T) {
	results := RunTasks(context.Background(), 4, 0, nil, nil)
	assert.Nil(t, results)
}

func TestRunTasksOneResultPerTask(t *testing.T) {
	tasks := make([]Task, 0, 20)
	for i := 0; i < 20; i++ {
		value := i
		tasks = append(tasks, func(ctx context.Context) (interface{}, error) {
			return value, nil
		})
	}

	results := RunTasks(context.Background(), 5, 0, nil, tasks)
	require.Len(t, results, 20)

	seen := make(map[int]bool)
	for _, result := range results {
		require.NoError(t, result.Err)
		seen[result.Value.(int)] = true
	}
	assert.Len(t, seen, 20)
}

func TestRunTasksRecoversPanic(t *testing.T) {
	tasks := []Task{
		func(ctx context.Context) (interface{}, error) { return "ok-1", nil },
		func(ctx context.Context) (interface{}, error) { panic("boom") },
		func(ctx context.Context) (interface{}, error) { return "ok-2", nil },
	}

	results := RunTasks(context.Background(), 3, 0, nil, tasks)
	require.Len(t, results, 3)

	var panicked, succeeded int
	for _, result := range results {
		if result.Err != nil {
			assert.ErrorIs(t, result.Err, ErrTaskPanic)
			assert.Contains(t, result.Err.Error(), "boom")
			panicked++
			continue
		}
		succeeded++
	}
	assert.Equal(t, 1, panicked)
	assert.Equal(t, 2, succeeded)
}

func TestRunTasksPerTaskTimeout(t *testing.T) {
	tasks := []Task{
		func(ctx context.Context) (interface{}, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "never", nil
			}
		},
	}

	start := time.Now()
	results := RunTasks(context.Background(), 1, 50*time.Millisecond, nil, tasks)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWorkerPoolSubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, 2, 0, nil)
	pool.Shutdown()

	err := pool.Submit(func(ctx context.Context) (interface{}, error) { return nil, nil })
	assert.Error(t, err)
}

func TestWorkerPoolResultsClosedAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, 2, 0, nil)
	require.NoError(t, pool.Submit(func(ctx context.Context) (interface{}, error) { return 42, nil }))

	result := <-pool.Results()
	require.NoError(t, result.Err)
	assert.Equal(t, 42, result.Value)

	pool.Shutdown()
	for range pool.Results() {
		// Drain until the pool closes the channel.
	}
}
