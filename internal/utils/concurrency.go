package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Task represents a unit of work executed by a worker. The context passed in
// carries the pool's per-task timeout and is cancelled on pool shutdown.
type Task func(ctx context.Context) (interface{}, error)

// TaskResult pairs a task's value with its error. Every submitted task
// produces exactly one TaskResult, so callers can join a stage by counting.
type TaskResult struct {
	Value interface{}
	Err   error
}

// ErrTaskPanic wraps a panic recovered inside a worker. It marks the one
// failure class that callers must surface instead of folding into a
// best-effort result.
var ErrTaskPanic = errors.New("task panicked")

// WorkerPool manages a bounded pool of goroutines executing Tasks.
// Pools are scoped to one logical stage: stand one up, submit, drain the
// results, shut it down.
type WorkerPool struct {
	numWorkers  int
	taskTimeout time.Duration
	jobQueue    chan Task
	results     chan TaskResult
	ctx         context.Context
	cancel      context.CancelFunc
	shutdownWg  sync.WaitGroup
	mu          sync.Mutex
	isClosed    bool
	logger      Logger
}

// NewWorkerPool creates and starts a new WorkerPool. A taskTimeout of zero
// disables per-task deadlines.
func NewWorkerPool(parentCtx context.Context, numWorkers int, queueSize int, taskTimeout time.Duration, logger Logger) *WorkerPool {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(parentCtx)
	wp := &WorkerPool{
		numWorkers:  numWorkers,
		taskTimeout: taskTimeout,
		jobQueue:    make(chan Task, queueSize),
		results:     make(chan TaskResult, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}

	wp.start()
	return wp
}

func (wp *WorkerPool) start() {
	wp.shutdownWg.Add(wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		go wp.worker()
	}

	// Close the results channel only after every worker has exited.
	go func() {
		wp.shutdownWg.Wait()
		close(wp.results)
	}()
}

// worker is the loop executed by each goroutine in the pool.
func (wp *WorkerPool) worker() {
	defer wp.shutdownWg.Done()
	for {
		select {
		case task, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			result := wp.runTask(task)
			select {
			case wp.results <- result:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

// runTask executes one task under the pool's per-task deadline, converting a
// panic into an ErrTaskPanic result instead of bringing the worker down.
func (wp *WorkerPool) runTask(task Task) (result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Errorf("Worker recovered from task panic: %v", r)
			result = TaskResult{Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
		}
	}()

	taskCtx := wp.ctx
	if wp.taskTimeout > 0 {
		var cancelTask context.CancelFunc
		taskCtx, cancelTask = context.WithTimeout(wp.ctx, wp.taskTimeout)
		defer cancelTask()
	}

	value, err := task(taskCtx)
	return TaskResult{Value: value, Err: err}
}

// Submit adds a task to the job queue.
// Returns an error if the pool is closed or its context is cancelled.
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.Lock()
	if wp.isClosed {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool is closed, cannot submit new tasks")
	}
	wp.mu.Unlock()

	select {
	case wp.jobQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel task results are delivered on.
func (wp *WorkerPool) Results() <-chan TaskResult {
	return wp.results
}

// Shutdown stops the pool. Workers finish the task they are on, remaining
// queued tasks are abandoned, and the results channel is closed once all
// workers have exited.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.isClosed {
		wp.mu.Unlock()
		return
	}
	wp.isClosed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.cancel()
}

// RunTasks stands up a pool for one stage, runs every task, joins, and tears
// the pool down. It returns one TaskResult per task in completion order, not
// submission order; callers correlate results to inputs by a key carried in
// the result value. Given no tasks it returns nil without spawning a single
// worker.
func RunTasks(ctx context.Context, numWorkers int, taskTimeout time.Duration, logger Logger, tasks []Task) []TaskResult {
	if len(tasks) == 0 {
		return nil
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	pool := NewWorkerPool(ctx, numWorkers, len(tasks), taskTimeout, logger)
	defer pool.Shutdown()

	results := make([]TaskResult, 0, len(tasks))
	submitted := 0
	for _, task := range tasks {
		if err := pool.Submit(task); err != nil {
			results = append(results, TaskResult{Err: err})
			continue
		}
		submitted++
	}

	collected := 0
	for collected < submitted {
		select {
		case result := <-pool.Results():
			results = append(results, result)
			collected++
		case <-ctx.Done():
			// Tasks that never started produce no result. Account for
			// them so the join still returns one result per task.
			for ; collected < submitted; collected++ {
				results = append(results, TaskResult{Err: ctx.Err()})
			}
		}
	}

	return results
}
