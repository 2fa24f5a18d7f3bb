package indexer

import (
	"context"
	"sync"
)

// WorkerPool fans embedding requests out across a bounded set of workers.
// Batches are processed one at a time; the pool only bounds concurrency
// within a batch.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a pool with the given concurrency bound
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}

	return &WorkerPool{workers: workers}
}

// Task represents a unit of work for the worker pool
type Task struct {
	ID   string
	Func func(ctx context.Context) (interface{}, error)
}

// Result represents the result of a task execution
type Result struct {
	ID    string
	Data  interface{}
	Error error
}

// Execute runs all tasks and blocks until every one has completed or the
// context is cancelled. Results are unordered.
func (wp *WorkerPool) Execute(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return []Result{}
	}

	taskChan := make(chan Task, len(tasks))
	resultChan := make(chan Result, len(tasks))

	var wg sync.WaitGroup

	for range wp.workers {
		wg.Add(1)

		go wp.worker(ctx, &wg, taskChan, resultChan)
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(tasks))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}

// worker processes tasks from the task channel
func (wp *WorkerPool) worker(ctx context.Context, wg *sync.WaitGroup, taskChan <-chan Task, resultChan chan<- Result) {
	defer wg.Done()

	for task := range taskChan {
		select {
		case <-ctx.Done():
			resultChan <- Result{ID: task.ID, Error: ctx.Err()}
			continue
		default:
		}

		data, err := task.Func(ctx)
		resultChan <- Result{ID: task.ID, Data: data, Error: err}
	}
}
