package scheduler

import (
	"context"
	"sync"
)

// Task is one unit of work. Tasks do not observe each other's failures.
type Task[T any] func(ctx context.Context) T

type indexedTask[T any] struct {
	index int
	task  Task[T]
}

// Run executes tasks on a fixed pool of numWorkers goroutines and returns
// only after every task has finished. results[i] is the value of tasks[i].
// A failing task never cancels the others.
func Run[T any](ctx context.Context, tasks []Task[T], numWorkers int) []T {
	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	numWorkers = max(1, min(numWorkers, len(tasks)))

	taskCh := make(chan indexedTask[T], len(tasks))
	for i, task := range tasks {
		taskCh <- indexedTask[T]{index: i, task: task}
	}
	close(taskCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processTasks(ctx, taskCh, results)
		}()
	}
	wg.Wait()
	return results
}

// each worker writes a distinct index, so results needs no lock
func processTasks[T any](ctx context.Context, taskCh <-chan indexedTask[T], results []T) {
	for it := range taskCh {
		results[it.index] = it.task(ctx)
	}
}
