package supervisor

import (
	"log/slog"
	"sync"
)

// task is one in-flight async operation, launched fire-and-forget so its
// caller never blocks on it.
type task struct {
	done chan struct{}
	err  error
}

// taskQueue tracks async tasks (currently: deferred stream deletions) so the
// main loop can periodically reap finished ones and surface their errors,
// without ever blocking a caller on the task itself. Grounded on
// original_source/src/ipcaster/FuturesCollector.hpp.
type taskQueue struct {
	mu    sync.Mutex
	tasks []*task
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

// push runs fn on its own goroutine and tracks it for later collection.
func (q *taskQueue) push(fn func() error) {
	t := &task{done: make(chan struct{})}

	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()

	go func() {
		defer close(t.done)
		t.err = fn()
	}()
}

// collect removes every finished task, logging any error it returned.
func (q *taskQueue) collect() {
	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := q.tasks[:0]
	for _, t := range q.tasks {
		select {
		case <-t.done:
			if t.err != nil {
				slog.Error("supervisor: async task failed", "err", t.err)
			}
		default:
			remaining = append(remaining, t)
		}
	}
	q.tasks = remaining
}
