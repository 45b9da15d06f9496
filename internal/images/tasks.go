package images

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Result is what a finished task hands back.
type Result[T any] struct {
	RequestID string
	Key       string
	Value     T
	Err       error
}

type task struct {
	id     string
	cancel context.CancelFunc
}

// Tasks runs background work keyed by a caller-chosen name. Starting a task
// under a key cancels the previous one, and a result from a superseded or
// cancelled task is dropped even if it already finished.
type Tasks[T any] struct {
	mu      sync.Mutex
	current map[string]task
	wg      sync.WaitGroup
}

func NewTasks[T any]() *Tasks[T] {
	return &Tasks[T]{current: make(map[string]task)}
}

// Start runs fn in a goroutine and returns its request id. done is called
// once with the result, only if the task is still current when fn returns.
func (t *Tasks[T]) Start(parent context.Context, key string, fn func(ctx context.Context) (T, error), done func(Result[T])) string {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()

	t.mu.Lock()
	if prev, ok := t.current[key]; ok {
		prev.cancel()
		slog.Debug("Task superseded", "key", key, "request_id", prev.id)
	}
	t.current[key] = task{id: id, cancel: cancel}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()

		value, err := fn(ctx)

		t.mu.Lock()
		cur, ok := t.current[key]
		stillCurrent := ok && cur.id == id
		if stillCurrent {
			delete(t.current, key)
		}
		t.mu.Unlock()

		if !stillCurrent {
			slog.Debug("Dropping stale task result", "key", key, "request_id", id)
			return
		}
		if done != nil {
			done(Result[T]{RequestID: id, Key: key, Value: value, Err: err})
		}
	}()
	return id
}

// Cancel stops the task under key, if any. Its result will be dropped.
func (t *Tasks[T]) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.current[key]
	if !ok {
		return false
	}
	cur.cancel()
	delete(t.current, key)
	return true
}

// Current returns the request id running under key.
func (t *Tasks[T]) Current(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.current[key]
	return cur.id, ok
}

// Wait blocks until every started goroutine has returned.
func (t *Tasks[T]) Wait() {
	t.wg.Wait()
}
