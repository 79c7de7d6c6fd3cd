package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Dispatcher runs one worker per key. Items for the same key are handled one
// at a time in arrival order; different keys proceed independently. A worker
// exits once its queue is empty.
type Dispatcher[T any] struct {
	ctx    context.Context
	handle func(ctx context.Context, item T)
	logger *slog.Logger

	mu     sync.Mutex
	queues map[int64][]T
	wg     sync.WaitGroup
}

func New[T any](ctx context.Context, handle func(ctx context.Context, item T), logger *slog.Logger) *Dispatcher[T] {
	return &Dispatcher[T]{
		ctx:    ctx,
		handle: handle,
		logger: logger,
		queues: make(map[int64][]T),
	}
}

// Dispatch enqueues item for key and starts a worker if none is running.
func (d *Dispatcher[T]) Dispatch(key int64, item T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, running := d.queues[key]
	d.queues[key] = append(q, item)
	if !running {
		d.wg.Add(1)
		go d.run(key)
	}
}

// Active reports how many keys currently have a worker.
func (d *Dispatcher[T]) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Wait blocks until every worker has drained its queue.
func (d *Dispatcher[T]) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher[T]) run(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		item := q[0]
		var zero T
		q[0] = zero
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.safeHandle(key, item)
	}
}

func (d *Dispatcher[T]) safeHandle(key int64, item T) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("handler panicked", "key", key, "panic", fmt.Sprint(rec))
		}
	}()
	d.handle(d.ctx, item)
}
