// Package memory provides the bounded in-process queue that feeds blog
// automation workers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

// Queue errors.
var (
	ErrClosed = blog.ErrQueueClosed
	ErrFull   = errors.New("queue full")
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch chan blog.QueueItem
	// mu guards closed and serializes sends against Close.
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan blog.QueueItem, capacity),
	}
}

// Enqueue pushes a job into the queue, blocking until there is room or the
// context ends.
func (q *Queue) Enqueue(ctx context.Context, job blog.QueueItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- job:
		return nil
	}
}

// TryEnqueue pushes a job without blocking and returns ErrFull when the
// buffer is exhausted.
func (q *Queue) TryEnqueue(job blog.QueueItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- job:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (blog.QueueItem, error) {
	select {
	case <-ctx.Done():
		return blog.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job, ok := <-q.ch:
		if !ok {
			return blog.QueueItem{}, ErrClosed
		}
		return job, nil
	}
}

// Len reports the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown. Buffered jobs can still
// be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
