// Package queue is the bounded inbox in front of the playback loop.
//
// Producers never block: a full or closed queue refuses the message and the
// caller decides what to do with it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/kiosk/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 256
)

// Drop reasons reported to metrics.
const (
	dropClosed    = "closed"
	dropFull      = "full"
	dropCancelled = "context_cancelled"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds a message. It returns false if the message was refused.
	Enqueue(ctx context.Context, msg T) bool

	// Dequeue returns the receive side. It is closed once the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued messages.
	Len(ctx context.Context) int

	// Close stops accepting messages. Already queued ones stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

type config struct {
	capacity int
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	messages chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		messages: make(chan T, cfg.capacity),
		capacity: cfg.capacity,
	}
	metrics.UpdateInbox(0, q.capacity)
	return q
}

// Enqueue adds a message without blocking.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, msg T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordInboxDrop(dropClosed)
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordInboxDrop(dropCancelled)
		return false
	}

	select {
	case q.messages <- msg:
		metrics.UpdateInbox(len(q.messages), q.capacity)
		return true
	default:
		metrics.RecordInboxDrop(dropFull)
		metrics.RecordError("queue", dropFull)
		return false
	}
}

// Dequeue returns the receive side of the queue. The context is unused: the
// channel lives until Close so queued messages can always be drained.
func (q *InMemoryQueue[T]) Dequeue(_ context.Context) <-chan T {
	return q.messages
}

// Len returns the current number of queued messages.
func (q *InMemoryQueue[T]) Len(_ context.Context) int {
	size := len(q.messages)
	metrics.UpdateInbox(size, q.capacity)
	return size
}

// Cap returns the configured capacity.
func (q *InMemoryQueue[T]) Cap() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
