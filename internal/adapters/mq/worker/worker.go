// Package worker runs the single consumer that drains the inbox. Exactly one
// worker reads a queue, so handlers see messages one at a time and in order.
package worker

import (
	"context"
	"time"

	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

// Queue defines how workers receive messages.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Handler processes one message. Returned errors are logged and counted;
// they never stop the loop.
type Handler[T any] interface {
	Handle(ctx context.Context, msg T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, msg T) error

// Handle calls f.
func (f HandlerFunc[T]) Handle(ctx context.Context, msg T) error { return f(ctx, msg) }

// Worker processes messages until its queue closes.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Done is closed when Run returns.
	Done() <-chan struct{}
}

type settings struct {
	name   string
	logger logger.Logger
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker[T any] struct {
	queue   Queue[T]
	handler Handler[T]
	name    string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](queue Queue[T], handler Handler[T], opts ...Option) *InMemoryWorker[T] {
	s := settings{name: "worker"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}

	return &InMemoryWorker[T]{
		queue:   queue,
		handler: handler,
		name:    s.name,
		done:    make(chan struct{}),
		logger:  s.logger.Named(s.name),
	}
}

// Run drains the queue. When the queue is closed every message already in
// it is still handled before Run returns.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			w.process(ctx, msg)
		}
	}
}

// Done is closed when Run has returned.
func (w *InMemoryWorker[T]) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker[T]) process(ctx context.Context, msg T) {
	start := time.Now()
	err := w.handler.Handle(ctx, msg)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordError(w.name, "handler")
		w.logger.Debug(ctx, "message rejected",
			logger.Error(err),
			logger.Duration("elapsed", elapsed),
		)
	}
}
