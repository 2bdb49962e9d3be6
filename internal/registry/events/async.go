package events

import (
	"context"
	"log/slog"
	"time"

	"nameledger/internal/registry/metrics"
)

const (
	defaultBufferSize = 1024
	flushTimeout      = 5 * time.Second
)

// Sink is a slow, possibly remote destination drained by Worker.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// AsyncPublisher hands notifications to a buffered channel without blocking.
// When the buffer is full the notification is dropped and counted.
type AsyncPublisher struct {
	inbox   chan Event
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type AsyncOption func(*AsyncPublisher)

func WithBufferSize(n int) AsyncOption {
	return func(p *AsyncPublisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

func WithMetrics(m *metrics.Metrics) AsyncOption {
	return func(p *AsyncPublisher) {
		p.metrics = m
	}
}

func WithLogger(logger *slog.Logger) AsyncOption {
	return func(p *AsyncPublisher) {
		p.logger = logger
	}
}

func NewAsyncPublisher(opts ...AsyncOption) *AsyncPublisher {
	p := &AsyncPublisher{
		inbox:  make(chan Event, defaultBufferSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AsyncPublisher) Publish(ctx context.Context, e Event) error {
	select {
	case p.inbox <- e:
	default:
		p.metrics.IncrementEventsDropped()
		p.logger.WarnContext(ctx, "notification buffer full, dropping event",
			"event_id", e.ID,
			"event_type", string(e.Type),
		)
	}
	return nil
}

// Worker returns a worker draining this publisher into sink.
func (p *AsyncPublisher) Worker(sink Sink) *Worker {
	return &Worker{inbox: p.inbox, sink: sink, metrics: p.metrics, logger: p.logger}
}

// Worker consumes notifications from the async buffer and writes them to a
// sink. A sink error is logged and counted; the worker keeps going.
type Worker struct {
	inbox   <-chan Event
	sink    Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Run drains until ctx is done, then spends up to flushTimeout delivering
// whatever is already buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			w.flush(flushCtx)
			cancel()
			return ctx.Err()
		case e := <-w.inbox:
			w.write(ctx, e)
		}
	}
}

func (w *Worker) flush(ctx context.Context) {
	for ctx.Err() == nil {
		select {
		case e := <-w.inbox:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *Worker) write(ctx context.Context, e Event) {
	if err := w.sink.Write(ctx, e); err != nil {
		w.metrics.IncrementEventsPublished(w.sink.Name(), "error")
		w.logger.ErrorContext(ctx, "failed to deliver notification",
			"sink", w.sink.Name(),
			"event_id", e.ID,
			"event_type", string(e.Type),
			"error", err,
		)
		return
	}
	w.metrics.IncrementEventsPublished(w.sink.Name(), "ok")
}
