// Package publisher delivers audit events to a sink while preserving send order.
//
// In the default synchronous mode Emit returns only after the sink accepted the
// event. WithAsyncBuffer switches to a single background worker draining a FIFO
// buffer, so events from one caller still reach the sink in the order emitted.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "kbv/pkg/platform/audit"
)

// ErrBufferFull is returned by Emit in async mode when the buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// Metrics counts publisher outcomes.
type Metrics struct {
	Emitted prometheus.Counter
	Failed  prometheus.Counter
	Dropped prometheus.Counter
}

// NewMetrics registers publisher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_audit_events_emitted_total",
			Help: "Total number of audit events accepted by the sink",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_audit_events_failed_total",
			Help: "Total number of audit events the sink rejected",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the async buffer was full",
		}),
	}
}

func (m *Metrics) incEmitted() {
	if m != nil {
		m.Emitted.Inc()
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

// Publisher sends audit events to a sink.
type Publisher struct {
	sink    audit.Sink
	logger  *slog.Logger
	metrics *Metrics

	bufferSize int
	queue      chan queued
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for async delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithAsyncBuffer enables asynchronous delivery through a FIFO buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// NewPublisher creates a publisher over sink.
func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.queue = make(chan queued, p.bufferSize)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit delivers event. In sync mode the sink error is returned to the caller.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.queue == nil {
		return p.send(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	// detach from request cancellation; the worker outlives the request
	select {
	case p.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		p.metrics.incDropped()
		return ErrBufferFull
	}
}

func (p *Publisher) send(ctx context.Context, event audit.Event) error {
	if err := p.sink.Send(ctx, event); err != nil {
		p.metrics.incFailed()
		return err
	}
	p.metrics.incEmitted()
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for q := range p.queue {
		if err := p.send(q.ctx, q.event); err != nil && p.logger != nil {
			p.logger.WarnContext(q.ctx, "audit event delivery failed",
				"event_name", q.event.EventName,
				"session_id", q.event.User.SessionID,
				"error", err,
			)
		}
	}
}

// Close stops accepting events and drains the async buffer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.queue != nil {
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
