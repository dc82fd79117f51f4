// Package publisher delivers created incidents to downstream consumers
// without holding up the request that created them.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sentinelvnc/sentinel/riskengine/internal/metrics"
	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 5 * time.Second
)

var ErrClosed = errors.New("publisher closed")

// Sink is one downstream consumer of incidents.
type Sink interface {
	Name() string
	Send(ctx context.Context, incident *models.Incident) error
}

// Config controls queue size and per-sink delivery timeout.
type Config struct {
	QueueSize   int
	SendTimeout time.Duration
}

// Publisher fans incidents out to its sinks from a single background
// worker. Each sink gets one attempt per incident; failures are logged and
// counted but never retried.
type Publisher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *models.Incident
	done   chan struct{}
}

// New starts a Publisher. With no sinks it still drains its queue.
func New(cfg Config, logger *slog.Logger, sinks ...Sink) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		sinks:   sinks,
		timeout: cfg.SendTimeout,
		logger:  logger.With(slog.String("component", "publisher")),
		queue:   make(chan *models.Incident, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues incident and returns immediately. It returns false when
// the queue is full or the publisher is closed; the incident itself is
// unaffected either way.
func (p *Publisher) Publish(incident *models.Incident) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.PublishDropped.Inc()
		p.logger.Error("incident not published, publisher closed",
			slog.String("incident_id", incident.IncidentID))
		return false
	}

	select {
	case p.queue <- incident:
		metrics.PublishQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		metrics.PublishDropped.Inc()
		p.logger.Error("incident not published, queue full",
			slog.String("incident_id", incident.IncidentID),
			slog.Int("queue_size", cap(p.queue)))
		return false
	}
}

// Close stops accepting incidents and waits for the queue to drain or ctx
// to expire.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publisher drain: %w", ctx.Err())
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for incident := range p.queue {
		metrics.PublishQueueDepth.Set(float64(len(p.queue)))
		for _, sink := range p.sinks {
			p.deliver(sink, incident)
		}
	}
}

func (p *Publisher) deliver(sink Sink, incident *models.Incident) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PublishTotal.WithLabelValues(sink.Name(), "panic").Inc()
			p.logger.Error("sink panicked",
				slog.String("sink", sink.Name()),
				slog.String("incident_id", incident.IncidentID),
				slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := sink.Send(ctx, incident)
	metrics.PublishDuration.WithLabelValues(sink.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PublishTotal.WithLabelValues(sink.Name(), "error").Inc()
		p.logger.Error("failed to publish incident",
			slog.String("sink", sink.Name()),
			slog.String("incident_id", incident.IncidentID),
			slog.String("error", err.Error()))
		return
	}
	metrics.PublishTotal.WithLabelValues(sink.Name(), "ok").Inc()
	p.logger.Info("published incident",
		slog.String("sink", sink.Name()),
		slog.String("incident_id", incident.IncidentID))
}
