package events

import (
	"context"
	"log/slog"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/metrics"
)

// Verify interface compliance
var _ driven.UserEvents = (*Bus)(nil)

// Bus is an in-process, buffered-channel event bus carrying domain events
// from the lifecycle service to the cache listener. Publish never blocks: an
// event that does not fit the buffer is dropped and counted. The cache
// tolerates that as bounded staleness; the next event or fallthrough read
// heals the entry.
type Bus struct {
	inbox   chan domain.UserEvent
	logger  *slog.Logger
	metrics *metrics.Metrics
	doneCh  chan struct{}
}

// NewBus creates a bus with the given buffer size. metrics may be nil.
func NewBus(buffer int, logger *slog.Logger, m *metrics.Metrics) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		inbox:   make(chan domain.UserEvent, buffer),
		logger:  logger,
		metrics: m,
		doneCh:  make(chan struct{}),
	}
}

// Publish enqueues an event without blocking the caller
func (b *Bus) Publish(ev domain.UserEvent) {
	select {
	case b.inbox <- ev:
	default:
		b.metrics.IncEventsDropped()
		b.logger.Warn("event bus full, dropping event", "event", string(ev.Type))
	}
}

// Run delivers events to the handler until the context is cancelled. The
// remaining buffered events are drained before returning.
func (b *Bus) Run(ctx context.Context, handler func(context.Context, domain.UserEvent)) {
	defer close(b.doneCh)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-b.inbox:
					handler(context.Background(), ev)
				default:
					return
				}
			}
		case ev := <-b.inbox:
			handler(ctx, ev)
		}
	}
}

// Done is closed once Run has returned
func (b *Bus) Done() <-chan struct{} {
	return b.doneCh
}
