// Package messaging implements the in-memory event bus that carries content
// mutation events to the cache invalidator. Delivery is synchronous and
// in-process: cross-node propagation is explicitly out of scope, the TTL on
// cache entries bounds staleness for any other node.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("messaging: event bus is closed")

// InMemoryEventBus is a synchronous in-memory implementation of
// shared.EventBus. Handlers run sequentially on the publisher's goroutine;
// a handler error is logged and does not stop delivery to later handlers,
// so a failed eviction never fails the mutation that triggered it silently
// swallowing the rest.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]shared.EventHandler
	logger   *slog.Logger
	closed   bool
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(logger *slog.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Publish delivers the event to every handler subscribed to its type.
// Handler errors are logged with the event's correlation ID and collected;
// the first error is returned after all handlers have run.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := make([]shared.EventHandler, len(b.handlers[event.EventType()]))
	copy(handlers, b.handlers[event.EventType()])
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Error("event handler failed",
				slog.String("event_type", string(event.EventType())),
				slog.String("aggregate_id", event.AggregateID()),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Close stops the bus. Subsequent publishes and subscribes fail.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
