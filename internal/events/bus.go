package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler processes a published event. Handlers run synchronously on the
// publisher's goroutine, so rotation-triggered work like cache clearing
// completes before the publishing operation returns. Handlers must be fast
// and must not publish back into the bus.
type Handler func(ctx context.Context, event Event)

// Publisher is the write side of the bus. Use cases depend on this interface
// so tests can substitute a recorder.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus is a synchronous in-process event bus. Subscribers are registered at
// startup; publishing fans out to every handler subscribed to the event type.
// A panicking handler is recovered and logged without affecting the
// publishing operation or other handlers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Handler
	logger      *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[Type][]Handler),
		logger:      logger,
	}
}

// Subscribe registers a handler for the given event types. With no types the
// handler receives every event type.
func (b *Bus) Subscribe(handler Handler, types ...Type) {
	if len(types) == 0 {
		types = AllTypes
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range types {
		b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	}
}

// Publish delivers the event to every subscribed handler, in subscription
// order, on the calling goroutine.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subscribers[event.Type]))
	copy(handlers, b.subscribers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, handler, event)
	}
}

func (b *Bus) dispatch(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Error("event handler panicked",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", string(event.Type)),
					slog.Any("panic", r),
				)
			}
		}
	}()

	handler(ctx, event)
}

// NopPublisher discards every event. Useful for CLI commands and tests that
// do not care about the event stream.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(ctx context.Context, event Event) {}
