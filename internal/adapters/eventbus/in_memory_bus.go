package eventbus

import (
	"PushProbe/internal/core/ports"
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// InMemoryBus implements ports.EventBus with one goroutine per delivery.
type InMemoryBus struct {
	log         zerolog.Logger
	subscribers map[string][]ports.EventHandler
	mu          sync.RWMutex
	inflight    sync.WaitGroup
}

var _ ports.EventBus = (*InMemoryBus)(nil)

// NewInMemoryBus creates a new, empty event bus
func NewInMemoryBus(baseLogger *zerolog.Logger) *InMemoryBus {
	return &InMemoryBus{
		log:         baseLogger.With().Str("component", "in_memory_bus").Logger(),
		subscribers: make(map[string][]ports.EventHandler),
	}
}

// Publish sends an event to all subscribers of a topic
func (b *InMemoryBus) Publish(ctx context.Context, topic string, data any) error {
	b.mu.RLock()
	handlers := append([]ports.EventHandler(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Warn().Str("topic", topic).Msg("Published event with no subscribers")
		return nil
	}

	event := ports.Event{Topic: topic, Data: data}

	b.inflight.Add(len(handlers))
	for _, handler := range handlers {
		go func(h ports.EventHandler) {
			defer b.inflight.Done()
			// Handlers outlive the publisher's context.
			if err := h(context.Background(), event); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Msg("Event handler failed")
			}
		}(handler)
	}

	b.log.Debug().Str("topic", topic).Int("handlers", len(handlers)).Msg("Event published")
	return nil
}

// Subscribe registers a handler for a specific topic
func (b *InMemoryBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.log.Info().Str("topic", topic).Msg("New handler subscribed to topic")
}

// Drain blocks until every handler started so far has returned.
func (b *InMemoryBus) Drain() {
	b.inflight.Wait()
}
