package ports

import "context"

// Event is a generic wrapper for any event payload
type Event struct {
	Topic string
	Data  any
}

// EventHandler is a function that can handle a specific event
type EventHandler func(ctx context.Context, event Event) error

// EventBus is the in-process pub/sub that carries push callbacks
// from the gateway to the receivers.
type EventBus interface {
	// Publish hands the event to every subscriber of topic. Handlers
	// run on their own goroutines, so Publish never blocks on them.
	Publish(ctx context.Context, topic string, data any) error

	// Subscribe registers a handler for a specific topic
	Subscribe(topic string, handler EventHandler)
}
