package ports

import (
	"PushProbe/internal/core/domain"
	"context"
)

// PushGateway is the messaging backend as seen from the device.
// Every call blocks until the backend has acknowledged it.
type PushGateway interface {
	// Activate starts push activation. Completion is reported
	// asynchronously on the "push:activation" topic.
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error

	LocalDevice(ctx context.Context) (*domain.Device, error)
	ResetLocalDevice(ctx context.Context) error
	ActivationState(ctx context.Context) (domain.ActivationState, error)
	ResetActivationState(ctx context.Context) error

	// Realtime channel operations.
	Attach(ctx context.Context, channel string) error
	PublishRealtime(ctx context.Context, channel, name, data string) error

	// Push channel subscriptions.
	SubscribeDevice(ctx context.Context, channel string) error
	UnsubscribeDevice(ctx context.Context, channel string) error
	SubscribeClient(ctx context.Context, channel string) error
	UnsubscribeClient(ctx context.Context, channel string) error

	// Publishing. Delivery confirmation arrives on "push:message".
	PublishToChannel(ctx context.Context, channel string, msg domain.PushMessage) error
	PublishDirect(ctx context.Context, recipient domain.Recipient, msg domain.PushMessage) error
}

// MessageEvent is the payload of the "push:message" topic.
type MessageEvent struct {
	Kind domain.EventKind
	Data domain.Payload
}

// ActivationEvent is the payload of the "push:activation" topic.
type ActivationEvent struct {
	Kind domain.EventKind
	Err  error
}

// Bus topics shared by the gateway and the receivers.
const (
	TopicPushMessage    = "push:message"
	TopicPushActivation = "push:activation"
)
