package pushloop

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrDeviceNotActivated is returned when an operation needs a registered device.
	ErrDeviceNotActivated = errors.New("device is not activated for push")
	// ErrUnknownRecipient is returned by direct publishes nobody can receive.
	ErrUnknownRecipient = errors.New("no registered device matches recipient")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("push gateway is closed")
)

// Gateway is an in-process stand-in for the messaging backend. It serves a
// single local device, persisted through the DeviceRepository, and delivers
// pushes to it asynchronously through a MessagingService.
type Gateway struct {
	devices   ports.DeviceRepository
	bus       ports.EventBus
	messaging *MessagingService
	clientID  string
	latency   time.Duration
	log       zerolog.Logger

	// deviceMu serialises read-modify-write cycles on the local device.
	deviceMu sync.Mutex

	mu         sync.Mutex
	closed     bool
	attached   map[string]bool
	deviceSubs map[string]map[uuid.UUID]bool
	clientSubs map[string]map[string]bool
	failNext   error

	stop    chan struct{}
	pending sync.WaitGroup
}

var _ ports.PushGateway = (*Gateway)(nil)

// NewGateway creates a loopback gateway for clientID.
func NewGateway(
	devices ports.DeviceRepository,
	bus ports.EventBus,
	clientID string,
	latency time.Duration,
	baseLogger *zerolog.Logger,
) *Gateway {
	return &Gateway{
		devices:    devices,
		bus:        bus,
		messaging:  NewMessagingService(bus, baseLogger),
		clientID:   clientID,
		latency:    latency,
		log:        baseLogger.With().Str("component", "push_gateway").Logger(),
		attached:   make(map[string]bool),
		deviceSubs: make(map[string]map[uuid.UUID]bool),
		clientSubs: make(map[string]map[string]bool),
		stop:       make(chan struct{}),
	}
}

// InjectActivationError makes the next activation report err.
func (g *Gateway) InjectActivationError(err error) {
	g.mu.Lock()
	g.failNext = err
	g.mu.Unlock()
}

// Close stops pending deliveries and waits for them to finish.
func (g *Gateway) Close() {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.stop)
	}
	g.mu.Unlock()
	g.pending.Wait()
	g.log.Info().Msg("Push gateway closed")
}

// async runs fn after the configured latency unless the gateway closes first.
func (g *Gateway) async(fn func(ctx context.Context)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}

	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		if g.latency > 0 {
			t := time.NewTimer(g.latency)
			defer t.Stop()
			select {
			case <-t.C:
			case <-g.stop:
				return
			}
		}
		fn(context.Background())
	}()
	return nil
}

// loadOrCreateDevice returns the stored device, creating an unregistered
// one on first use. deviceMu must be held.
func (g *Gateway) loadOrCreateDevice(ctx context.Context) (*domain.Device, error) {
	device, err := g.devices.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local device: %w", err)
	}
	if device != nil {
		return device, nil
	}

	device = &domain.Device{
		ID:              uuid.New(),
		ClientID:        g.clientID,
		ActivationState: domain.ActivationNotActivated,
	}
	if err := g.devices.Save(ctx, device); err != nil {
		return nil, fmt.Errorf("create local device: %w", err)
	}
	g.log.Info().Str("device_id", device.ID.String()).Msg("Created local device")
	return device, nil
}

// Activate registers the device. The outcome is published on
// ports.TopicPushActivation once the registration completes.
func (g *Gateway) Activate(ctx context.Context) error {
	g.deviceMu.Lock()
	device, err := g.loadOrCreateDevice(ctx)
	if err == nil && !device.IsActivated() {
		device.ActivationState = domain.ActivationWaitingForRegistration
		err = g.devices.Save(ctx, device)
	}
	g.deviceMu.Unlock()
	if err != nil {
		return err
	}

	g.log.Info().Str("device_id", device.ID.String()).Msg("Activation requested")
	return g.async(g.completeActivation)
}

func (g *Gateway) completeActivation(ctx context.Context) {
	g.mu.Lock()
	injected := g.failNext
	g.failNext = nil
	g.mu.Unlock()

	err := injected
	if err == nil {
		err = g.register(ctx)
	}
	if err != nil {
		g.log.Error().Err(err).Msg("Activation failed")
	} else {
		g.log.Info().Msg("Activation complete")
	}
	g.publishActivation(ctx, domain.KindPushActivated, err)
}

// register issues a registration token for the device.
func (g *Gateway) register(ctx context.Context) error {
	g.deviceMu.Lock()
	defer g.deviceMu.Unlock()

	device, err := g.loadOrCreateDevice(ctx)
	if err != nil {
		return err
	}
	if device.IsActivated() {
		return nil
	}
	token := uuid.NewString()
	device.RegistrationToken = &token
	device.ActivationState = domain.ActivationActivated
	return g.devices.Save(ctx, device)
}

// Deactivate removes the registration and every device subscription.
func (g *Gateway) Deactivate(ctx context.Context) error {
	g.log.Info().Msg("Deactivation requested")
	return g.async(func(ctx context.Context) {
		err := g.deregister(ctx)
		if err != nil {
			g.log.Error().Err(err).Msg("Deactivation failed")
		}
		g.publishActivation(ctx, domain.KindPushDeactivated, err)
	})
}

func (g *Gateway) deregister(ctx context.Context) error {
	g.deviceMu.Lock()
	defer g.deviceMu.Unlock()

	device, err := g.devices.Get(ctx)
	if err != nil {
		return fmt.Errorf("load local device: %w", err)
	}
	if device == nil {
		return nil
	}

	g.mu.Lock()
	for _, subs := range g.deviceSubs {
		delete(subs, device.ID)
	}
	g.mu.Unlock()

	device.RegistrationToken = nil
	device.ActivationState = domain.ActivationDeactivated
	return g.devices.Save(ctx, device)
}

func (g *Gateway) publishActivation(ctx context.Context, kind domain.EventKind, err error) {
	event := ports.ActivationEvent{Kind: kind, Err: err}
	if pubErr := g.bus.Publish(ctx, ports.TopicPushActivation, event); pubErr != nil {
		g.log.Error().Err(pubErr).Str("kind", string(kind)).Msg("Failed to publish activation event")
	}
}

// LocalDevice returns the local device, creating it if needed.
func (g *Gateway) LocalDevice(ctx context.Context) (*domain.Device, error) {
	g.deviceMu.Lock()
	defer g.deviceMu.Unlock()
	return g.loadOrCreateDevice(ctx)
}

// ResetLocalDevice deletes the persisted device.
func (g *Gateway) ResetLocalDevice(ctx context.Context) error {
	g.deviceMu.Lock()
	defer g.deviceMu.Unlock()
	g.log.Info().Msg("Resetting local device")
	return g.devices.Delete(ctx)
}

// ActivationState reports the device's activation state.
func (g *Gateway) ActivationState(ctx context.Context) (domain.ActivationState, error) {
	device, err := g.devices.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load local device: %w", err)
	}
	if device == nil {
		return domain.ActivationNotActivated, nil
	}
	return device.ActivationState, nil
}

// ResetActivationState forgets the registration but keeps the device identity.
func (g *Gateway) ResetActivationState(ctx context.Context) error {
	g.deviceMu.Lock()
	defer g.deviceMu.Unlock()

	device, err := g.devices.Get(ctx)
	if err != nil {
		return fmt.Errorf("load local device: %w", err)
	}
	if device == nil {
		return nil
	}
	device.RegistrationToken = nil
	device.ActivationState = domain.ActivationNotActivated
	g.log.Info().Msg("Resetting activation state")
	return g.devices.Save(ctx, device)
}

// Attach attaches to a realtime channel.
func (g *Gateway) Attach(ctx context.Context, channel string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	g.attached[channel] = true
	g.log.Info().Str("channel", channel).Msg("Channel attached")
	return nil
}

// PublishRealtime publishes a plain realtime message.
// Attached channels echo it back to the local subscriber.
func (g *Gateway) PublishRealtime(ctx context.Context, channel, name, data string) error {
	g.mu.Lock()
	attached := g.attached[channel]
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return ErrClosed
	}

	g.log.Info().Str("channel", channel).Str("name", name).Msg("Realtime message published")
	if attached {
		return g.async(func(ctx context.Context) {
			g.log.Info().Str("channel", channel).Str("name", name).Str("data", data).Msg("Received realtime message")
		})
	}
	return nil
}

// activeDevice returns the device if it can receive pushes.
func (g *Gateway) activeDevice(ctx context.Context) (*domain.Device, error) {
	device, err := g.devices.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local device: %w", err)
	}
	if !device.IsActivated() {
		return nil, ErrDeviceNotActivated
	}
	return device, nil
}

// SubscribeDevice subscribes the local device to push on channel.
func (g *Gateway) SubscribeDevice(ctx context.Context, channel string) error {
	device, err := g.activeDevice(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deviceSubs[channel] == nil {
		g.deviceSubs[channel] = make(map[uuid.UUID]bool)
	}
	g.deviceSubs[channel][device.ID] = true
	g.log.Info().Str("channel", channel).Str("device_id", device.ID.String()).Msg("Device subscribed")
	return nil
}

// UnsubscribeDevice removes the local device's subscription.
func (g *Gateway) UnsubscribeDevice(ctx context.Context, channel string) error {
	device, err := g.devices.Get(ctx)
	if err != nil {
		return fmt.Errorf("load local device: %w", err)
	}
	if device == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.deviceSubs[channel], device.ID)
	g.log.Info().Str("channel", channel).Msg("Device unsubscribed")
	return nil
}

// SubscribeClient subscribes every device of the configured client id.
func (g *Gateway) SubscribeClient(ctx context.Context, channel string) error {
	if g.clientID == "" {
		return errors.New("no client id configured")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clientSubs[channel] == nil {
		g.clientSubs[channel] = make(map[string]bool)
	}
	g.clientSubs[channel][g.clientID] = true
	g.log.Info().Str("channel", channel).Str("client_id", g.clientID).Msg("Client subscribed")
	return nil
}

// UnsubscribeClient removes the client id subscription.
func (g *Gateway) UnsubscribeClient(ctx context.Context, channel string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clientSubs[channel], g.clientID)
	g.log.Info().Str("channel", channel).Msg("Client unsubscribed")
	return nil
}

// PublishToChannel fans msg out to the channel's push subscribers.
// A channel with no subscribers accepts the message and delivers nothing.
func (g *Gateway) PublishToChannel(ctx context.Context, channel string, msg domain.PushMessage) error {
	device, err := g.devices.Get(ctx)
	if err != nil {
		return fmt.Errorf("load local device: %w", err)
	}

	g.mu.Lock()
	subscribed := device != nil &&
		(g.deviceSubs[channel][device.ID] || g.clientSubs[channel][device.ClientID])
	g.mu.Unlock()

	g.log.Info().Str("channel", channel).Bool("local_subscriber", subscribed).Msg("Push published to channel")
	if !subscribed || !device.IsActivated() {
		return nil
	}
	return g.deliver(msg)
}

// PublishDirect pushes msg to a device id or client id.
func (g *Gateway) PublishDirect(ctx context.Context, recipient domain.Recipient, msg domain.PushMessage) error {
	if err := recipient.Validate(); err != nil {
		return err
	}
	device, err := g.devices.Get(ctx)
	if err != nil {
		return fmt.Errorf("load local device: %w", err)
	}
	if device == nil ||
		(recipient.DeviceID != uuid.Nil && recipient.DeviceID != device.ID) ||
		(recipient.ClientID != "" && recipient.ClientID != device.ClientID) {
		return ErrUnknownRecipient
	}
	if !device.IsActivated() {
		return ErrDeviceNotActivated
	}

	g.log.Info().
		Str("device_id", recipient.DeviceID.String()).
		Str("client_id", recipient.ClientID).
		Msg("Push published direct")
	return g.deliver(msg)
}

func (g *Gateway) deliver(msg domain.PushMessage) error {
	msg.Data = msg.Data.Clone()
	return g.async(func(ctx context.Context) {
		if err := g.messaging.OnMessageReceived(ctx, msg); err != nil {
			g.log.Error().Err(err).Msg("Push delivery failed")
		}
	})
}
