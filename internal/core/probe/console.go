package probe

import (
	"PushProbe/internal/core/correlation"
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

// Message contents used by every publish action.
const (
	RealtimeMessageName = "testMessageName"
	RealtimeMessageData = "testMessageData"
	NotificationTitle   = "testNotification"
	DirectBody          = "Hello from push direct"
	PublishBody         = "Hello from push publish"
	DirectTestValue     = "testValueDirect"
	PublishTestValue    = "testValuePublish"
	testKeyField        = "testKey"
)

// ErrConsoleClosed is returned for work requested after Shutdown began.
var ErrConsoleClosed = errors.New("push console is shut down")

// Options tune the console's waits and delays.
type Options struct {
	WaitTimeout     time.Duration
	BackgroundDelay time.Duration
}

// Console exposes every manual push action plus the scripted test run.
// Manual actions operate on the current run id, which each call to
// NewRun replaces.
type Console struct {
	gateway ports.PushGateway
	waiter  ports.EventWaiter
	runs    ports.TestRunRepository
	opts    Options
	log     zerolog.Logger

	mu               sync.Mutex
	runID            string
	subscriptionType domain.SubscriptionType
	closed           bool

	runMu      sync.Mutex
	background sync.WaitGroup
}

// NewConsole wires a console over the gateway and the waiter.
func NewConsole(
	gateway ports.PushGateway,
	waiter ports.EventWaiter,
	runs ports.TestRunRepository,
	opts Options,
	baseLogger *zerolog.Logger,
) *Console {
	c := &Console{
		gateway:          gateway,
		waiter:           waiter,
		runs:             runs,
		opts:             opts,
		log:              baseLogger.With().Str("component", "console").Logger(),
		subscriptionType: domain.SubscriptionNone,
	}
	c.NewRun()
	return c
}

// NewRun generates a fresh run id and makes it current. Events still held
// for the replaced run are forgotten.
func (c *Console) NewRun() string {
	runID := uuid.NewString()
	c.mu.Lock()
	previous := c.runID
	c.runID = runID
	c.mu.Unlock()

	if previous != "" {
		correlation.ForgetRun(c.waiter, previous)
	}
	return runID
}

// RunID returns the current run id.
func (c *Console) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// ChannelName returns the push channel of the current run.
func (c *Console) ChannelName() string {
	return domain.ChannelName(c.RunID())
}

// SubscriptionType reports how the device is subscribed on the current channel.
func (c *Console) SubscriptionType() domain.SubscriptionType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptionType
}

func (c *Console) setSubscriptionType(t domain.SubscriptionType) {
	c.mu.Lock()
	c.subscriptionType = t
	c.mu.Unlock()
}

// await forgets any stale record for the key, runs action and waits for
// the matching event.
func (c *Console) await(
	ctx context.Context,
	kind domain.EventKind,
	runID string,
	action func(ctx context.Context) error,
) (domain.Payload, error) {
	c.waiter.Forget(kind, runID)
	if err := action(ctx); err != nil {
		return nil, err
	}
	c.log.Info().Str("kind", string(kind)).Str("run_id", runID).Msg("Waiting for event")
	payload, err := c.waiter.WaitFor(ctx, kind, runID, c.opts.WaitTimeout)
	if err != nil {
		return payload, err
	}
	c.log.Info().Str("kind", string(kind)).Str("run_id", runID).Msg("Event received")
	return payload, nil
}

// ActivatePush activates the device and waits for the backend to confirm.
func (c *Console) ActivatePush(ctx context.Context) error {
	c.log.Info().Msg("Activating push")
	_, err := c.await(ctx, domain.KindPushActivated, domain.ActivationRunID, c.gateway.Activate)
	return err
}

// DeactivatePush deactivates the device and waits for the backend to confirm.
func (c *Console) DeactivatePush(ctx context.Context) error {
	c.log.Info().Msg("Deactivating push")
	_, err := c.await(ctx, domain.KindPushDeactivated, domain.ActivationRunID, c.gateway.Deactivate)
	return err
}

// RealtimeSubscribe attaches to the current channel.
func (c *Console) RealtimeSubscribe(ctx context.Context) error {
	return c.realtimeSubscribe(ctx, c.ChannelName())
}

func (c *Console) realtimeSubscribe(ctx context.Context, channel string) error {
	if err := c.gateway.Attach(ctx, channel); err != nil {
		return fmt.Errorf("attach %s: %w", channel, err)
	}
	return nil
}

// RealtimePublish publishes a plain realtime message on the current channel.
func (c *Console) RealtimePublish(ctx context.Context) error {
	channel := c.ChannelName()
	if err := c.gateway.PublishRealtime(ctx, channel, RealtimeMessageName, RealtimeMessageData); err != nil {
		return fmt.Errorf("realtime publish to %s: %w", channel, err)
	}
	return nil
}

// PushSubscribe subscribes the device on the current channel,
// replacing a client id subscription.
func (c *Console) PushSubscribe(ctx context.Context) error {
	return c.pushSubscribe(ctx, c.ChannelName())
}

func (c *Console) pushSubscribe(ctx context.Context, channel string) error {
	if c.SubscriptionType() == domain.SubscriptionClientID {
		c.log.Info().Msg("Unsubscribing the client id subscription first")
		if err := c.pushUnsubscribeClient(ctx, channel); err != nil {
			return err
		}
	}
	if err := c.gateway.SubscribeDevice(ctx, channel); err != nil {
		return fmt.Errorf("push subscribe %s: %w", channel, err)
	}
	c.setSubscriptionType(domain.SubscriptionDevice)
	return nil
}

// PushUnsubscribe drops the device subscription on the current channel.
func (c *Console) PushUnsubscribe(ctx context.Context) error {
	return c.pushUnsubscribe(ctx, c.ChannelName())
}

func (c *Console) pushUnsubscribe(ctx context.Context, channel string) error {
	if err := c.gateway.UnsubscribeDevice(ctx, channel); err != nil {
		return fmt.Errorf("push unsubscribe %s: %w", channel, err)
	}
	c.mu.Lock()
	if c.subscriptionType == domain.SubscriptionDevice {
		c.subscriptionType = domain.SubscriptionNone
	}
	c.mu.Unlock()
	return nil
}

// PushSubscribeClient subscribes the client id on the current channel,
// replacing a device subscription.
func (c *Console) PushSubscribeClient(ctx context.Context) error {
	channel := c.ChannelName()
	if c.SubscriptionType() == domain.SubscriptionDevice {
		c.log.Info().Msg("Unsubscribing the device subscription first")
		if err := c.pushUnsubscribe(ctx, channel); err != nil {
			return err
		}
	}
	if err := c.gateway.SubscribeClient(ctx, channel); err != nil {
		return fmt.Errorf("push subscribe client %s: %w", channel, err)
	}
	c.setSubscriptionType(domain.SubscriptionClientID)
	return nil
}

// PushUnsubscribeClient drops the client id subscription on the current channel.
func (c *Console) PushUnsubscribeClient(ctx context.Context) error {
	return c.pushUnsubscribeClient(ctx, c.ChannelName())
}

func (c *Console) pushUnsubscribeClient(ctx context.Context, channel string) error {
	if err := c.gateway.UnsubscribeClient(ctx, channel); err != nil {
		return fmt.Errorf("push unsubscribe client %s: %w", channel, err)
	}
	c.mu.Lock()
	if c.subscriptionType == domain.SubscriptionClientID {
		c.subscriptionType = domain.SubscriptionNone
	}
	c.mu.Unlock()
	return nil
}

func dataPush(value, runID string) domain.PushMessage {
	return domain.PushMessage{Data: domain.Payload{testKeyField: value, domain.RunIDField: runID}}
}

func notificationPush(body, runID string) domain.PushMessage {
	return domain.PushMessage{
		Data:         domain.Payload{domain.RunIDField: runID},
		Notification: &domain.Notification{Title: NotificationTitle, Body: body},
	}
}

// PushPublishData publishes a data push on the current run's channel.
func (c *Console) PushPublishData(ctx context.Context) error {
	return c.pushPublishData(ctx, c.RunID())
}

func (c *Console) pushPublishData(ctx context.Context, runID string) error {
	channel := domain.ChannelName(runID)
	if err := c.gateway.PublishToChannel(ctx, channel, dataPush(PublishTestValue, runID)); err != nil {
		return fmt.Errorf("push publish data to %s: %w", channel, err)
	}
	return nil
}

// PushPublishNotification publishes a notification push on the current run's channel.
func (c *Console) PushPublishNotification(ctx context.Context) error {
	return c.pushPublishNotification(ctx, c.RunID())
}

func (c *Console) pushPublishNotification(ctx context.Context, runID string) error {
	channel := domain.ChannelName(runID)
	if err := c.gateway.PublishToChannel(ctx, channel, notificationPush(PublishBody, runID)); err != nil {
		return fmt.Errorf("push publish notification to %s: %w", channel, err)
	}
	return nil
}

// PushPublishNotificationBackground schedules PushPublishNotification
// after the background delay and returns at once.
func (c *Console) PushPublishNotificationBackground(ctx context.Context) error {
	runID := c.RunID()
	return c.inBackground(ctx, "push_publish_notification", func(ctx context.Context) error {
		return c.pushPublishNotification(ctx, runID)
	})
}

// PushDirectData pushes data straight to the local device id.
func (c *Console) PushDirectData(ctx context.Context) error {
	return c.pushDirectData(ctx, c.RunID())
}

func (c *Console) pushDirectData(ctx context.Context, runID string) error {
	device, err := c.gateway.LocalDevice(ctx)
	if err != nil {
		return err
	}
	recipient := domain.Recipient{DeviceID: device.ID}
	if err := c.gateway.PublishDirect(ctx, recipient, dataPush(DirectTestValue, runID)); err != nil {
		return fmt.Errorf("push direct data: %w", err)
	}
	return nil
}

// PushDirectNotification pushes a notification straight to the local device id.
func (c *Console) PushDirectNotification(ctx context.Context) error {
	return c.pushDirectNotification(ctx, c.RunID())
}

func (c *Console) pushDirectNotification(ctx context.Context, runID string) error {
	device, err := c.gateway.LocalDevice(ctx)
	if err != nil {
		return err
	}
	recipient := domain.Recipient{DeviceID: device.ID}
	if err := c.gateway.PublishDirect(ctx, recipient, notificationPush(DirectBody, runID)); err != nil {
		return fmt.Errorf("push direct notification: %w", err)
	}
	return nil
}

// PushDirectNotificationBackground schedules PushDirectNotification
// after the background delay and returns at once.
func (c *Console) PushDirectNotificationBackground(ctx context.Context) error {
	runID := c.RunID()
	return c.inBackground(ctx, "push_direct_notification", func(ctx context.Context) error {
		return c.pushDirectNotification(ctx, runID)
	})
}

// PushDirectDataClient pushes data to every device of the local client id.
func (c *Console) PushDirectDataClient(ctx context.Context) error {
	device, err := c.gateway.LocalDevice(ctx)
	if err != nil {
		return err
	}
	recipient := domain.Recipient{ClientID: device.ClientID}
	if err := c.gateway.PublishDirect(ctx, recipient, dataPush(DirectTestValue, c.RunID())); err != nil {
		return fmt.Errorf("push direct data to client: %w", err)
	}
	return nil
}

// LocalDevice returns the local device.
func (c *Console) LocalDevice(ctx context.Context) (*domain.Device, error) {
	return c.gateway.LocalDevice(ctx)
}

// ResetLocalDevice discards the local device identity.
func (c *Console) ResetLocalDevice(ctx context.Context) error {
	return c.gateway.ResetLocalDevice(ctx)
}

// ActivationState returns the device's activation state.
func (c *Console) ActivationState(ctx context.Context) (domain.ActivationState, error) {
	return c.gateway.ActivationState(ctx)
}

// ResetActivationState forgets the device's registration.
func (c *Console) ResetActivationState(ctx context.Context) error {
	return c.gateway.ResetActivationState(ctx)
}

// inBackground runs fn after the background delay, detached from ctx.
// It refuses new work once Shutdown has started.
func (c *Console) inBackground(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsoleClosed
	}
	c.background.Add(1)
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	c.log.Info().Str("action", name).Dur("delay", c.opts.BackgroundDelay).Msg("Scheduling background push")

	go func() {
		defer c.background.Done()
		time.Sleep(c.opts.BackgroundDelay)
		if err := fn(ctx); err != nil {
			c.log.Error().Err(err).Str("action", name).Msg("Background push failed")
		}
	}()
	return nil
}

// Shutdown stops accepting new runs and background pushes, waits for the
// executing test run and scheduled background pushes, then drops the
// device subscription on the current channel.
func (c *Console) Shutdown(ctx context.Context) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.background.Wait()
	if c.SubscriptionType() != domain.SubscriptionDevice {
		return
	}
	if err := c.PushUnsubscribe(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to unsubscribe on shutdown")
	}
}
