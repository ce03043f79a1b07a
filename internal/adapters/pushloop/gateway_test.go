package pushloop

import (
	"PushProbe/internal/core/domain"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataMessage(runID string) domain.PushMessage {
	return domain.PushMessage{Data: domain.Payload{"testKey": "testValueDirect", "runId": runID}}
}

func TestGateway_ActivationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	state, err := f.gw.ActivationState(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationNotActivated, state)

	device := f.activate(t)
	assert.Equal(t, "test-client", device.ClientID)
	require.NotNil(t, device.RegistrationToken)

	require.NoError(t, f.gw.Deactivate(ctx))
	ev := f.nextActivation(t)
	assert.Equal(t, domain.KindPushDeactivated, ev.Kind)
	assert.NoError(t, ev.Err)

	state, err = f.gw.ActivationState(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationDeactivated, state)
}

func TestGateway_ActivationKeepsDeviceIdentity(t *testing.T) {
	f := newFixture(t)
	first := f.activate(t)

	require.NoError(t, f.gw.ResetActivationState(t.Context()))
	second := f.activate(t)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, *first.RegistrationToken, *second.RegistrationToken)
}

func TestGateway_ResetLocalDeviceIssuesNewIdentity(t *testing.T) {
	f := newFixture(t)
	first := f.activate(t)

	require.NoError(t, f.gw.ResetLocalDevice(t.Context()))
	second, err := f.gw.LocalDevice(t.Context())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.IsActivated())
}

func TestGateway_InjectedActivationError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("registration rejected")
	f.gw.InjectActivationError(boom)

	require.NoError(t, f.gw.Activate(t.Context()))
	ev := f.nextActivation(t)
	assert.Equal(t, domain.KindPushActivated, ev.Kind)
	assert.ErrorIs(t, ev.Err, boom)

	state, err := f.gw.ActivationState(t.Context())
	require.NoError(t, err)
	assert.Equal(t, domain.ActivationWaitingForRegistration, state)
}

func TestGateway_PublishDirect(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	device := f.activate(t)

	t.Run("by device id", func(t *testing.T) {
		err := f.gw.PublishDirect(ctx, domain.Recipient{DeviceID: device.ID}, dataMessage("r1"))
		require.NoError(t, err)
		ev := f.nextMessage(t)
		assert.Equal(t, domain.KindDataPushReceived, ev.Kind)
		assert.Equal(t, "r1", ev.Data["runId"])
	})

	t.Run("by client id", func(t *testing.T) {
		err := f.gw.PublishDirect(ctx, domain.Recipient{ClientID: "test-client"}, dataMessage("r2"))
		require.NoError(t, err)
		assert.Equal(t, "r2", f.nextMessage(t).Data["runId"])
	})

	t.Run("unknown device", func(t *testing.T) {
		err := f.gw.PublishDirect(ctx, domain.Recipient{DeviceID: uuid.New()}, dataMessage("r3"))
		assert.ErrorIs(t, err, ErrUnknownRecipient)
	})

	t.Run("ambiguous recipient", func(t *testing.T) {
		err := f.gw.PublishDirect(ctx, domain.Recipient{DeviceID: device.ID, ClientID: "test-client"}, dataMessage("r4"))
		assert.Error(t, err)
	})
	f.noMessage(t)
}

func TestGateway_PublishDirectRequiresActivation(t *testing.T) {
	f := newFixture(t)
	device, err := f.gw.LocalDevice(t.Context())
	require.NoError(t, err)

	err = f.gw.PublishDirect(t.Context(), domain.Recipient{DeviceID: device.ID}, dataMessage("r1"))
	assert.ErrorIs(t, err, ErrDeviceNotActivated)
}

func TestGateway_ChannelSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	channel := domain.ChannelName("run")

	require.ErrorIs(t, f.gw.SubscribeDevice(ctx, channel), ErrDeviceNotActivated)
	f.activate(t)

	// Nobody subscribed yet.
	require.NoError(t, f.gw.PublishToChannel(ctx, channel, dataMessage("a")))
	f.noMessage(t)

	require.NoError(t, f.gw.SubscribeDevice(ctx, channel))
	require.NoError(t, f.gw.PublishToChannel(ctx, channel, dataMessage("b")))
	assert.Equal(t, "b", f.nextMessage(t).Data["runId"])

	// Device and client subscriptions reach the same device once.
	require.NoError(t, f.gw.SubscribeClient(ctx, channel))
	require.NoError(t, f.gw.PublishToChannel(ctx, channel, dataMessage("c")))
	assert.Equal(t, "c", f.nextMessage(t).Data["runId"])
	f.noMessage(t)

	require.NoError(t, f.gw.UnsubscribeDevice(ctx, channel))
	require.NoError(t, f.gw.PublishToChannel(ctx, channel, dataMessage("d")))
	assert.Equal(t, "d", f.nextMessage(t).Data["runId"])

	require.NoError(t, f.gw.UnsubscribeClient(ctx, channel))
	require.NoError(t, f.gw.PublishToChannel(ctx, channel, dataMessage("e")))
	f.noMessage(t)
}

func TestGateway_DeactivateDropsDeviceSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	channel := domain.ChannelName("run")
	f.activate(t)
	require.NoError(t, f.gw.SubscribeDevice(ctx, channel))

	require.NoError(t, f.gw.Deactivate(ctx))
	f.nextActivation(t)
	f.activate(t)

	require.NoError(t, f.gw.PublishToChannel(ctx, channel, dataMessage("x")))
	f.noMessage(t)
}

func TestGateway_RealtimeAndClose(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.gw.Attach(ctx, "chan"))
	require.NoError(t, f.gw.PublishRealtime(ctx, "chan", "testMessageName", "testMessageData"))
	require.NoError(t, f.gw.PublishRealtime(ctx, "other", "testMessageName", "testMessageData"))

	f.gw.Close()
	assert.ErrorIs(t, f.gw.Attach(ctx, "chan"), ErrClosed)
	assert.ErrorIs(t, f.gw.Activate(ctx), ErrClosed)
}
