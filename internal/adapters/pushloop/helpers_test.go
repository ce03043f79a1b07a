package pushloop

import (
	"PushProbe/internal/adapters/eventbus"
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// memoryDevices is an in-memory ports.DeviceRepository.
type memoryDevices struct {
	mu     sync.Mutex
	device *domain.Device
}

func (m *memoryDevices) Save(ctx context.Context, device *domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *device
	cp.UpdatedAt = time.Now()
	m.device = &cp
	device.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *memoryDevices) Get(ctx context.Context) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil, nil
	}
	cp := *m.device
	return &cp, nil
}

func (m *memoryDevices) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.device = nil
	return nil
}

type fixture struct {
	gw       *Gateway
	devices  *memoryDevices
	messages chan ports.MessageEvent
	activity chan ports.ActivationEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	bus := eventbus.NewInMemoryBus(&log)

	f := &fixture{
		devices:  &memoryDevices{},
		messages: make(chan ports.MessageEvent, 16),
		activity: make(chan ports.ActivationEvent, 16),
	}
	bus.Subscribe(ports.TopicPushMessage, func(ctx context.Context, e ports.Event) error {
		f.messages <- e.Data.(ports.MessageEvent)
		return nil
	})
	bus.Subscribe(ports.TopicPushActivation, func(ctx context.Context, e ports.Event) error {
		f.activity <- e.Data.(ports.ActivationEvent)
		return nil
	})

	f.gw = NewGateway(f.devices, bus, "test-client", 5*time.Millisecond, &log)
	t.Cleanup(func() {
		f.gw.Close()
		bus.Drain()
	})
	return f
}

func (f *fixture) activate(t *testing.T) *domain.Device {
	t.Helper()
	require.NoError(t, f.gw.Activate(t.Context()))
	ev := f.nextActivation(t)
	require.Equal(t, domain.KindPushActivated, ev.Kind)
	require.NoError(t, ev.Err)

	device, err := f.gw.LocalDevice(t.Context())
	require.NoError(t, err)
	require.True(t, device.IsActivated())
	return device
}

func (f *fixture) nextActivation(t *testing.T) ports.ActivationEvent {
	t.Helper()
	select {
	case ev := <-f.activity:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no activation event")
		return ports.ActivationEvent{}
	}
}

func (f *fixture) nextMessage(t *testing.T) ports.MessageEvent {
	t.Helper()
	select {
	case ev := <-f.messages:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no push delivered")
		return ports.MessageEvent{}
	}
}

func (f *fixture) noMessage(t *testing.T) {
	t.Helper()
	select {
	case ev := <-f.messages:
		t.Fatalf("unexpected push delivered: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
