package probe

import (
	"PushProbe/internal/adapters/eventbus"
	"PushProbe/internal/adapters/pushloop"
	"PushProbe/internal/core/correlation"
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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
	m.device = &cp
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

var stepNames = []string{
	"reset_local_device",
	"reset_activation_state",
	"activate",
	"direct_data",
	"direct_notification",
	"realtime_subscribe",
	"push_subscribe",
	"publish_data",
	"publish_notification",
	"push_unsubscribe",
}

// newLoopbackConsole wires a console to a loopback backend.
func newLoopbackConsole(t *testing.T, waiter ports.CorrelationWaiter, runs ports.TestRunRepository) (*Console, *pushloop.Gateway) {
	t.Helper()
	log := zerolog.Nop()
	bus := eventbus.NewInMemoryBus(&log)
	NewPushReceiver(waiter, &log).Register(bus)

	gw := pushloop.NewGateway(&memoryDevices{}, bus, "probe-client", 2*time.Millisecond, &log)
	t.Cleanup(func() {
		gw.Close()
		bus.Drain()
	})

	opts := Options{WaitTimeout: time.Second, BackgroundDelay: 5 * time.Millisecond}
	return NewConsole(gw, waiter, runs, opts, &log), gw
}

func TestRunPushTests_Passes(t *testing.T) {
	waiters := map[string]func() ports.CorrelationWaiter{
		"keyed": func() ports.CorrelationWaiter { return correlation.NewKeyedWaiter() },
		"slot":  func() ports.CorrelationWaiter { return correlation.NewSlotWaiter() },
	}

	for name, newWaiter := range waiters {
		t.Run(name, func(t *testing.T) {
			runs := permissiveRuns()
			c, _ := newLoopbackConsole(t, newWaiter(), runs)

			run, err := c.RunPushTests(t.Context())
			require.NoError(t, err)

			assert.Equal(t, domain.RunPassed, run.Status)
			require.NotNil(t, run.FinishedAt)
			require.Len(t, run.Steps, len(stepNames))
			for i, s := range run.Steps {
				assert.Equal(t, stepNames[i], s.Name)
				assert.Equal(t, domain.StepPassed, s.Status, "step %s: %v", s.Name, s.Error)
			}

			// Direct steps share one run id, channel steps another.
			assert.Equal(t, run.Steps[3].RunID, run.Steps[4].RunID)
			assert.Equal(t, run.Steps[7].RunID, run.Steps[8].RunID)
			assert.NotEqual(t, run.Steps[3].RunID, run.Steps[7].RunID)
			assert.Equal(t, run.Steps[7].RunID, c.RunID())
			assert.Equal(t, domain.SubscriptionNone, c.SubscriptionType())

			runs.AssertNumberOfCalls(t, "AddStep", len(stepNames))
			runs.AssertCalled(t, "Finish", mock.Anything, run)
		})
	}
}

func TestRunPushTests_ForgetsRunsWhenDone(t *testing.T) {
	waiter := correlation.NewKeyedWaiter()
	c, _ := newLoopbackConsole(t, waiter, permissiveRuns())

	_, err := c.RunPushTests(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, waiter.Len())
}

func TestRunPushTests_StopsAtFailedActivation(t *testing.T) {
	c, gw := newLoopbackConsole(t, correlation.NewKeyedWaiter(), permissiveRuns())
	gw.InjectActivationError(errors.New("registration rejected"))

	run, err := c.RunPushTests(t.Context())
	require.NoError(t, err)

	assert.Equal(t, domain.RunFailed, run.Status)
	require.Len(t, run.Steps, 3)
	last := run.Steps[2]
	assert.Equal(t, "activate", last.Name)
	assert.Equal(t, domain.StepFailed, last.Status)
	require.NotNil(t, last.Error)
	assert.Contains(t, *last.Error, "registration rejected")
}

func TestRunPushTests_TimeoutStep(t *testing.T) {
	log := zerolog.Nop()
	gw := new(mockGateway)
	waiter := correlation.NewKeyedWaiter()
	runs := permissiveRuns()
	c := NewConsole(gw, waiter, runs, Options{WaitTimeout: 50 * time.Millisecond}, &log)

	gw.On("ResetLocalDevice", mock.Anything).Return(nil)
	gw.On("ResetActivationState", mock.Anything).Return(nil)
	gw.On("Activate", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		waiter.Record(domain.KindPushActivated, domain.ActivationRunID, nil, nil)
	})
	gw.On("LocalDevice", mock.Anything).Return(&domain.Device{ID: uuid.New()}, nil)
	// Accepted by the backend but never delivered.
	gw.On("PublishDirect", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	run, err := c.RunPushTests(t.Context())
	require.NoError(t, err)

	assert.Equal(t, domain.RunFailed, run.Status)
	require.Len(t, run.Steps, 4)
	assert.Equal(t, "direct_data", run.Steps[3].Name)
	assert.Equal(t, domain.StepTimeout, run.Steps[3].Status)
	gw.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything)
}

func TestRunPushTests_UnexpectedPayload(t *testing.T) {
	log := zerolog.Nop()
	gw := new(mockGateway)
	waiter := correlation.NewKeyedWaiter()
	c := NewConsole(gw, waiter, permissiveRuns(), Options{WaitTimeout: time.Second}, &log)

	gw.On("ResetLocalDevice", mock.Anything).Return(nil)
	gw.On("ResetActivationState", mock.Anything).Return(nil)
	gw.On("Activate", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		waiter.Record(domain.KindPushActivated, domain.ActivationRunID, nil, nil)
	})
	gw.On("LocalDevice", mock.Anything).Return(&domain.Device{ID: uuid.New()}, nil)
	gw.On("PublishDirect", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		msg := args.Get(2).(domain.PushMessage)
		waiter.Record(domain.KindDataPushReceived, msg.RunID(), domain.Payload{"testKey": "tampered"}, nil)
	})

	run, err := c.RunPushTests(t.Context())
	require.NoError(t, err)

	require.Len(t, run.Steps, 4)
	assert.Equal(t, domain.StepFailed, run.Steps[3].Status)
	assert.Contains(t, *run.Steps[3].Error, "tampered")
}

func TestBeginPushTests_RejectsConcurrentRuns(t *testing.T) {
	c, _ := newLoopbackConsole(t, correlation.NewKeyedWaiter(), permissiveRuns())

	run, err := c.BeginPushTests(t.Context())
	require.NoError(t, err)

	_, err = c.BeginPushTests(t.Context())
	assert.ErrorIs(t, err, ErrRunInProgress)

	c.ExecutePushTests(t.Context(), run)
	assert.Equal(t, domain.RunPassed, run.Status)

	next, err := c.BeginPushTests(t.Context())
	require.NoError(t, err)
	c.ExecutePushTests(t.Context(), next)
}

func TestBeginPushTests_CreateFailureReleasesRunner(t *testing.T) {
	log := zerolog.Nop()
	runs := new(mockRunRepo)
	runs.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	c := NewConsole(new(mockGateway), correlation.NewKeyedWaiter(), runs, Options{}, &log)

	_, err := c.BeginPushTests(t.Context())
	require.ErrorContains(t, err, "db down")

	runs.On("Create", mock.Anything, mock.Anything).Return(nil)
	_, err = c.BeginPushTests(t.Context())
	assert.NoError(t, err)
}

func TestNewRun_KeepsKeyedWaiterBounded(t *testing.T) {
	waiter := correlation.NewKeyedWaiter()
	c, _ := newLoopbackConsole(t, waiter, permissiveRuns())
	ctx := t.Context()

	require.NoError(t, c.ActivatePush(ctx))
	for range 50 {
		runID := c.NewRun()
		require.NoError(t, c.PushDirectData(ctx))
		_, err := waiter.WaitFor(ctx, domain.KindDataPushReceived, runID, time.Second)
		require.NoError(t, err)
	}

	// The activation record plus the current run's delivery.
	assert.Equal(t, 2, waiter.Len())
}

func TestShutdown_WaitsForExecutingRun(t *testing.T) {
	runs := permissiveRuns()
	c, _ := newLoopbackConsole(t, correlation.NewKeyedWaiter(), runs)

	run, err := c.BeginPushTests(t.Context())
	require.NoError(t, err)
	go c.ExecutePushTests(t.Context(), run)

	time.Sleep(10 * time.Millisecond)
	c.Shutdown(t.Context())

	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, domain.RunPassed, run.Status)
	runs.AssertCalled(t, "Finish", mock.Anything, run)

	_, err = c.BeginPushTests(t.Context())
	assert.ErrorIs(t, err, ErrConsoleClosed)
}
