package probe

import (
	"PushProbe/internal/core/domain"
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Activate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) Deactivate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) LocalDevice(ctx context.Context) (*domain.Device, error) {
	args := m.Called(ctx)
	device, _ := args.Get(0).(*domain.Device)
	return device, args.Error(1)
}

func (m *mockGateway) ResetLocalDevice(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) ActivationState(ctx context.Context) (domain.ActivationState, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ActivationState), args.Error(1)
}

func (m *mockGateway) ResetActivationState(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) Attach(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *mockGateway) PublishRealtime(ctx context.Context, channel, name, data string) error {
	return m.Called(ctx, channel, name, data).Error(0)
}

func (m *mockGateway) SubscribeDevice(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *mockGateway) UnsubscribeDevice(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *mockGateway) SubscribeClient(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *mockGateway) UnsubscribeClient(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *mockGateway) PublishToChannel(ctx context.Context, channel string, msg domain.PushMessage) error {
	return m.Called(ctx, channel, msg).Error(0)
}

func (m *mockGateway) PublishDirect(ctx context.Context, recipient domain.Recipient, msg domain.PushMessage) error {
	return m.Called(ctx, recipient, msg).Error(0)
}

type mockRunRepo struct {
	mock.Mock
}

func (m *mockRunRepo) Create(ctx context.Context, run *domain.TestRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockRunRepo) AddStep(ctx context.Context, runID uuid.UUID, step domain.StepResult) error {
	return m.Called(ctx, runID, step).Error(0)
}

func (m *mockRunRepo) Finish(ctx context.Context, run *domain.TestRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TestRun, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*domain.TestRun)
	return run, args.Error(1)
}

// permissiveRuns accepts every persistence call.
func permissiveRuns() *mockRunRepo {
	runs := new(mockRunRepo)
	runs.On("Create", mock.Anything, mock.Anything).Return(nil)
	runs.On("AddStep", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	runs.On("Finish", mock.Anything, mock.Anything).Return(nil)
	return runs
}
