package probe

import (
	"PushProbe/internal/core/correlation"
	"PushProbe/internal/core/domain"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRunInProgress is returned when a test run is already executing.
	ErrRunInProgress = errors.New("a push test run is already in progress")
	// ErrUnexpectedPayload is returned when a delivered push does not carry
	// what was sent.
	ErrUnexpectedPayload = errors.New("unexpected push payload")
)

// step is one request/response cycle of the push test sequence.
type step struct {
	name  string
	runID string
	fn    func(ctx context.Context) error
}

// RunPushTests runs the full push test sequence and returns the finished run.
func (c *Console) RunPushTests(ctx context.Context) (*domain.TestRun, error) {
	run, err := c.BeginPushTests(ctx)
	if err != nil {
		return nil, err
	}
	c.ExecutePushTests(ctx, run)
	return run, nil
}

// BeginPushTests reserves the runner and persists a new run.
// The caller must follow up with ExecutePushTests.
func (c *Console) BeginPushTests(ctx context.Context) (*domain.TestRun, error) {
	if !c.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.runMu.Unlock()
		return nil, ErrConsoleClosed
	}

	run := &domain.TestRun{
		ID:        uuid.New(),
		Status:    domain.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := c.runs.Create(ctx, run); err != nil {
		c.runMu.Unlock()
		return nil, fmt.Errorf("create test run: %w", err)
	}
	c.log.Info().Str("test_run_id", run.ID.String()).Msg("Running push tests")
	return run, nil
}

// ExecutePushTests runs the sequence for a run created by BeginPushTests.
// The first failing step ends the run.
func (c *Console) ExecutePushTests(ctx context.Context, run *domain.TestRun) {
	defer c.runMu.Unlock()
	log := c.log.With().Str("test_run_id", run.ID.String()).Logger()

	directRunID := c.NewRun()
	log.Info().Str("run_id", directRunID).Msg("Direct run id")
	channelRunID := uuid.NewString()
	channel := domain.ChannelName(channelRunID)

	steps := []step{
		{name: "reset_local_device", fn: c.gateway.ResetLocalDevice},
		{name: "reset_activation_state", fn: c.gateway.ResetActivationState},
		{name: "activate", runID: domain.ActivationRunID, fn: c.ActivatePush},

		{name: "direct_data", runID: directRunID, fn: func(ctx context.Context) error {
			return c.expectData(ctx, directRunID, DirectTestValue, c.pushDirectData)
		}},
		{name: "direct_notification", runID: directRunID, fn: func(ctx context.Context) error {
			return c.expectNotification(ctx, directRunID, DirectBody, c.pushDirectNotification)
		}},

		{name: "realtime_subscribe", runID: channelRunID, fn: func(ctx context.Context) error {
			// Manual actions follow the channel run from here on.
			c.mu.Lock()
			c.runID = channelRunID
			c.mu.Unlock()
			log.Info().Str("run_id", channelRunID).Msg("Channel run id")
			return c.realtimeSubscribe(ctx, channel)
		}},
		{name: "push_subscribe", runID: channelRunID, fn: func(ctx context.Context) error {
			return c.pushSubscribe(ctx, channel)
		}},
		{name: "publish_data", runID: channelRunID, fn: func(ctx context.Context) error {
			return c.expectData(ctx, channelRunID, PublishTestValue, c.pushPublishData)
		}},
		{name: "publish_notification", runID: channelRunID, fn: func(ctx context.Context) error {
			return c.expectNotification(ctx, channelRunID, PublishBody, c.pushPublishNotification)
		}},
		{name: "push_unsubscribe", runID: channelRunID, fn: func(ctx context.Context) error {
			return c.pushUnsubscribe(ctx, channel)
		}},
	}

	run.Status = domain.RunPassed
	for _, s := range steps {
		if err := c.runStep(ctx, run, s); err != nil {
			log.Error().Err(err).Str("step", s.name).Msg("Push test step failed")
			run.Status = domain.RunFailed
			break
		}
	}

	correlation.ForgetRun(c.waiter, directRunID)
	correlation.ForgetRun(c.waiter, channelRunID)
	correlation.ForgetRun(c.waiter, domain.ActivationRunID)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err := c.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.Error().Err(err).Msg("Failed to persist finished test run")
	}
	log.Info().Str("status", string(run.Status)).Int("steps", len(run.Steps)).Msg("Finished push tests")
}

func (c *Console) runStep(ctx context.Context, run *domain.TestRun, s step) error {
	start := time.Now()
	err := s.fn(ctx)

	result := domain.StepResult{
		Name:     s.name,
		RunID:    s.runID,
		Status:   domain.StepPassed,
		Duration: time.Since(start),
	}
	if err != nil {
		msg := err.Error()
		result.Error = &msg
		result.Status = domain.StepFailed
		if errors.Is(err, correlation.ErrTimeout) {
			result.Status = domain.StepTimeout
		}
	}

	run.Steps = append(run.Steps, result)
	if repoErr := c.runs.AddStep(context.WithoutCancel(ctx), run.ID, result); repoErr != nil {
		c.log.Error().Err(repoErr).Str("step", s.name).Msg("Failed to persist step result")
	}
	return err
}

func (c *Console) expectData(
	ctx context.Context,
	runID, want string,
	publish func(ctx context.Context, runID string) error,
) error {
	payload, err := c.await(ctx, domain.KindDataPushReceived, runID, func(ctx context.Context) error {
		return publish(ctx, runID)
	})
	if err != nil {
		return err
	}
	if got := payload[testKeyField]; got != want {
		return fmt.Errorf("%w: %s is %q, want %q", ErrUnexpectedPayload, testKeyField, got, want)
	}
	return nil
}

func (c *Console) expectNotification(
	ctx context.Context,
	runID, wantBody string,
	publish func(ctx context.Context, runID string) error,
) error {
	payload, err := c.await(ctx, domain.KindNotificationPushReceived, runID, func(ctx context.Context) error {
		return publish(ctx, runID)
	})
	if err != nil {
		return err
	}
	if payload["title"] != NotificationTitle || payload["body"] != wantBody {
		return fmt.Errorf("%w: notification %q/%q", ErrUnexpectedPayload, payload["title"], payload["body"])
	}
	return nil
}
