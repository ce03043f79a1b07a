package httpapi

import (
	"PushProbe/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// EventRequest is the body of POST /v1/events.
type EventRequest struct {
	Kind    domain.EventKind `json:"kind"`
	RunID   string           `json:"runId"`
	Payload domain.Payload   `json:"payload,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunStartedResponse is returned by POST /v1/runs.
type RunStartedResponse struct {
	ID uuid.UUID `json:"id"`
}

type stepResponse struct {
	Name       string  `json:"name"`
	RunID      string  `json:"runId,omitempty"`
	Status     string  `json:"status"`
	Error      *string `json:"error,omitempty"`
	DurationMs int64   `json:"durationMs"`
}

// RunResponse is returned by GET /v1/runs/{id}.
type RunResponse struct {
	ID         uuid.UUID      `json:"id"`
	Status     string         `json:"status"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Steps      []stepResponse `json:"steps"`
}

func newRunResponse(run *domain.TestRun) RunResponse {
	resp := RunResponse{
		ID:         run.ID,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Steps:      make([]stepResponse, 0, len(run.Steps)),
	}
	for _, s := range run.Steps {
		resp.Steps = append(resp.Steps, stepResponse{
			Name:       s.Name,
			RunID:      s.RunID,
			Status:     string(s.Status),
			Error:      s.Error,
			DurationMs: s.Duration.Milliseconds(),
		})
	}
	return resp
}

// DeviceResponse is returned by GET /v1/device. The registration token
// is never exposed.
type DeviceResponse struct {
	ID              uuid.UUID `json:"id"`
	ClientID        string    `json:"clientId"`
	ActivationState string    `json:"activationState"`
	Registered      bool      `json:"registered"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newDeviceResponse(d *domain.Device) DeviceResponse {
	return DeviceResponse{
		ID:              d.ID,
		ClientID:        d.ClientID,
		ActivationState: string(d.ActivationState),
		Registered:      d.RegistrationToken != nil,
		UpdatedAt:       d.UpdatedAt,
	}
}
