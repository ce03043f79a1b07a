package ports

import (
	"PushProbe/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// TestRunRepository persists push test runs and their steps.
type TestRunRepository interface {
	Create(ctx context.Context, run *domain.TestRun) error
	AddStep(ctx context.Context, runID uuid.UUID, step domain.StepResult) error
	Finish(ctx context.Context, run *domain.TestRun) error

	// GetByID returns the run with its steps, or nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TestRun, error)
}
