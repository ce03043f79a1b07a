package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of a whole test run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunPassed  RunStatus = "passed"
	RunFailed  RunStatus = "failed"
)

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepTimeout StepStatus = "timeout"
)

// TestRun is one execution of the push test sequence.
type TestRun struct {
	ID         uuid.UUID
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time // Nullable while running
	Steps      []StepResult
}

// StepResult records one request/response cycle inside a run.
type StepResult struct {
	Name     string
	RunID    string
	Status   StepStatus
	Error    *string // Nullable
	Duration time.Duration
}
