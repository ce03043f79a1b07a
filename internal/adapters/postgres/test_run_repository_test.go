package postgres

import (
	"PushProbe/internal/core/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestRunRepository_Lifecycle(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewTestRunRepository(testDB, &nopLogger)
	ctx := t.Context()

	run := &domain.TestRun{
		ID:        uuid.New(),
		Status:    domain.RunRunning,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Create(ctx, run))
	defer testDB.pool.Exec(ctx, "DELETE FROM test_runs WHERE id = $1", run.ID)

	failure := "timed out"
	require.NoError(t, repo.AddStep(ctx, run.ID, domain.StepResult{
		Name: "activate", RunID: domain.ActivationRunID, Status: domain.StepPassed, Duration: 120 * time.Millisecond,
	}))
	require.NoError(t, repo.AddStep(ctx, run.ID, domain.StepResult{
		Name: "direct data", RunID: "run-1", Status: domain.StepTimeout, Error: &failure, Duration: 5 * time.Second,
	}))

	finished := time.Now().UTC().Truncate(time.Millisecond)
	run.Status = domain.RunFailed
	run.FinishedAt = &finished
	require.NoError(t, repo.Finish(ctx, run))

	found, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.RunFailed, found.Status)
	require.NotNil(t, found.FinishedAt)
	assert.True(t, found.FinishedAt.Equal(finished))

	require.Len(t, found.Steps, 2)
	assert.Equal(t, "activate", found.Steps[0].Name)
	assert.Equal(t, 120*time.Millisecond, found.Steps[0].Duration)
	assert.Nil(t, found.Steps[0].Error)
	assert.Equal(t, domain.StepTimeout, found.Steps[1].Status)
	require.NotNil(t, found.Steps[1].Error)
	assert.Equal(t, failure, *found.Steps[1].Error)
}

func TestTestRunRepository_GetByID_NotFound(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewTestRunRepository(testDB, &nopLogger)

	found, err := repo.GetByID(t.Context(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}
