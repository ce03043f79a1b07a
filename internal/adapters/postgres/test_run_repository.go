package postgres

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type testRunRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.TestRunRepository = (*testRunRepository)(nil)

// NewTestRunRepository creates a new repository for push test runs.
func NewTestRunRepository(db *DB, baseLogger *zerolog.Logger) ports.TestRunRepository {
	return &testRunRepository{
		db:  db,
		log: baseLogger.With().Str("component", "test_run_repo").Logger(),
	}
}

// Create inserts a new run. Steps are added separately.
func (r *testRunRepository) Create(ctx context.Context, run *domain.TestRun) error {
	query := `INSERT INTO test_runs (id, status, started_at, finished_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.pool.Exec(ctx, query, run.ID, run.Status, run.StartedAt, run.FinishedAt)
	if err != nil {
		r.log.Error().Err(err).Str("test_run_id", run.ID.String()).Msg("Failed to insert test run")
	}
	return err
}

// AddStep appends a step after the run's existing steps.
func (r *testRunRepository) AddStep(ctx context.Context, runID uuid.UUID, step domain.StepResult) error {
	query := `
		INSERT INTO test_steps (test_run_id, position, name, run_id, status, error, duration_ms)
		SELECT $1, COALESCE(MAX(position), 0) + 1, $2, $3, $4, $5, $6
		FROM test_steps WHERE test_run_id = $1
	`
	_, err := r.db.pool.Exec(ctx, query,
		runID,
		step.Name,
		step.RunID,
		step.Status,
		step.Error,
		step.Duration.Milliseconds(),
	)
	if err != nil {
		r.log.Error().Err(err).Str("test_run_id", runID.String()).Str("step", step.Name).Msg("Failed to insert test step")
	}
	return err
}

// Finish stores the final status and finish time.
func (r *testRunRepository) Finish(ctx context.Context, run *domain.TestRun) error {
	query := `UPDATE test_runs SET status = $2, finished_at = $3 WHERE id = $1`
	_, err := r.db.pool.Exec(ctx, query, run.ID, run.Status, run.FinishedAt)
	if err != nil {
		r.log.Error().Err(err).Str("test_run_id", run.ID.String()).Msg("Failed to finish test run")
	}
	return err
}

// GetByID loads a run together with its ordered steps.
func (r *testRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TestRun, error) {
	var run domain.TestRun
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, status, started_at, finished_at FROM test_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Status, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.log.Info().Str("test_run_id", id.String()).Msg("Test run not found")
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan test run row")
		return nil, err
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT name, run_id, status, error, duration_ms
		FROM test_steps WHERE test_run_id = $1 ORDER BY position
	`, id)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query test steps")
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var step domain.StepResult
		var durationMs int64
		if err := rows.Scan(&step.Name, &step.RunID, &step.Status, &step.Error, &durationMs); err != nil {
			r.log.Error().Err(err).Msg("Failed to scan test step row")
			return nil, err
		}
		step.Duration = time.Duration(durationMs) * time.Millisecond
		run.Steps = append(run.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}
