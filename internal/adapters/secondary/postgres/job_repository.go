package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// JobRepository is the secondary adapter for job persistence.
type JobRepository struct {
	pool *pgxpool.Pool
}

var _ ports.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new job repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const createJobQuery = `
	INSERT INTO jobs (id, tags, type, expression, execution_time, status, execution, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// CreateBatch persists a batch of jobs in a single transaction. Either all
// jobs are stored or none are.
func (r *JobRepository) CreateBatch(ctx context.Context, jobs []*domain.Job) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, job := range jobs {
		execution, err := json.Marshal(job.Execution)
		if err != nil {
			return 0, fmt.Errorf("marshal execution: %w", err)
		}

		createdAt := job.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = tx.Exec(ctx, createJobQuery,
			job.ID, job.Tags, string(job.Type), job.Expression,
			job.ExecutionTime, string(job.Status), execution, createdAt)
		if err != nil {
			return 0, fmt.Errorf("insert job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(jobs), nil
}

const getJobQuery = `
	SELECT id, tags, type, expression, execution_time, status, execution, created_at
	FROM jobs
	WHERE id = $1
`

// GetByID retrieves a single job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, getJobQuery, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Delete removes a job. Missing rows are not an error: a fired one-time job
// may already be gone by the time a cancel arrives.
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

const deleteByTagsQuery = `
	DELETE FROM jobs
	WHERE tags && $1
	RETURNING id, tags, type, expression, execution_time, status, execution, created_at
`

// DeleteByTags removes every job carrying at least one of the given tags and
// returns the deleted jobs so the scheduler can disarm their timers.
func (r *JobRepository) DeleteByTags(ctx context.Context, tags []string) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, deleteByTagsQuery, tags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deleted []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		deleted = append(deleted, job)
	}
	return deleted, rows.Err()
}

const listDueBeforeQuery = `
	SELECT id, tags, type, expression, execution_time, status, execution, created_at
	FROM jobs
	WHERE execution_time IS NOT NULL AND execution_time <= $1
	ORDER BY execution_time
`

// ListDueBefore returns every job whose execution time falls at or before the
// given horizon, soonest first.
func (r *JobRepository) ListDueBefore(ctx context.Context, horizon time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, listDueBeforeQuery, horizon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateStatus transitions a job to the given status.
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE jobs SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrJobNotFound
	}
	return nil
}

// Reschedule moves a recurring job to its next execution time.
func (r *JobRepository) Reschedule(ctx context.Context, id uuid.UUID, next time.Time, status domain.JobStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET execution_time = $2, status = $3 WHERE id = $1`,
		id, next, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job       domain.Job
		jobType   string
		status    string
		execution []byte
	)
	err := row.Scan(&job.ID, &job.Tags, &jobType, &job.Expression,
		&job.ExecutionTime, &status, &execution, &job.CreatedAt)
	if err != nil {
		return nil, err
	}

	job.Type = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal(execution, &job.Execution); err != nil {
		return nil, fmt.Errorf("unmarshal execution for job %s: %w", job.ID, err)
	}
	return &job, nil
}
