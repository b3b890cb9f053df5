package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
)

func newTestJob(tags []string, at time.Time) *domain.Job {
	return &domain.Job{
		ID:            uuid.New(),
		Tags:          tags,
		Type:          domain.JobOneTime,
		ExecutionTime: &at,
		Status:        domain.JobPending,
		Execution: domain.Execution{
			Type: domain.ExecHTTPRequest,
			HTTPRequest: domain.HTTPRequestSpec{
				URL:    "http://sla.internal/api/v1/sla/check",
				Method: "POST",
				Headers: []domain.NameValue{
					{Name: "Content-Type", Value: "application/json"},
				},
				Body: json.RawMessage(`{"ticketId":"T-1","where":"response:0"}`),
			},
		},
	}
}

func TestJobRepository_CreateBatchGet(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testPool)

	due := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	job := newTestJob([]string{"T-100"}, due)

	count, err := repo.CreateBatch(ctx, []*domain.Job{job})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
	assert.Equal(t, []string{"T-100"}, found.Tags)
	assert.Equal(t, domain.JobOneTime, found.Type)
	assert.Equal(t, domain.JobPending, found.Status)
	require.NotNil(t, found.ExecutionTime)
	assert.WithinDuration(t, due, *found.ExecutionTime, time.Millisecond)
	assert.Equal(t, "http://sla.internal/api/v1/sla/check", found.Execution.HTTPRequest.URL)
	assert.JSONEq(t, `{"ticketId":"T-1","where":"response:0"}`, string(found.Execution.HTTPRequest.Body))
}

func TestJobRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testPool)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}

func TestJobRepository_DeleteByTags(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testPool)

	due := time.Now().UTC().Add(time.Hour)
	keep := newTestJob([]string{"T-200"}, due)
	drop1 := newTestJob([]string{"T-201"}, due)
	drop2 := newTestJob([]string{"T-201", "batch-7"}, due)

	_, err := repo.CreateBatch(ctx, []*domain.Job{keep, drop1, drop2})
	require.NoError(t, err)

	deleted, err := repo.DeleteByTags(ctx, []string{"T-201"})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	_, err = repo.GetByID(ctx, drop1.ID)
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
	_, err = repo.GetByID(ctx, drop2.ID)
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)

	found, err := repo.GetByID(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, found.ID)
}

func TestJobRepository_ListDueBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testPool)

	now := time.Now().UTC()
	soon := newTestJob([]string{"T-300"}, now.Add(time.Minute))
	later := newTestJob([]string{"T-301"}, now.Add(24*time.Hour))

	_, err := repo.CreateBatch(ctx, []*domain.Job{soon, later})
	require.NoError(t, err)

	due, err := repo.ListDueBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(due))
	for _, j := range due {
		ids = append(ids, j.ID)
	}
	assert.Contains(t, ids, soon.ID)
	assert.NotContains(t, ids, later.ID)
}

func TestJobRepository_UpdateStatusAndReschedule(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testPool)

	due := time.Now().UTC().Add(time.Hour)
	job := newTestJob([]string{"T-400"}, due)
	job.Type = domain.JobRecurring
	job.Expression = "0 * * * *"

	_, err := repo.CreateBatch(ctx, []*domain.Job{job})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.JobScheduled))

	found, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobScheduled, found.Status)

	next := due.Add(time.Hour).Truncate(time.Millisecond)
	require.NoError(t, repo.Reschedule(ctx, job.ID, next, domain.JobPending))

	found, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, found.Status)
	require.NotNil(t, found.ExecutionTime)
	assert.WithinDuration(t, next, *found.ExecutionTime, time.Millisecond)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), domain.JobScheduled), apperrors.ErrJobNotFound)
	assert.ErrorIs(t, repo.Reschedule(ctx, uuid.New(), next, domain.JobPending), apperrors.ErrJobNotFound)
}
