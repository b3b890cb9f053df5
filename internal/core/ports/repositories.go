package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/sla-engine/internal/core/domain"
)

// PolicyRepository persists SLA policies. Listings are ordered ascending by
// the policy Order column so the matcher can take the first hit.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SlaPolicy, error)
	Update(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTenantModule(ctx context.Context, tenant string, module domain.Module) ([]*domain.SlaPolicy, error)
}

// CalendarRepository persists working-time calendars and holidays.
type CalendarRepository interface {
	CreateWorkingTime(ctx context.Context, wt *domain.WorkingTime) (*domain.WorkingTime, error)
	GetWorkingTime(ctx context.Context, id uuid.UUID) (*domain.WorkingTime, error)
	CreateHoliday(ctx context.Context, h *domain.Holiday) (*domain.Holiday, error)
	ListHolidays(ctx context.Context, tenant string) ([]domain.Holiday, error)
}

// JobRepository persists scheduler jobs. The job table is the source of
// truth; armed timers are a derived in-memory cache.
type JobRepository interface {
	CreateBatch(ctx context.Context, jobs []*domain.Job) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByTags removes every job whose tag set intersects tags and
	// returns the removed jobs so their timers can be disarmed.
	DeleteByTags(ctx context.Context, tags []string) ([]*domain.Job, error)
	// ListDueBefore returns jobs (PENDING or SCHEDULED) whose execution
	// time is at or before the horizon.
	ListDueBefore(ctx context.Context, horizon time.Time) ([]*domain.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus) error
	// Reschedule stores the next execution time and resets the status,
	// used for recurring jobs after a fire.
	Reschedule(ctx context.Context, id uuid.UUID, next time.Time, status domain.JobStatus) error
}
