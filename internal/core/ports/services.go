package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/sla-engine/internal/core/domain"
)

// ScheduleJobParams defines the input for scheduling a single job.
type ScheduleJobParams struct {
	Tags          []string
	Type          domain.JobType
	Expression    string
	ExecutionTime *time.Time
	Execution     domain.Execution
}

// JobScheduler is the port of the generic job scheduler: durably store
// "do X at time T (or on cron expression E)" and fire it near-once.
type JobScheduler interface {
	Schedule(ctx context.Context, specs []ScheduleJobParams) (int, error)
	Cancel(ctx context.Context, tags []string) (int, error)
}

// SlaService drives SLA evaluation for tickets.
type SlaService interface {
	// Calculate runs the first, synchronous evaluation for a ticket
	// snapshot supplied by the caller.
	Calculate(ctx context.Context, snapshot *domain.TicketSnapshot) (*domain.SlaState, error)
	// Recheck re-evaluates a ticket from live state when a scheduled
	// check fires. A missing ticket drops the check without error.
	Recheck(ctx context.Context, ticketID string, where string) (*domain.SlaState, error)
}

// CreateWorkingTimeParams defines the input for creating a calendar.
type CreateWorkingTimeParams struct {
	Type domain.WorkingTimeType
	Days *[7]domain.WorkingDay // nil selects the template for Type
}

// PolicyService is the admin surface for policies, calendars and holidays.
// Invariants are enforced here, at creation time, never during evaluation.
type PolicyService interface {
	CreatePolicy(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error)
	GetPolicy(ctx context.Context, id uuid.UUID) (*domain.SlaPolicy, error)
	UpdatePolicy(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error)
	DeletePolicy(ctx context.Context, id uuid.UUID) error
	ListPolicies(ctx context.Context, tenant string, module domain.Module) ([]*domain.SlaPolicy, error)
	CreateWorkingTime(ctx context.Context, params CreateWorkingTimeParams) (*domain.WorkingTime, error)
	CreateHoliday(ctx context.Context, h *domain.Holiday) (*domain.Holiday, error)
}

// TicketGateway is the boundary to the ticket-owning service. The engine
// never mutates ticket state directly; all changes go through here.
type TicketGateway interface {
	GetTicket(ctx context.Context, ticketID string) (*domain.TicketSnapshot, error)
	UpdateFields(ctx context.Context, ticketID string, updates []domain.FieldUpdate) error
	SaveSla(ctx context.Context, ticketID string, state *domain.SlaState) error
}

// NotificationParams defines the input for sending an escalation notice.
type NotificationParams struct {
	Tenant       string
	TicketID     string
	TemplateCode string
	Recipients   []string
	Payload      map[string]string
}

// Notifier is the boundary to the notification sender.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams) error
}

// GroupDirectory resolves GROUP recipients to individual addresses.
type GroupDirectory interface {
	ResolveGroup(ctx context.Context, tenant, groupID string) ([]string, error)
}

// EventBroadcaster pushes SLA events to connected dashboards.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// JobExecutor performs a stored job execution when its timer fires.
type JobExecutor interface {
	Execute(ctx context.Context, spec domain.HTTPRequestSpec) error
}
