package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
	"github.com/lorrc/sla-engine/internal/core/worktime"
)

// TokenSource mints service tokens for the scheduler's callback requests.
type TokenSource interface {
	ServiceToken() (string, error)
}

// CallbackConfig locates the engine's own re-check endpoint, the target of
// every scheduled deadline check.
type CallbackConfig struct {
	URL string
}

// checkRequest is the body of a scheduled re-check callback.
type checkRequest struct {
	TicketID string `json:"ticketId"`
	Where    string `json:"where"`
}

// EscalationService orchestrates SLA evaluation: match a policy, compute
// deadlines, fire side effects for newly overdue levels, and schedule the
// next checks. All evaluations for one ticket are serialized.
type EscalationService struct {
	matcher     *SlaMatcher
	calendars   ports.CalendarRepository
	tickets     ports.TicketGateway
	notifier    ports.Notifier
	groups      ports.GroupDirectory
	scheduler   ports.JobScheduler
	broadcaster ports.EventBroadcaster
	tokens      TokenSource
	callback    CallbackConfig
	logger      *slog.Logger
	locks       ticketLocks
	now         func() time.Time
}

var _ ports.SlaService = (*EscalationService)(nil)

// EscalationOption customizes an EscalationService.
type EscalationOption func(*EscalationService)

// WithClock overrides the evaluation clock.
func WithClock(now func() time.Time) EscalationOption {
	return func(s *EscalationService) { s.now = now }
}

// NewEscalationService wires the orchestrator to its collaborators.
func NewEscalationService(
	matcher *SlaMatcher,
	calendars ports.CalendarRepository,
	tickets ports.TicketGateway,
	notifier ports.Notifier,
	groups ports.GroupDirectory,
	scheduler ports.JobScheduler,
	broadcaster ports.EventBroadcaster,
	tokens TokenSource,
	callback CallbackConfig,
	logger *slog.Logger,
	opts ...EscalationOption,
) *EscalationService {
	s := &EscalationService{
		matcher:     matcher,
		calendars:   calendars,
		tickets:     tickets,
		notifier:    notifier,
		groups:      groups,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		tokens:      tokens,
		callback:    callback,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate runs the first, synchronous evaluation for a caller-supplied
// ticket snapshot, typically on ticket creation or update.
func (s *EscalationService) Calculate(ctx context.Context, snapshot *domain.TicketSnapshot) (*domain.SlaState, error) {
	return s.evaluate(ctx, snapshot, "calculate")
}

// Recheck re-evaluates a ticket from live state when a scheduled check
// fires. The where token names the deadline that triggered the check and is
// carried for logging only; the evaluation is always a full pass. A ticket
// deleted since scheduling drops the check silently.
func (s *EscalationService) Recheck(ctx context.Context, ticketID string, where string) (*domain.SlaState, error) {
	snapshot, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			s.logger.Info("scheduled check for missing ticket dropped",
				"ticket_id", ticketID, "where", where)
			return nil, nil
		}
		return nil, err
	}
	return s.evaluate(ctx, snapshot, where)
}

// firing is a level whose overdue flag transitioned false to true this pass.
type firing struct {
	dim      domain.Dimension
	level    int
	deadline time.Time
	notifyTo []domain.Recipient
	updates  []domain.FieldUpdate
}

// pendingCheck is a future deadline needing a scheduled re-check.
type pendingCheck struct {
	dim   domain.Dimension
	level int
	at    time.Time
}

func (s *EscalationService) evaluate(ctx context.Context, t *domain.TicketSnapshot, where string) (*domain.SlaState, error) {
	unlock := s.locks.lock(t.ID)
	defer unlock()

	policy, err := s.matcher.Match(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("matching policy: %w", err)
	}
	if policy == nil {
		s.logger.Debug("no sla policy matches ticket",
			"ticket_id", t.ID, "tenant", t.Tenant, "module", t.Module)
		return nil, nil
	}

	cal, err := s.calendars.GetWorkingTime(ctx, policy.WorkingTimeID)
	if err != nil {
		return nil, fmt.Errorf("loading working time %s: %w", policy.WorkingTimeID, err)
	}
	holidays, err := s.calendars.ListHolidays(ctx, t.Tenant)
	if err != nil {
		return nil, fmt.Errorf("loading holidays: %w", err)
	}

	prev := t.Sla
	firstEvaluation := prev == nil
	now := s.now().UTC()

	state := &domain.SlaState{PolicyID: policy.ID, EvaluatedAt: now}
	var firings []firing
	var pending []pendingCheck

	if policy.Response != nil {
		ds, f, p := s.evaluateDimension(t, *cal, holidays, policy.IncludeHoliday,
			domain.DimensionResponse, policy.Response, prev.ForDimension(domain.DimensionResponse), now)
		state.Response = ds
		firings = append(firings, f...)
		pending = append(pending, p...)
	}
	if policy.Resolving != nil {
		ds, f, p := s.evaluateDimension(t, *cal, holidays, policy.IncludeHoliday,
			domain.DimensionResolving, policy.Resolving, prev.ForDimension(domain.DimensionResolving), now)
		state.Resolving = ds
		firings = append(firings, f...)
		pending = append(pending, p...)
	}

	if err := s.applyFirings(ctx, t, firings); err != nil {
		return nil, err
	}

	// Replace the ticket's scheduled checks with the new set. The first
	// evaluation has nothing to cancel.
	if !firstEvaluation {
		if _, err := s.scheduler.Cancel(ctx, []string{t.ID}); err != nil {
			return nil, fmt.Errorf("cancelling scheduled checks: %w", err)
		}
	}
	if err := s.scheduleChecks(ctx, t, pending); err != nil {
		return nil, err
	}

	if err := s.tickets.SaveSla(ctx, t.ID, state); err != nil {
		return nil, fmt.Errorf("saving sla state: %w", err)
	}

	s.logger.Info("sla evaluated",
		"ticket_id", t.ID, "policy_id", policy.ID, "where", where,
		"escalations", len(firings), "scheduled_checks", len(pending))
	return state, nil
}

// evaluateDimension computes the deadline and overdue flag for the base
// assurance and every configured level in a single pass, collecting the
// levels that newly became overdue and the future checks still needed.
func (s *EscalationService) evaluateDimension(
	t *domain.TicketSnapshot,
	cal domain.WorkingTime,
	holidays []domain.Holiday,
	includeHoliday bool,
	dim domain.Dimension,
	a *domain.Assurance,
	prev *domain.DimensionState,
	now time.Time,
) (*domain.DimensionState, []firing, []pendingCheck) {
	n := 1 + len(a.Levels)
	ds := &domain.DimensionState{Levels: make([]domain.LevelState, n)}
	var firings []firing
	var pending []pendingCheck

	var elapsed time.Duration
	if dim == domain.DimensionResolving {
		elapsed = s.countedElapsed(t, cal, holidays, includeHoliday, now)
	}

	for i := 0; i < n; i++ {
		limit := a.LevelLimit(i)
		deadline := worktime.ProjectDeadline(cal, holidays, includeHoliday, t.CreatedAt, limit)

		var overdue, settled bool
		switch dim {
		case domain.DimensionResponse:
			overdue, settled = responseOutcome(t, a, deadline, now)
		case domain.DimensionResolving:
			overdue = elapsed > limit
			settled = t.ResolvedAt != nil
		}
		ds.Levels[i] = domain.LevelState{Deadline: deadline, Overdue: overdue}

		if overdue && !prev.LevelOverdue(i) {
			f := firing{dim: dim, level: i, deadline: deadline}
			if i == 0 {
				f.notifyTo = a.NotifyTo
			} else {
				f.notifyTo = a.Levels[i-1].NotifyTo
				f.updates = a.Levels[i-1].UpdateFields
			}
			firings = append(firings, f)
		}

		if overdue || settled {
			continue
		}
		at := deadline
		if dim == domain.DimensionResolving && elapsed > 0 {
			// Paused time pushes the real deadline past the projection from
			// creation; project the remaining budget from now instead.
			at = worktime.ProjectDeadline(cal, holidays, includeHoliday, now, limit-elapsed)
		}
		if at.After(now) {
			pending = append(pending, pendingCheck{dim: dim, level: i, at: at})
		}
	}
	return ds, firings, pending
}

// responseOutcome reports whether a response deadline is overdue and whether
// the assurance is settled (qualifying event already happened in time).
func responseOutcome(t *domain.TicketSnapshot, a *domain.Assurance, deadline, now time.Time) (overdue, settled bool) {
	var eventAt *time.Time
	switch a.DetermineBy {
	case domain.DetermineByFirstResponse:
		eventAt = t.FirstPublicCommentAt
	default:
		eventAt = t.FirstInProgressAt()
	}

	if eventAt == nil {
		return now.After(deadline), false
	}
	if eventAt.After(deadline) {
		return true, false
	}
	return false, true
}

// countedElapsed sums the working time the ticket spent in statuses that
// count toward resolution, walking the status log up to resolution or now.
// Statuses unknown to the snapshot metadata count by default.
func (s *EscalationService) countedElapsed(
	t *domain.TicketSnapshot,
	cal domain.WorkingTime,
	holidays []domain.Holiday,
	includeHoliday bool,
	now time.Time,
) time.Duration {
	end := now
	if t.ResolvedAt != nil && t.ResolvedAt.Before(end) {
		end = *t.ResolvedAt
	}

	counts := func(status string) bool {
		info, known := t.StatusNamed(status)
		return !known || info.CountTime
	}

	current := t.Status
	if len(t.StatusLog) > 0 {
		current = t.StatusLog[0].From
	}

	var total time.Duration
	segStart := t.CreatedAt
	for _, change := range t.StatusLog {
		if change.At.After(end) {
			break
		}
		if counts(current) && change.At.After(segStart) {
			total += worktime.ElapsedWorkingTime(cal, holidays, includeHoliday, segStart, change.At)
		}
		current = change.To
		segStart = change.At
	}
	if counts(current) && end.After(segStart) {
		total += worktime.ElapsedWorkingTime(cal, holidays, includeHoliday, segStart, end)
	}
	return total
}

// applyFirings performs the side effects of newly overdue levels in deadline
// order: notifications, ticket field updates, and dashboard events. Upstream
// failures abort the evaluation; already performed effects are not rolled
// back, and the stored flags keep them from repeating.
func (s *EscalationService) applyFirings(ctx context.Context, t *domain.TicketSnapshot, firings []firing) error {
	for _, f := range firings {
		recipients, err := s.resolveRecipients(ctx, t.Tenant, f.notifyTo)
		if err != nil {
			return fmt.Errorf("resolving recipients for %s level %d: %w", f.dim, f.level, err)
		}
		if len(recipients) > 0 {
			params := ports.NotificationParams{
				Tenant:       t.Tenant,
				TicketID:     t.ID,
				TemplateCode: templateCode(f.dim, f.level),
				Recipients:   recipients,
				Payload: map[string]string{
					"ticketId": t.ID,
					"deadline": f.deadline.Format(time.RFC3339),
				},
			}
			if err := s.notifier.Notify(ctx, params); err != nil {
				return fmt.Errorf("notifying %s level %d: %w", f.dim, f.level, err)
			}
		}

		if len(f.updates) > 0 {
			if err := s.tickets.UpdateFields(ctx, t.ID, f.updates); err != nil {
				return fmt.Errorf("updating ticket fields for %s level %d: %w", f.dim, f.level, err)
			}
		}

		event := domain.Event{
			Type:      eventType(f.level),
			Tenant:    t.Tenant,
			TicketID:  t.ID,
			Dimension: f.dim,
			Level:     f.level,
			Deadline:  f.deadline,
			At:        s.now().UTC(),
		}
		if err := s.broadcaster.Broadcast(event); err != nil {
			// Dashboards are best effort.
			s.logger.Warn("broadcasting sla event failed", "ticket_id", t.ID, "error", err)
		}
	}
	return nil
}

func (s *EscalationService) resolveRecipients(ctx context.Context, tenant string, targets []domain.Recipient) ([]string, error) {
	var out []string
	for _, r := range targets {
		switch r.Type {
		case domain.RecipientGroup:
			members, err := s.groups.ResolveGroup(ctx, tenant, r.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, members...)
		default:
			out = append(out, r.ID)
		}
	}
	return out, nil
}

// scheduleChecks submits one one-time job per future deadline, tagged with
// the ticket id so the next evaluation can cancel the whole set.
func (s *EscalationService) scheduleChecks(ctx context.Context, t *domain.TicketSnapshot, pending []pendingCheck) error {
	if len(pending) == 0 {
		return nil
	}

	token, err := s.tokens.ServiceToken()
	if err != nil {
		return fmt.Errorf("minting service token: %w", err)
	}

	specs := make([]ports.ScheduleJobParams, 0, len(pending))
	for _, p := range pending {
		body, err := json.Marshal(checkRequest{
			TicketID: t.ID,
			Where:    fmt.Sprintf("%s:%d", p.dim, p.level),
		})
		if err != nil {
			return fmt.Errorf("encoding check request: %w", err)
		}
		at := p.at
		specs = append(specs, ports.ScheduleJobParams{
			Tags: []string{t.ID},
			Type: domain.JobOneTime,
			ExecutionTime: &at,
			Execution: domain.Execution{
				Type: domain.ExecHTTPRequest,
				HTTPRequest: domain.HTTPRequestSpec{
					URL:    s.callback.URL,
					Method: "POST",
					Headers: []domain.NameValue{
						{Name: "Content-Type", Value: "application/json"},
						{Name: "Authorization", Value: "Bearer " + token},
					},
					Body: body,
				},
			},
		})
	}

	if _, err := s.scheduler.Schedule(ctx, specs); err != nil {
		return fmt.Errorf("scheduling deadline checks: %w", err)
	}
	return nil
}

func templateCode(dim domain.Dimension, level int) string {
	if level == 0 {
		return fmt.Sprintf("SLA_%s_OVERDUE", upper(dim))
	}
	return fmt.Sprintf("SLA_%s_ESCALATION_%d", upper(dim), level)
}

func eventType(level int) domain.EventType {
	if level == 0 {
		return domain.EventDeadlineMissed
	}
	return domain.EventEscalated
}

func upper(dim domain.Dimension) string {
	if dim == domain.DimensionResponse {
		return "RESPONSE"
	}
	return "RESOLVING"
}

// ticketLocks serializes evaluations per ticket id.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	sync.Mutex
	refs int
}

func (l *ticketLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*ticketLock)
	}
	e, ok := l.locks[key]
	if !ok {
		e = &ticketLock{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
