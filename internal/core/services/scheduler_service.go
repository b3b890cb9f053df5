package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// SchedulerConfig tunes the sweep loop. The arm window must exceed the sweep
// interval so no job's execution time can slip between two sweeps unarmed.
type SchedulerConfig struct {
	SweepInterval time.Duration
	ArmWindow     time.Duration
}

// SchedulerService is the generic job scheduler: the job table is the source
// of truth, and a periodic sweep arms in-process timers for jobs due within
// the arm window. Timers fire the stored HTTP callback via the executor.
type SchedulerService struct {
	jobs     ports.JobRepository
	executor ports.JobExecutor
	logger   *slog.Logger
	cfg      SchedulerConfig

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer

	kick chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

var _ ports.JobScheduler = (*SchedulerService)(nil)

// NewSchedulerService creates a scheduler over the given repository and
// executor. Zero config values fall back to a one minute sweep with a two
// minute arm window.
func NewSchedulerService(jobs ports.JobRepository, executor ports.JobExecutor, logger *slog.Logger, cfg SchedulerConfig) *SchedulerService {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.ArmWindow <= cfg.SweepInterval {
		cfg.ArmWindow = 2 * cfg.SweepInterval
	}
	return &SchedulerService{
		jobs:     jobs,
		executor: executor,
		logger:   logger,
		cfg:      cfg,
		timers:   make(map[uuid.UUID]*time.Timer),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Schedule validates and persists a batch of jobs atomically: either every
// spec is accepted or none is. Newly created jobs start PENDING; a sweep is
// kicked immediately so near-term jobs do not wait a full interval.
func (s *SchedulerService) Schedule(ctx context.Context, specs []ports.ScheduleJobParams) (int, error) {
	if len(specs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	jobs := make([]*domain.Job, 0, len(specs))
	for i, spec := range specs {
		job := &domain.Job{
			ID:            uuid.New(),
			Tags:          spec.Tags,
			Type:          spec.Type,
			Expression:    spec.Expression,
			ExecutionTime: spec.ExecutionTime,
			Status:        domain.JobPending,
			Execution:     spec.Execution,
			CreatedAt:     now,
		}
		if job.Type == domain.JobRecurring && job.Expression != "" {
			sched, err := cron.ParseStandard(job.Expression)
			if err != nil {
				return 0, fmt.Errorf("%w: job %d: %v", apperrors.ErrInvalidCronExpression, i, err)
			}
			next := sched.Next(now)
			job.ExecutionTime = &next
		}
		if err := job.Validate(); err != nil {
			return 0, fmt.Errorf("%w: job %d: %v", apperrors.ErrInvalidJobSpec, i, err)
		}
		jobs = append(jobs, job)
	}

	created, err := s.jobs.CreateBatch(ctx, jobs)
	if err != nil {
		return 0, fmt.Errorf("persisting jobs: %w", err)
	}

	s.kickSweep()
	return created, nil
}

// Cancel removes every job carrying any of the given tags, disarming timers
// for jobs already swept. Returns the number of jobs removed; cancelling
// tags that match nothing is not an error.
func (s *SchedulerService) Cancel(ctx context.Context, tags []string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	removed, err := s.jobs.DeleteByTags(ctx, tags)
	if err != nil {
		return 0, fmt.Errorf("deleting jobs by tags: %w", err)
	}

	s.mu.Lock()
	for _, job := range removed {
		if t, ok := s.timers[job.ID]; ok {
			t.Stop()
			delete(s.timers, job.ID)
		}
	}
	s.mu.Unlock()

	return len(removed), nil
}

// Start runs the sweep loop until Stop is called. The first sweep runs
// immediately, re-arming jobs left PENDING or SCHEDULED by a previous
// process; a fire is therefore delayed by a restart, never lost.
func (s *SchedulerService) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop halts the sweep loop and disarms all timers. In-flight callbacks are
// not interrupted.
func (s *SchedulerService) Stop() {
	close(s.stop)
	s.wg.Wait()

	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

func (s *SchedulerService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.Sweep(context.Background())
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.kick:
			s.Sweep(context.Background())
		}
	}
}

// Sweep loads jobs due within the arm window and arms a timer for each one
// not already armed. Jobs whose execution time is already past fire at once.
func (s *SchedulerService) Sweep(ctx context.Context) {
	horizon := time.Now().UTC().Add(s.cfg.ArmWindow)
	due, err := s.jobs.ListDueBefore(ctx, horizon)
	if err != nil {
		s.logger.Error("scheduler sweep failed", "error", err)
		return
	}

	for _, job := range due {
		s.arm(ctx, job)
	}
}

func (s *SchedulerService) arm(ctx context.Context, job *domain.Job) {
	if job.ExecutionTime == nil {
		s.logger.Warn("job without execution time skipped", "job_id", job.ID)
		return
	}

	s.mu.Lock()
	if _, armed := s.timers[job.ID]; armed {
		s.mu.Unlock()
		return
	}
	j := *job
	delay := time.Until(*job.ExecutionTime)
	if delay < 0 {
		delay = 0
	}
	s.timers[job.ID] = time.AfterFunc(delay, func() { s.fire(&j) })
	s.mu.Unlock()

	if job.Status != domain.JobScheduled {
		if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobScheduled); err != nil {
			s.logger.Error("marking job scheduled failed", "job_id", job.ID, "error", err)
		}
	}
}

// fire executes the stored callback and settles the row: one-time jobs are
// deleted, recurring jobs are rescheduled to the cron occurrence strictly
// after the prior execution time. Execution runs outside the timer lock.
func (s *SchedulerService) fire(job *domain.Job) {
	s.mu.Lock()
	if _, armed := s.timers[job.ID]; !armed {
		// Cancelled between timer expiry and acquiring the lock.
		s.mu.Unlock()
		return
	}
	delete(s.timers, job.ID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if job.Execution.Type == domain.ExecHTTPRequest {
		if err := s.executor.Execute(ctx, job.Execution.HTTPRequest); err != nil {
			// Fire-and-forget: failures are logged, never retried.
			s.logger.Error("job callback failed",
				"job_id", job.ID, "url", job.Execution.HTTPRequest.URL, "error", err)
		}
	}

	switch job.Type {
	case domain.JobOneTime:
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			s.logger.Error("deleting fired job failed", "job_id", job.ID, "error", err)
		}
	case domain.JobRecurring:
		s.reschedule(ctx, job)
	}
}

func (s *SchedulerService) reschedule(ctx context.Context, job *domain.Job) {
	sched, err := cron.ParseStandard(job.Expression)
	if err != nil {
		// Validated at Schedule time; a parse failure here means the stored
		// row was tampered with. Drop it rather than loop on it.
		s.logger.Error("stored cron expression unparseable, deleting job",
			"job_id", job.ID, "expression", job.Expression, "error", err)
		if derr := s.jobs.Delete(ctx, job.ID); derr != nil {
			s.logger.Error("deleting corrupt job failed", "job_id", job.ID, "error", derr)
		}
		return
	}

	prior := time.Now().UTC()
	if job.ExecutionTime != nil {
		prior = *job.ExecutionTime
	}
	next := sched.Next(prior)
	if err := s.jobs.Reschedule(ctx, job.ID, next, domain.JobPending); err != nil {
		s.logger.Error("rescheduling recurring job failed", "job_id", job.ID, "error", err)
	}
}

func (s *SchedulerService) kickSweep() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}
