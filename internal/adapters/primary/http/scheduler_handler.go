package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sla-engine/internal/adapters/primary/validation"
	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// SchedulerHandler handles HTTP requests for the generic job scheduler
type SchedulerHandler struct {
	scheduler    ports.JobScheduler
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler ports.JobScheduler, errorHandler *ErrorHandler, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler:    scheduler,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "scheduler"),
	}
}

// RegisterRoutes sets up the routing for job scheduling endpoints.
func (h *SchedulerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/schedule", h.HandleSchedule)
	r.Post("/cancel", h.HandleCancel)
}

// JobSpec is one job in a schedule request.
type JobSpec struct {
	Tags          []string         `json:"tags,omitempty"`
	Type          string           `json:"type"`
	Expression    string           `json:"expression,omitempty"`
	ExecutionTime *time.Time       `json:"executionTime,omitempty"`
	Execution     domain.Execution `json:"execution"`
}

// ScheduleJobsRequest defines the expected JSON body for scheduling jobs.
// The batch is atomic: one invalid spec rejects the whole request.
type ScheduleJobsRequest struct {
	Jobs []JobSpec `json:"jobs"`
}

// Validate validates the schedule request
func (r *ScheduleJobsRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("jobs", len(r.Jobs) > 0, "At least one job is required")
	for _, j := range r.Jobs {
		v.OneOf("jobs.type", j.Type,
			[]string{string(domain.JobOneTime), string(domain.JobRecurring)})
		if j.Type == string(domain.JobOneTime) {
			v.NotNil("jobs.executionTime", j.ExecutionTime)
		}
		if j.Type == string(domain.JobRecurring) {
			v.Required("jobs.expression", j.Expression)
		}
		v.Required("jobs.execution.httpRequest.url", j.Execution.HTTPRequest.URL)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ScheduleJobsResponse reports how many jobs were stored.
type ScheduleJobsResponse struct {
	Scheduled int `json:"scheduled"`
}

// HandleSchedule stores a batch of jobs.
func (h *SchedulerHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[ScheduleJobsRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	specs := make([]ports.ScheduleJobParams, 0, len(req.Jobs))
	for _, j := range req.Jobs {
		specs = append(specs, ports.ScheduleJobParams{
			Tags:          j.Tags,
			Type:          domain.JobType(j.Type),
			Expression:    j.Expression,
			ExecutionTime: j.ExecutionTime,
			Execution:     j.Execution,
		})
	}

	created, err := h.scheduler.Schedule(r.Context(), specs)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, ScheduleJobsResponse{Scheduled: created})
}

// CancelJobsRequest defines the expected JSON body for cancelling jobs.
type CancelJobsRequest struct {
	Tags []string `json:"tags"`
}

// Validate validates the cancel request
func (r *CancelJobsRequest) Validate() error {
	v := validation.NewValidator()
	v.Custom("tags", len(r.Tags) > 0, "At least one tag is required")
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CancelJobsResponse reports how many jobs were removed.
type CancelJobsResponse struct {
	Cancelled int `json:"cancelled"`
}

// HandleCancel removes every job matching any of the given tags. Tags that
// match nothing still return 200 with a zero count.
func (h *SchedulerHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CancelJobsRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	removed, err := h.scheduler.Cancel(r.Context(), req.Tags)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, CancelJobsResponse{Cancelled: removed})
}
