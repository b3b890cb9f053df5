package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lorrc/sla-engine/internal/adapters/primary/validation"
	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// PolicyHandler handles the admin endpoints for policies, calendars and holidays
type PolicyHandler struct {
	policyService ports.PolicyService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policyService ports.PolicyService, errorHandler *ErrorHandler, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{
		policyService: policyService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "policy"),
	}
}

// RegisterRoutes sets up the routing for the admin endpoints.
func (h *PolicyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Get("/", h.HandleListPolicies)
		r.Post("/", h.HandleCreatePolicy)
		r.Route("/{policyID}", func(r chi.Router) {
			r.Get("/", h.HandleGetPolicy)
			r.Put("/", h.HandleUpdatePolicy)
			r.Delete("/", h.HandleDeletePolicy)
		})
	})
	r.Post("/working-times", h.HandleCreateWorkingTime)
	r.Post("/holidays", h.HandleCreateHoliday)
}

// HandleCreatePolicy stores a new SLA policy.
func (h *PolicyHandler) HandleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := validation.DecodeAndValidate[domain.SlaPolicy](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	created, err := h.policyService.CreatePolicy(r.Context(), policy)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, created)
}

// HandleGetPolicy returns one policy by id.
func (h *PolicyHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := h.policyID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	policy, err := h.policyService.GetPolicy(r.Context(), id)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, policy)
}

// HandleUpdatePolicy replaces a policy.
func (h *PolicyHandler) HandleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := h.policyID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	policy, err := validation.DecodeAndValidate[domain.SlaPolicy](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	policy.ID = id

	updated, err := h.policyService.UpdatePolicy(r.Context(), policy)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, updated)
}

// HandleDeletePolicy removes a policy.
func (h *PolicyHandler) HandleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := h.policyID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.policyService.DeletePolicy(r.Context(), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleListPolicies returns the policies of one tenant and module, in
// matching order.
func (h *PolicyHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	module := r.URL.Query().Get("module")

	v := validation.NewValidator()
	v.Required("tenant", tenant)
	v.Required("module", module)
	v.OneOf("module", module, []string{string(domain.ModuleRequest), string(domain.ModuleIncident)})
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	policies, err := h.policyService.ListPolicies(r.Context(), tenant, domain.Module(module))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, policies)
}

// CreateWorkingTimeRequest defines the expected JSON body for creating a calendar.
type CreateWorkingTimeRequest struct {
	Type string                `json:"type"`
	Days *[7]domain.WorkingDay `json:"days,omitempty"`
}

// Validate validates the create working time request
func (r *CreateWorkingTimeRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("type", r.Type)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleCreateWorkingTime stores a calendar, from a template or custom days.
func (h *PolicyHandler) HandleCreateWorkingTime(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CreateWorkingTimeRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	created, err := h.policyService.CreateWorkingTime(r.Context(), ports.CreateWorkingTimeParams{
		Type: domain.WorkingTimeType(req.Type),
		Days: req.Days,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, created)
}

// HandleCreateHoliday stores a tenant holiday.
func (h *PolicyHandler) HandleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	holiday, err := validation.DecodeAndValidate[domain.Holiday](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	v := validation.NewValidator()
	v.Required("tenant", holiday.Tenant)
	v.Custom("start", !holiday.Start.IsZero(), "This field is required")
	v.Custom("end", !holiday.End.IsZero(), "This field is required")
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	created, err := h.policyService.CreateHoliday(r.Context(), holiday)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, created)
}

func (h *PolicyHandler) policyID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "policyID"))
	if err != nil {
		return uuid.Nil, apperrors.NewBadRequestError(err, "Invalid policy id")
	}
	return id, nil
}
