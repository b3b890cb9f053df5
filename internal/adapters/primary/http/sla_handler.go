package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sla-engine/internal/adapters/primary/validation"
	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// SlaHandler handles HTTP requests for SLA evaluation
type SlaHandler struct {
	slaService   ports.SlaService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSlaHandler creates a new SLA handler
func NewSlaHandler(slaService ports.SlaService, errorHandler *ErrorHandler, logger *slog.Logger) *SlaHandler {
	return &SlaHandler{
		slaService:   slaService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "sla"),
	}
}

// RegisterRoutes sets up the routing for SLA evaluation endpoints.
func (h *SlaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/calculate", h.HandleCalculate)
	r.Post("/check", h.HandleCheck)
}

// CalculateRequest carries the ticket snapshot to evaluate.
type CalculateRequest struct {
	Ticket domain.TicketSnapshot `json:"ticket"`
}

// Validate validates the calculate request
func (r *CalculateRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("ticket.id", r.Ticket.ID)
	v.Required("ticket.tenant", r.Ticket.Tenant)
	v.OneOf("ticket.module", string(r.Ticket.Module),
		[]string{string(domain.ModuleRequest), string(domain.ModuleIncident)})
	v.Custom("ticket.createdAt", !r.Ticket.CreatedAt.IsZero(), "This field is required")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CalculateResponse wraps the evaluation outcome. Matched is false when no
// policy applies, in which case Sla is null.
type CalculateResponse struct {
	Matched bool             `json:"matched"`
	Sla     *domain.SlaState `json:"sla,omitempty"`
}

// HandleCalculate runs the synchronous evaluation for a ticket snapshot.
func (h *SlaHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CalculateRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	state, err := h.slaService.Calculate(r.Context(), &req.Ticket)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, CalculateResponse{Matched: state != nil, Sla: state})
}

// CheckRequest is the body of a scheduled deadline check callback.
type CheckRequest struct {
	TicketID string `json:"ticketId"`
	Where    string `json:"where"`
}

// Validate validates the check request
func (r *CheckRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("ticketId", r.TicketID)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleCheck re-evaluates a ticket when a scheduled deadline check fires.
// The ticket may be gone by now; that is a success, not an error.
func (h *SlaHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CheckRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	state, err := h.slaService.Recheck(r.Context(), req.TicketID, req.Where)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, CalculateResponse{Matched: state != nil, Sla: state})
}
