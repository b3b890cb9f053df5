package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// PolicyAdminService is the admin surface for policies, calendars and
// holidays. All structural invariants are enforced here at write time, so
// evaluation can trust stored data.
type PolicyAdminService struct {
	policies  ports.PolicyRepository
	calendars ports.CalendarRepository
	logger    *slog.Logger
}

var _ ports.PolicyService = (*PolicyAdminService)(nil)

// NewPolicyAdminService creates the admin service over the policy and
// calendar stores.
func NewPolicyAdminService(policies ports.PolicyRepository, calendars ports.CalendarRepository, logger *slog.Logger) *PolicyAdminService {
	return &PolicyAdminService{policies: policies, calendars: calendars, logger: logger}
}

func (s *PolicyAdminService) CreatePolicy(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPolicy, err)
	}
	if _, err := s.calendars.GetWorkingTime(ctx, policy.WorkingTimeID); err != nil {
		return nil, fmt.Errorf("resolving working time %s: %w", policy.WorkingTimeID, err)
	}
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}

	created, err := s.policies.Create(ctx, policy)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sla policy created",
		"policy_id", created.ID, "tenant", created.Tenant, "module", created.Module, "order", created.Order)
	return created, nil
}

func (s *PolicyAdminService) GetPolicy(ctx context.Context, id uuid.UUID) (*domain.SlaPolicy, error) {
	return s.policies.GetByID(ctx, id)
}

func (s *PolicyAdminService) UpdatePolicy(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPolicy, err)
	}
	if _, err := s.calendars.GetWorkingTime(ctx, policy.WorkingTimeID); err != nil {
		return nil, fmt.Errorf("resolving working time %s: %w", policy.WorkingTimeID, err)
	}

	updated, err := s.policies.Update(ctx, policy)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sla policy updated", "policy_id", updated.ID)
	return updated, nil
}

func (s *PolicyAdminService) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	if err := s.policies.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("sla policy deleted", "policy_id", id)
	return nil
}

func (s *PolicyAdminService) ListPolicies(ctx context.Context, tenant string, module domain.Module) ([]*domain.SlaPolicy, error) {
	return s.policies.ListByTenantModule(ctx, tenant, module)
}

// CreateWorkingTime stores a calendar. When Days is nil the standard
// template for the requested type is used.
func (s *PolicyAdminService) CreateWorkingTime(ctx context.Context, params ports.CreateWorkingTimeParams) (*domain.WorkingTime, error) {
	var wt domain.WorkingTime
	if params.Days != nil {
		wt = domain.WorkingTime{ID: uuid.New(), Type: params.Type, Days: *params.Days}
	} else {
		switch params.Type {
		case domain.Standard24x5:
			wt = domain.NewStandard24x5()
		case domain.Standard24x7:
			wt = domain.NewStandard24x7()
		case domain.Standard8x5:
			wt = domain.NewStandard8x5()
		default:
			return nil, fmt.Errorf("%w: unknown working time type %q", apperrors.ErrInvalidCalendar, params.Type)
		}
	}

	if err := wt.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCalendar, err)
	}
	return s.calendars.CreateWorkingTime(ctx, &wt)
}

func (s *PolicyAdminService) CreateHoliday(ctx context.Context, h *domain.Holiday) (*domain.Holiday, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCalendar, err)
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}

	created, err := s.calendars.CreateHoliday(ctx, h)
	if err != nil {
		return nil, err
	}
	s.logger.Info("holiday created",
		"holiday_id", created.ID, "tenant", created.Tenant, "name", created.Name)
	return created, nil
}
