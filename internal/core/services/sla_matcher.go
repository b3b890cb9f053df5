package services

import (
	"context"

	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// SlaMatcher selects the SLA policy that applies to a ticket.
type SlaMatcher struct {
	policyRepo ports.PolicyRepository
}

// NewSlaMatcher creates a new matcher over the policy store.
func NewSlaMatcher(policyRepo ports.PolicyRepository) *SlaMatcher {
	return &SlaMatcher{policyRepo: policyRepo}
}

// Match returns the first policy, in ascending Order, whose matching rule
// evaluates true against the ticket snapshot. No match is a normal outcome
// and returns (nil, nil); callers must handle "no SLA applies".
func (m *SlaMatcher) Match(ctx context.Context, t *domain.TicketSnapshot) (*domain.SlaPolicy, error) {
	policies, err := m.policyRepo.ListByTenantModule(ctx, t.Tenant, t.Module)
	if err != nil {
		return nil, err
	}

	for _, p := range policies {
		if p.Matches(t) {
			return p, nil
		}
	}
	return nil, nil
}
