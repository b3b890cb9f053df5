package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

const uniqueViolationCode = "23505"

// PolicyRepository is the secondary adapter for SLA policy persistence.
type PolicyRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PolicyRepository = (*PolicyRepository)(nil)

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

const createPolicyQuery = `
	INSERT INTO sla_policies
		(id, tenant, module, policy_order, working_time_id, include_holiday,
		 matching_rule, response, resolving, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Create persists a new policy.
func (r *PolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	rule, response, resolving, err := marshalPolicyParts(policy)
	if err != nil {
		return nil, err
	}

	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, createPolicyQuery,
		policy.ID, policy.Tenant, string(policy.Module), policy.Order,
		policy.WorkingTimeID, policy.IncludeHoliday,
		rule, response, resolving, policy.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicatePolicyOrder
		}
		return nil, err
	}
	return policy, nil
}

const getPolicyQuery = `
	SELECT id, tenant, module, policy_order, working_time_id, include_holiday,
	       matching_rule, response, resolving, created_at, updated_at
	FROM sla_policies
	WHERE id = $1
`

// GetByID retrieves a single policy by its ID.
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SlaPolicy, error) {
	row := r.pool.QueryRow(ctx, getPolicyQuery, id)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPolicyNotFound
		}
		return nil, err
	}
	return policy, nil
}

const updatePolicyQuery = `
	UPDATE sla_policies
	SET tenant = $2, module = $3, policy_order = $4, working_time_id = $5,
	    include_holiday = $6, matching_rule = $7, response = $8, resolving = $9,
	    updated_at = $10
	WHERE id = $1
`

// Update persists changes to an existing policy.
func (r *PolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	rule, response, resolving, err := marshalPolicyParts(policy)
	if err != nil {
		return nil, err
	}

	updatedAt := time.Now().UTC()
	policy.UpdatedAt = &updatedAt

	tag, err := r.pool.Exec(ctx, updatePolicyQuery,
		policy.ID, policy.Tenant, string(policy.Module), policy.Order,
		policy.WorkingTimeID, policy.IncludeHoliday,
		rule, response, resolving, updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicatePolicyOrder
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrPolicyNotFound
	}
	return policy, nil
}

// Delete removes a policy by its ID.
func (r *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sla_policies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPolicyNotFound
	}
	return nil
}

const listPoliciesQuery = `
	SELECT id, tenant, module, policy_order, working_time_id, include_holiday,
	       matching_rule, response, resolving, created_at, updated_at
	FROM sla_policies
	WHERE tenant = $1 AND module = $2
	ORDER BY policy_order
`

// ListByTenantModule retrieves every policy for a tenant and module, ordered
// by evaluation priority.
func (r *PolicyRepository) ListByTenantModule(ctx context.Context, tenant string, module domain.Module) ([]*domain.SlaPolicy, error) {
	rows, err := r.pool.Query(ctx, listPoliciesQuery, tenant, string(module))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.SlaPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

func marshalPolicyParts(policy *domain.SlaPolicy) (rule, response, resolving []byte, err error) {
	if policy.MatchingRule != nil {
		if rule, err = json.Marshal(policy.MatchingRule); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal matching rule: %w", err)
		}
	}
	if policy.Response != nil {
		if response, err = json.Marshal(policy.Response); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal response assurance: %w", err)
		}
	}
	if policy.Resolving != nil {
		if resolving, err = json.Marshal(policy.Resolving); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal resolving assurance: %w", err)
		}
	}
	return rule, response, resolving, nil
}

func scanPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var (
		policy    domain.SlaPolicy
		module    string
		rule      []byte
		response  []byte
		resolving []byte
	)
	err := row.Scan(&policy.ID, &policy.Tenant, &module, &policy.Order,
		&policy.WorkingTimeID, &policy.IncludeHoliday,
		&rule, &response, &resolving, &policy.CreatedAt, &policy.UpdatedAt)
	if err != nil {
		return nil, err
	}

	policy.Module = domain.Module(module)
	if len(rule) > 0 {
		policy.MatchingRule = &domain.MatchingRule{}
		if err := json.Unmarshal(rule, policy.MatchingRule); err != nil {
			return nil, fmt.Errorf("unmarshal matching rule for policy %s: %w", policy.ID, err)
		}
	}
	if len(response) > 0 {
		policy.Response = &domain.Assurance{}
		if err := json.Unmarshal(response, policy.Response); err != nil {
			return nil, fmt.Errorf("unmarshal response assurance for policy %s: %w", policy.ID, err)
		}
	}
	if len(resolving) > 0 {
		policy.Resolving = &domain.Assurance{}
		if err := json.Unmarshal(resolving, policy.Resolving); err != nil {
			return nil, fmt.Errorf("unmarshal resolving assurance for policy %s: %w", policy.ID, err)
		}
	}
	return &policy, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
