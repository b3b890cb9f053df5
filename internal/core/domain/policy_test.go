package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPolicy() *SlaPolicy {
	return &SlaPolicy{
		ID:            uuid.New(),
		Tenant:        "acme",
		Module:        ModuleIncident,
		Order:         1,
		WorkingTimeID: uuid.New(),
		MatchingRule: &MatchingRule{
			Type: MatchAll,
			Conditions: []MatchCondition{
				{Field: "priority", Values: []string{"critical", "high"}},
			},
		},
		Response: &Assurance{
			DetermineBy: DetermineByStatus,
			TimeLimit:   60,
			Levels: []LevelEscalation{
				{Type: AfterOverdue, AmountTime: 30},
			},
		},
		Resolving: &Assurance{TimeLimit: 480},
	}
}

func TestMatchingRule(t *testing.T) {
	rule := MatchingRule{
		Type: MatchAll,
		Conditions: []MatchCondition{
			{Field: "priority", Values: []string{"critical", "high"}},
			{Field: "category", Values: []string{"network"}},
		},
	}

	t.Run("AND requires every condition", func(t *testing.T) {
		assert.True(t, rule.Matches(map[string]string{"priority": "high", "category": "network"}))
		assert.False(t, rule.Matches(map[string]string{"priority": "high", "category": "hardware"}))
		assert.False(t, rule.Matches(map[string]string{"priority": "high"}))
	})

	t.Run("OR requires any condition", func(t *testing.T) {
		anyRule := rule
		anyRule.Type = MatchAny
		assert.True(t, anyRule.Matches(map[string]string{"priority": "critical"}))
		assert.True(t, anyRule.Matches(map[string]string{"category": "network"}))
		assert.False(t, anyRule.Matches(map[string]string{"priority": "low", "category": "hardware"}))
	})

	t.Run("no conditions never matches", func(t *testing.T) {
		empty := MatchingRule{Type: MatchAll}
		assert.False(t, empty.Matches(map[string]string{"priority": "critical"}))
	})
}

func TestPolicyMatches(t *testing.T) {
	policy := validPolicy()
	ticket := &TicketSnapshot{
		ID:     "T-1",
		Tenant: "acme",
		Module: ModuleIncident,
		Fields: map[string]string{"priority": "critical"},
	}

	assert.True(t, policy.Matches(ticket))

	otherTenant := *ticket
	otherTenant.Tenant = "globex"
	assert.False(t, policy.Matches(&otherTenant))

	otherModule := *ticket
	otherModule.Module = ModuleRequest
	assert.False(t, policy.Matches(&otherModule))

	ruleless := validPolicy()
	ruleless.MatchingRule = nil
	assert.False(t, ruleless.Matches(ticket))
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, validPolicy().Validate())

	tests := []struct {
		name    string
		mutate  func(*SlaPolicy)
		wantErr error
	}{
		{
			name:    "missing tenant",
			mutate:  func(p *SlaPolicy) { p.Tenant = "" },
			wantErr: ErrTenantRequired,
		},
		{
			name:    "unknown module",
			mutate:  func(p *SlaPolicy) { p.Module = "CHANGE" },
			wantErr: ErrInvalidModule,
		},
		{
			name:    "missing working time",
			mutate:  func(p *SlaPolicy) { p.WorkingTimeID = uuid.Nil },
			wantErr: ErrWorkingTimeRequired,
		},
		{
			name:    "zero time limit",
			mutate:  func(p *SlaPolicy) { p.Response.TimeLimit = 0 },
			wantErr: ErrNegativeTimeLimit,
		},
		{
			name: "too many response levels",
			mutate: func(p *SlaPolicy) {
				p.Response.Levels = []LevelEscalation{
					{Type: AfterOverdue, AmountTime: 10},
					{Type: AfterOverdue, AmountTime: 20},
					{Type: AfterOverdue, AmountTime: 30},
				}
			},
			wantErr: ErrTooManyLevels,
		},
		{
			name: "unknown escalation type",
			mutate: func(p *SlaPolicy) {
				p.Response.Levels = []LevelEscalation{{Type: "AT_OVERDUE", AmountTime: 10}}
			},
			wantErr: ErrInvalidEscalationType,
		},
		{
			name: "levels out of order",
			mutate: func(p *SlaPolicy) {
				p.Response.Levels = []LevelEscalation{
					{Type: AfterOverdue, AmountTime: 30},
					{Type: AfterOverdue, AmountTime: 15},
				}
			},
			wantErr: ErrLevelOrderViolation,
		},
		{
			name: "level before creation",
			mutate: func(p *SlaPolicy) {
				p.Response.Levels = []LevelEscalation{{Type: BeforeOverdue, AmountTime: 90}}
			},
			wantErr: ErrLevelOrderViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := validPolicy()
			tt.mutate(policy)
			assert.ErrorIs(t, policy.Validate(), tt.wantErr)
		})
	}
}

func TestAssuranceLevelLimit(t *testing.T) {
	a := Assurance{
		TimeLimit: 60,
		Levels: []LevelEscalation{
			{Type: AfterOverdue, AmountTime: 30},
			{Type: AfterOverdue, AmountTime: 45},
		},
	}

	assert.Equal(t, 60*time.Minute, a.LevelLimit(0))
	assert.Equal(t, 90*time.Minute, a.LevelLimit(1))
	assert.Equal(t, 105*time.Minute, a.LevelLimit(2))

	warning := Assurance{
		TimeLimit: 60,
		Levels:    []LevelEscalation{{Type: BeforeOverdue, AmountTime: 15}},
	}
	assert.Equal(t, 45*time.Minute, warning.LevelLimit(1))
}
