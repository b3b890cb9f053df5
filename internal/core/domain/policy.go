package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for policy validation.
var (
	ErrTenantRequired        = errors.New("tenant is required")
	ErrInvalidModule         = errors.New("module must be REQUEST or INCIDENT")
	ErrWorkingTimeRequired   = errors.New("working time reference is required")
	ErrTooManyLevels         = errors.New("too many escalation levels")
	ErrLevelOrderViolation   = errors.New("escalation level deadline must exceed the previous level")
	ErrInvalidEscalationType = errors.New("escalation type must be BEFORE_OVERDUE or AFTER_OVERDUE")
	ErrNegativeTimeLimit     = errors.New("time limit must be positive")
)

// Module identifies which ticket module a policy applies to.
type Module string

const (
	ModuleRequest  Module = "REQUEST"
	ModuleIncident Module = "INCIDENT"
)

// MatchType combines matching conditions.
type MatchType string

const (
	MatchAll MatchType = "AND"
	MatchAny MatchType = "OR"
)

// MatchCondition holds the allowed values for a single ticket field.
type MatchCondition struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// satisfied reports whether the ticket's field value is one of the allowed values.
func (c MatchCondition) satisfied(fields map[string]string) bool {
	got, ok := fields[c.Field]
	if !ok {
		return false
	}
	for _, v := range c.Values {
		if v == got {
			return true
		}
	}
	return false
}

// MatchingRule is the boolean predicate selecting which tickets a policy covers.
type MatchingRule struct {
	Type       MatchType        `json:"type"`
	Conditions []MatchCondition `json:"conditions"`
}

// Matches evaluates the rule against a ticket's field map.
func (r MatchingRule) Matches(fields map[string]string) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	if r.Type == MatchAny {
		for _, c := range r.Conditions {
			if c.satisfied(fields) {
				return true
			}
		}
		return false
	}
	for _, c := range r.Conditions {
		if !c.satisfied(fields) {
			return false
		}
	}
	return true
}

// DetermineBy selects the qualifying event for response assurance.
type DetermineBy string

const (
	DetermineByStatus        DetermineBy = "CHANGE_STATUS"
	DetermineByFirstResponse DetermineBy = "FIRST_RESPONSE"
)

// EscalationType positions a level relative to the base deadline.
type EscalationType string

const (
	BeforeOverdue EscalationType = "BEFORE_OVERDUE"
	AfterOverdue  EscalationType = "AFTER_OVERDUE"
)

// RecipientType distinguishes direct and group notification targets.
type RecipientType string

const (
	RecipientPerson RecipientType = "PEOPLE"
	RecipientGroup  RecipientType = "GROUP"
)

// Recipient is a notification target for an escalation level.
type Recipient struct {
	Type RecipientType `json:"type"`
	ID   string        `json:"recipient"`
}

// FieldUpdate is a ticket field mutation applied when a level fires.
type FieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// LevelEscalation is a secondary deadline offset from the base assurance.
type LevelEscalation struct {
	Type         EscalationType `json:"type"`
	AmountTime   int            `json:"amountTime"` // minutes
	NotifyTo     []Recipient    `json:"notifyTo,omitempty"`
	UpdateFields []FieldUpdate  `json:"updateFields,omitempty"`
}

// Offset returns the signed working-time offset from the base deadline.
func (l LevelEscalation) Offset() time.Duration {
	d := time.Duration(l.AmountTime) * time.Minute
	if l.Type == BeforeOverdue {
		return -d
	}
	return d
}

// Assurance is one SLA dimension: response or resolving.
type Assurance struct {
	DetermineBy DetermineBy       `json:"determineBy,omitempty"` // response only
	TimeLimit   int               `json:"timeLimit"`             // minutes, working time
	NotifyTo    []Recipient       `json:"notifyTo,omitempty"`
	Levels      []LevelEscalation `json:"levels,omitempty"`
}

// Limit returns the base time limit as a duration of working time.
func (a Assurance) Limit() time.Duration {
	return time.Duration(a.TimeLimit) * time.Minute
}

// LevelLimit returns the effective working-time limit for level n, where
// level 0 is the base deadline and level n (n >= 1) applies Levels[n-1]'s
// offset to the base limit.
func (a Assurance) LevelLimit(n int) time.Duration {
	if n == 0 {
		return a.Limit()
	}
	return a.Limit() + a.Levels[n-1].Offset()
}

// validate enforces the level-count cap and strictly increasing effective
// deadlines across levels.
func (a Assurance) validate(maxLevels int) error {
	if a.TimeLimit <= 0 {
		return ErrNegativeTimeLimit
	}
	if len(a.Levels) > maxLevels {
		return ErrTooManyLevels
	}
	var prev time.Duration
	for i, l := range a.Levels {
		if l.Type != BeforeOverdue && l.Type != AfterOverdue {
			return ErrInvalidEscalationType
		}
		eff := a.LevelLimit(i + 1)
		if eff <= 0 {
			return ErrLevelOrderViolation
		}
		// Levels are strictly ordered among themselves; a BEFORE_OVERDUE
		// first level may still precede the base deadline.
		if i > 0 && eff <= prev {
			return ErrLevelOrderViolation
		}
		prev = eff
	}
	return nil
}

// SlaPolicy binds a matching rule, a working calendar and up to two
// assurances for one tenant and module. Policies are evaluated ascending
// by Order; the first match wins.
type SlaPolicy struct {
	ID             uuid.UUID     `json:"id"`
	Tenant         string        `json:"tenant"`
	Module         Module        `json:"module"`
	Order          int           `json:"order"`
	WorkingTimeID  uuid.UUID     `json:"workingTimeId"`
	IncludeHoliday bool          `json:"includeHoliday"`
	MatchingRule   *MatchingRule `json:"matchingRule,omitempty"`
	Response       *Assurance    `json:"response,omitempty"`
	Resolving      *Assurance    `json:"resolving,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
}

// MaxResponseLevels and MaxResolvingLevels cap escalation depth per dimension.
const (
	MaxResponseLevels  = 2
	MaxResolvingLevels = 4
)

// Matches evaluates the policy's rule against a ticket snapshot.
// A policy without a matching rule never matches.
func (p *SlaPolicy) Matches(t *TicketSnapshot) bool {
	if p.MatchingRule == nil {
		return false
	}
	if p.Tenant != t.Tenant || p.Module != t.Module {
		return false
	}
	return p.MatchingRule.Matches(t.Fields)
}

// Validate enforces all policy invariants. Called at creation/update time;
// evaluation assumes a valid policy.
func (p *SlaPolicy) Validate() error {
	if p.Tenant == "" {
		return ErrTenantRequired
	}
	if p.Module != ModuleRequest && p.Module != ModuleIncident {
		return ErrInvalidModule
	}
	if p.WorkingTimeID == uuid.Nil {
		return ErrWorkingTimeRequired
	}
	if p.Response != nil {
		if err := p.Response.validate(MaxResponseLevels); err != nil {
			return err
		}
	}
	if p.Resolving != nil {
		if err := p.Resolving.validate(MaxResolvingLevels); err != nil {
			return err
		}
	}
	return nil
}
