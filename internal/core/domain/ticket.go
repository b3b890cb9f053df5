package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusInfo carries the SLA-relevant flags of a ticket status, as reported
// by the ticket-owning service. CountTime=false pauses resolving accrual
// while the ticket sits in that status; InProgress marks the status whose
// first entry satisfies a CHANGE_STATUS response assurance.
type StatusInfo struct {
	Name       string `json:"name"`
	CountTime  bool   `json:"countTime"`
	InProgress bool   `json:"inProgress"`
	Resolved   bool   `json:"resolved"`
}

// StatusChange is one entry of a ticket's status activity log.
type StatusChange struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// TicketSnapshot is an immutable read model of a ticket, fetched from the
// ticket collaborator. Evaluations never mutate it; field changes go back
// through the collaborator as explicit updates.
type TicketSnapshot struct {
	ID                   string            `json:"id"`
	Tenant               string            `json:"tenant"`
	Module               Module            `json:"module"`
	Fields               map[string]string `json:"fields"`
	Status               string            `json:"status"`
	Statuses             []StatusInfo      `json:"statuses"`
	CreatedAt            time.Time         `json:"createdAt"`
	ResolvedAt           *time.Time        `json:"resolvedAt,omitempty"`
	FirstPublicCommentAt *time.Time        `json:"firstPublicCommentAt,omitempty"`
	StatusLog            []StatusChange    `json:"statusLog,omitempty"`
	Sla                  *SlaState         `json:"sla,omitempty"`
}

// StatusNamed returns the metadata for a status name, if known.
func (t *TicketSnapshot) StatusNamed(name string) (StatusInfo, bool) {
	for _, s := range t.Statuses {
		if s.Name == name {
			return s, true
		}
	}
	return StatusInfo{}, false
}

// FirstInProgressAt returns the time of the first transition into an
// in-progress status, or nil if it never happened.
func (t *TicketSnapshot) FirstInProgressAt() *time.Time {
	for _, c := range t.StatusLog {
		if s, ok := t.StatusNamed(c.To); ok && s.InProgress {
			at := c.At
			return &at
		}
	}
	return nil
}

// Dimension names the two SLA assurance dimensions.
type Dimension string

const (
	DimensionResponse  Dimension = "response"
	DimensionResolving Dimension = "resolving"
)

// LevelState is the stored outcome for one deadline (base or escalation).
type LevelState struct {
	Deadline time.Time `json:"deadline"`
	Overdue  bool      `json:"isOverdue"`
}

// DimensionState is the stored outcome for one dimension: the base deadline
// at index 0 of Levels followed by one entry per configured escalation level.
type DimensionState struct {
	Levels []LevelState `json:"levels"`
}

// Overdue reports whether the base deadline of the dimension is overdue.
func (d *DimensionState) Overdue() bool {
	return d != nil && len(d.Levels) > 0 && d.Levels[0].Overdue
}

// LevelOverdue reports the stored flag for level n, false when absent.
func (d *DimensionState) LevelOverdue(n int) bool {
	if d == nil || n >= len(d.Levels) {
		return false
	}
	return d.Levels[n].Overdue
}

// SlaState is the SLA sub-document persisted on the ticket between
// evaluations. The stored overdue flags guard exactly-once side effects.
type SlaState struct {
	PolicyID    uuid.UUID       `json:"policyId"`
	Response    *DimensionState `json:"response,omitempty"`
	Resolving   *DimensionState `json:"resolving,omitempty"`
	EvaluatedAt time.Time       `json:"evaluatedAt"`
}

// ForDimension returns the stored state for a dimension, nil when absent.
func (s *SlaState) ForDimension(dim Dimension) *DimensionState {
	if s == nil {
		return nil
	}
	if dim == DimensionResponse {
		return s.Response
	}
	return s.Resolving
}
