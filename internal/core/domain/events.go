package domain

import "time"

// EventType classifies broadcast SLA events.
type EventType string

const (
	// EventDeadlineMissed fires when a base deadline flips to overdue.
	EventDeadlineMissed EventType = "sla.deadline_missed"
	// EventEscalated fires when an escalation level flips to overdue.
	EventEscalated EventType = "sla.escalated"
)

// Event is a real-time notification pushed to connected dashboards when an
// SLA deadline or escalation level fires.
type Event struct {
	Type      EventType `json:"type"`
	Tenant    string    `json:"tenant"`
	TicketID  string    `json:"ticketId"`
	Dimension Dimension `json:"dimension"`
	Level     int       `json:"level"`
	Deadline  time.Time `json:"deadline"`
	At        time.Time `json:"at"`
}
