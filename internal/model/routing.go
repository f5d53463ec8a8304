package model

import "time"

// Priority assigned to a routed complaint.
type Priority string

// Priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// RoutingDecision assigns a complaint to a team.
type RoutingDecision struct {
	TeamID        string    `json:"team_id"`
	Team          string    `json:"team"`
	Contact       string    `json:"contact"`
	Channel       string    `json:"channel,omitempty"`
	Priority      Priority  `json:"priority"`
	Justification string    `json:"justification"`
	SLAHours      int       `json:"sla_hours"`
	DecidedAt     time.Time `json:"decided_at"`
}
