package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// EscalationRunResponse summarizes a job run.
type EscalationRunResponse struct {
	RanAt          time.Time                `json:"ran_at"`
	ActorID        string                   `json:"actor_id"`
	Scanned        int                      `json:"scanned"`
	EscalatedCount int                      `json:"escalated_count"`
	Escalations    []EscalationItemResponse `json:"escalations"`
}

// EscalationItemResponse describes one escalated ticket.
type EscalationItemResponse struct {
	TicketID         string                `json:"ticket_id"`
	RuleID           string                `json:"rule_id"`
	RuleName         string                `json:"rule_name"`
	SLAStatus        domain.SLAStatus      `json:"sla_status"`
	DanglingAssignee bool                  `json:"dangling_assignee"`
	AssignedAgentID  *string               `json:"assigned_agent_id"`
	AssignedGroupID  *string               `json:"assigned_group_id"`
	Priority         domain.TicketPriority `json:"priority"`
	Message          string                `json:"message"`
}

// AuditLogResponse representation.
type AuditLogResponse struct {
	ID        string               `json:"id"`
	Action    domain.AuditAction   `json:"action"`
	Severity  domain.AuditSeverity `json:"severity"`
	ActorID   string               `json:"actor_id"`
	TicketID  *string              `json:"ticket_id"`
	RuleName  string               `json:"rule_name,omitempty"`
	Details   map[string]any       `json:"details"`
	CreatedAt time.Time            `json:"created_at"`
}
