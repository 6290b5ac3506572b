package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventTicketMessageAdded     EventType = "ticket_message_added"
	EventTicketEscalated        EventType = "ticket_escalated"
	EventEscalationJobCompleted EventType = "escalation_job_completed"
)

// Event represents a domain event emitted by services. TicketID is empty
// for job level events.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, ticketID, actorID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority  domain.TicketPriority `json:"priority"`
	Category  domain.TicketCategory `json:"category"`
	SLATier   domain.SLATier        `json:"sla_tier"`
	SLATarget time.Time             `json:"sla_target"`
	Title     string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAgentID *string `json:"previous_agent_id,omitempty"`
	AgentID         string  `json:"agent_id"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
	BodyPreview string                   `json:"body_preview"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	RuleID           string                `json:"rule_id"`
	RuleName         string                `json:"rule_name"`
	SLAStatus        domain.SLAStatus      `json:"sla_status"`
	AssignedAgentID  *string               `json:"assigned_agent_id,omitempty"`
	AssignedGroupID  *string               `json:"assigned_group_id,omitempty"`
	Priority         domain.TicketPriority `json:"priority"`
	DanglingAssignee bool                  `json:"dangling_assignee,omitempty"`
}

// EscalationJobCompletedPayload payload.
type EscalationJobCompletedPayload struct {
	Scanned        int           `json:"scanned"`
	EscalatedCount int           `json:"escalated_count"`
	Duration       time.Duration `json:"duration_ns"`
}
