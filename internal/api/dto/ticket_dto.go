package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=10000"`
	RequesterID string                `json:"requester_id"`
	Priority    domain.TicketPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Category    domain.TicketCategory `json:"category" validate:"required,oneof=TECHNICAL HARDWARE SOFTWARE NETWORK ACCESS BILLING GENERAL"`
	LinkedAsset *AssetRequest         `json:"linked_asset,omitempty" validate:"omitempty"`
}

// AssetRequest links a ticket to an inventory item.
type AssetRequest struct {
	ID        string `json:"id" validate:"required"`
	ModelName string `json:"model_name"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status" validate:"required,oneof=OPEN IN_PROGRESS AWAITING_CUSTOMER RESOLVED CLOSED"`
	Comment string              `json:"comment" validate:"max=2000"`
}

// CreateMessageRequest payload. MessageType defaults to PUBLIC_REPLY.
type CreateMessageRequest struct {
	Body        string                   `json:"body" validate:"required"`
	MessageType domain.TicketMessageType `json:"message_type" validate:"omitempty,oneof=PUBLIC_REPLY INTERNAL_NOTE"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
}

// TicketResponse is the list representation of a ticket. Timestamps are
// given both as RFC 3339 and as epoch milliseconds.
type TicketResponse struct {
	ID                  string                `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	RequesterID         string                `json:"requester_id"`
	Priority            domain.TicketPriority `json:"priority"`
	Category            domain.TicketCategory `json:"category"`
	Status              domain.TicketStatus   `json:"status"`
	SLAStatus           domain.SLAStatus      `json:"sla_status"`
	SLATier             domain.SLATier        `json:"sla_tier"`
	SLATarget           time.Time             `json:"sla_target"`
	SLATargetMs         int64                 `json:"sla_target_ms"`
	DemandFactorApplied float64               `json:"demand_factor_applied"`
	IsEscalated         bool                  `json:"is_escalated"`
	AssignedAgentID     *string               `json:"assigned_agent_id"`
	AssignedGroupID     *string               `json:"assigned_group_id"`
	LinkedAsset         *AssetResponse        `json:"linked_asset,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	CreatedAtMs         int64                 `json:"created_at_ms"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// AssetResponse mirrors AssetRequest.
type AssetResponse struct {
	ID        string `json:"id"`
	ModelName string `json:"model_name"`
}

// TicketDetailResponse adds the message thread.
type TicketDetailResponse struct {
	TicketResponse
	Messages []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	TicketID    string                   `json:"ticket_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	Body        string                   `json:"body"`
	CreatedAt   time.Time                `json:"created_at"`
}

// AgentSuggestionResponse is one ranked candidate.
type AgentSuggestionResponse struct {
	AgentID    string             `json:"agent_id"`
	AgentName  string             `json:"agent_name"`
	TotalScore int                `json:"total_score"`
	Breakdown  ScoreBreakdownBody `json:"breakdown"`
}

// ScoreBreakdownBody itemizes the score.
type ScoreBreakdownBody struct {
	SkillMatch       float64 `json:"skill_match"`
	History          float64 `json:"history"`
	Workload         float64 `json:"workload"`
	AssetFamiliarity float64 `json:"asset_familiarity"`
}
