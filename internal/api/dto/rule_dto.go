package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// RuleRequest creates or replaces a rule. Omitted condition fields match
// any ticket.
type RuleRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	IsActive  *bool           `json:"is_active"`
	Condition RuleConditionIO `json:"condition"`
	Action    RuleActionIO    `json:"action"`
}

// RuleConditionIO is the wire form of domain.RuleCondition.
type RuleConditionIO struct {
	Priority  *domain.TicketPriority `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Category  *domain.TicketCategory `json:"category,omitempty" validate:"omitempty,oneof=TECHNICAL HARDWARE SOFTWARE NETWORK ACCESS BILLING GENERAL"`
	SLAStatus *domain.SLAStatus      `json:"sla_status,omitempty" validate:"omitempty,oneof=ON_TRACK AT_RISK BREACHED"`
}

// RuleActionIO is the wire form of domain.RuleAction.
type RuleActionIO struct {
	AssignToUserID *string                `json:"assign_to_user_id,omitempty"`
	TargetGroupID  *string                `json:"target_group_id,omitempty"`
	NewPriority    *domain.TicketPriority `json:"new_priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Note           string                 `json:"note,omitempty" validate:"max=1000"`
}

// ReorderRulesRequest lists every rule id in the desired order.
type ReorderRulesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// RuleResponse representation.
type RuleResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	IsActive  bool            `json:"is_active"`
	Position  int             `json:"position"`
	Condition RuleConditionIO `json:"condition"`
	Action    RuleActionIO    `json:"action"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
