package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name" validate:"required,max=120"`
	Email            string                  `json:"email" validate:"required,email"`
	Password         string                  `json:"password" validate:"required,min=8"`
	Role             domain.AgentRole        `json:"role" validate:"required,oneof=AGENT MANAGER ADMIN"`
	Skills           []domain.TicketCategory `json:"skills" validate:"dive,oneof=TECHNICAL HARDWARE SOFTWARE NETWORK ACCESS BILLING GENERAL"`
	EfficiencyRating int                     `json:"efficiency_rating" validate:"min=0,max=100"`
	AssetFamiliarity map[string]int          `json:"asset_familiarity" validate:"dive,min=0,max=100"`
}

// UpdateAgentStatusRequest toggles an agent.
type UpdateAgentStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AgentResponse omits credentials.
type AgentResponse struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Email             string                  `json:"email"`
	Role              domain.AgentRole        `json:"role"`
	Active            bool                    `json:"active"`
	Skills            []domain.TicketCategory `json:"skills"`
	EfficiencyRating  int                     `json:"efficiency_rating"`
	ActiveTicketCount int                     `json:"active_ticket_count"`
	AssetFamiliarity  map[string]int          `json:"asset_familiarity"`
	CreatedAt         time.Time               `json:"created_at"`
}
