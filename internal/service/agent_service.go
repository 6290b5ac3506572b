package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-escalation/internal/auth"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// AgentService manages the agent roster used for assignment and escalation.
type AgentService struct {
	agents     repository.AgentRepository
	bcryptCost int
}

// AgentCreateInput describes a new agent. ID is optional; rule files may
// reference agents by a stable id chosen here.
type AgentCreateInput struct {
	ID               string
	Name             string
	Email            string
	Password         string
	Role             domain.AgentRole
	Skills           []domain.TicketCategory
	EfficiencyRating int
	AssetFamiliarity map[string]int
}

// AgentListFilter narrows agent listings.
type AgentListFilter struct {
	Role   *domain.AgentRole
	Active *bool
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.AgentRepository, bcryptCost int) *AgentService {
	return &AgentService{agents: agents, bcryptCost: bcryptCost}
}

// CreateAgent adds an agent account.
func (s *AgentService) CreateAgent(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	if err := validateAgent(input); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if existing, err := s.agents.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("agent email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ToDomainError(err)
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	} else if _, err := s.agents.Get(ctx, id); err == nil {
		return nil, apperrors.NewConflict("agent id already exists", map[string]any{"id": id})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("invalid agent", map[string]any{"password": "at most 72 bytes"})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	familiarity := input.AssetFamiliarity
	if familiarity == nil {
		familiarity = map[string]int{}
	}
	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:               id,
		Name:             strings.TrimSpace(input.Name),
		Email:            email,
		PasswordHash:     hash,
		Role:             input.Role,
		Active:           true,
		Skills:           input.Skills,
		EfficiencyRating: input.EfficiencyRating,
		AssetFamiliarity: familiarity,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return agent, nil
}

// ListAgents lists agents.
func (s *AgentService) ListAgents(ctx context.Context, filter AgentListFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, repository.AgentFilter{Role: filter.Role, Active: filter.Active})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return agents, nil
}

// SetActive toggles an agent's active flag.
func (s *AgentService) SetActive(ctx context.Context, agentID string, active bool) (*domain.Agent, error) {
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, mapRepoError(err, "agent", agentID)
	}
	agent.Active = active
	agent.UpdatedAt = time.Now().UTC()
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, mapRepoError(err, "agent", agentID)
	}
	return agent, nil
}

func validateAgent(input AgentCreateInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if !strings.Contains(input.Email, "@") {
		details["email"] = "invalid email"
	}
	if len(input.Password) < 8 {
		details["password"] = "must be at least 8 characters"
	}
	if !input.Role.Valid() {
		details["role"] = "must be one of AGENT, MANAGER, ADMIN"
	}
	for _, c := range input.Skills {
		if !c.Valid() {
			details["skills"] = "unknown category " + string(c)
		}
	}
	if input.EfficiencyRating < 0 || input.EfficiencyRating > 100 {
		details["efficiency_rating"] = "must be between 0 and 100"
	}
	for model, v := range input.AssetFamiliarity {
		if v < 0 || v > 100 {
			details["asset_familiarity."+model] = "must be between 0 and 100"
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid agent", details)
	}
	return nil
}
