package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-escalation/internal/api/dto"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// AgentsHandler manages the agent roster.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// List GET /agents.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	var filter service.AgentListFilter
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		r := domain.AgentRole(strings.ToUpper(role))
		if !r.Valid() {
			return apperrors.NewValidationError("invalid query parameter", map[string]any{"role": role})
		}
		filter.Role = &r
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return err
	}
	filter.Active = active

	agents, err := h.agents.ListAgents(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /agents.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	agent, err := h.agents.CreateAgent(c.UserContext(), service.AgentCreateInput{
		ID:               req.ID,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		Role:             req.Role,
		Skills:           req.Skills,
		EfficiencyRating: req.EfficiencyRating,
		AssetFamiliarity: req.AssetFamiliarity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// SetStatus PATCH /agents/:id/status.
func (h *AgentsHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.UpdateAgentStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	agent, err := h.agents.SetActive(c.UserContext(), c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}
