package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-escalation/internal/api/dto"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
)

// RulesHandler manages the escalation rule list.
type RulesHandler struct {
	rules *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(rules *service.RuleService) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// List GET /escalation-rules.
func (h *RulesHandler) List(c *fiber.Ctx) error {
	rules, err := h.rules.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rulesResponse(rules)})
}

// Create POST /escalation-rules.
func (h *RulesHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule, err := h.rules.Create(c.UserContext(), principal.ActorID(), ruleInput(&req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Update PUT /escalation-rules/:id.
func (h *RulesHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule, err := h.rules.Update(c.UserContext(), principal.ActorID(), c.Params("id"), ruleInput(&req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Delete DELETE /escalation-rules/:id.
func (h *RulesHandler) Delete(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.rules.Delete(c.UserContext(), principal.ActorID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Reorder PUT /escalation-rules/order.
func (h *RulesHandler) Reorder(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReorderRulesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rules, err := h.rules.Reorder(c.UserContext(), principal.ActorID(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rulesResponse(rules)})
}

func rulesResponse(rules []domain.EscalationRule) []dto.RuleResponse {
	out := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, ruleResponse(&rules[i]))
	}
	return out
}
