package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-escalation/internal/api/dto"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
)

// EscalationsHandler triggers escalation runs and exposes the audit trail.
type EscalationsHandler struct {
	escalations *service.EscalationService
	audit       *service.AuditService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(escalations *service.EscalationService, audit *service.AuditService) *EscalationsHandler {
	return &EscalationsHandler{escalations: escalations, audit: audit}
}

// Run POST /escalations/run. The caller is recorded as the job actor.
func (h *EscalationsHandler) Run(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.escalations.RunEscalationJob(c.UserContext(), principal.ActorID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationRunResponse(result)})
}

// AuditLogs GET /audit-logs.
func (h *EscalationsHandler) AuditLogs(c *fiber.Ctx) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	filter := service.AuditListFilter{Limit: limit, Offset: offset}
	if ticketID := strings.TrimSpace(c.Query("ticket_id")); ticketID != "" {
		filter.TicketID = &ticketID
	}
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		a := domain.AuditAction(strings.ToUpper(action))
		filter.Action = &a
	}
	entries, err := h.audit.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AuditLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, auditResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
