package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-escalation/internal/api/dto"
	"github.com/spec-kit/helpdesk-escalation/internal/auth"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/service"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// TicketsHandler manages staff ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignmentService *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, assignments: assignmentService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		RequesterID: strings.TrimSpace(req.RequesterID),
		Priority:    req.Priority,
		Category:    req.Category,
	}
	if req.LinkedAsset != nil {
		input.LinkedAsset = &domain.AssetRef{ID: req.LinkedAsset.ID, ModelName: req.LinkedAsset.ModelName}
	}
	view, err := h.tickets.CreateTicket(c.UserContext(), principal.ActorID(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(&view.Ticket, view.SLAStatus)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	views, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i].Ticket, views[i].SLAStatus))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	var filter service.TicketListFilter
	var err error
	if filter.Statuses, err = enumList(c, "status", domain.TicketStatus.Valid); err != nil {
		return filter, err
	}
	if filter.Priorities, err = enumList(c, "priority", domain.TicketPriority.Valid); err != nil {
		return filter, err
	}
	if filter.Categories, err = enumList(c, "category", domain.TicketCategory.Valid); err != nil {
		return filter, err
	}
	if filter.SLAStatuses, err = enumList(c, "sla_status", domain.SLAStatus.Valid); err != nil {
		return filter, err
	}
	if filter.Escalated, err = queryBool(c, "escalated"); err != nil {
		return filter, err
	}
	if agent := strings.TrimSpace(c.Query("assigned_agent_id")); agent != "" {
		filter.AssignedAgentID = &agent
	}
	filter.Limit, filter.Offset, err = pagination(c)
	return filter, err
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.UpdateStatus(c.UserContext(), principal.ActorID(), c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(&view.Ticket, view.SLAStatus)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = domain.MessageTypePublicReply
	}
	msg, err := h.tickets.AddMessage(c.UserContext(), principal.ActorID(), c.Params("id"), messageType, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}

// AgentSuggestions GET /tickets/:id/agent-suggestions.
func (h *TicketsHandler) AgentSuggestions(c *fiber.Ctx) error {
	scores, err := h.assignments.RankAgents(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(scores) {
		scores = scores[:limit]
	}
	items := make([]dto.AgentSuggestionResponse, 0, len(scores))
	for _, s := range scores {
		items = append(items, suggestionResponse(s))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignments.AssignTicket(c.UserContext(), principal.ActorID(), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	view, err := h.tickets.GetTicket(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(&view.Ticket, view.SLAStatus)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("staff authentication required")
	}
	return principal, nil
}
