package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/cache"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/matching"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// AssignmentService ranks agents for a ticket and applies assignments.
type AssignmentService struct {
	tickets     repository.TicketRepository
	agents      repository.AgentRepository
	audit       repository.AuditLogRepository
	clock       sla.Clock
	statusCache cache.StatusCache
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	AgentRepo   repository.AgentRepository
	AuditRepo   repository.AuditLogRepository
	Clock       sla.Clock
	StatusCache cache.StatusCache
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock
	}
	statusCache := deps.StatusCache
	if statusCache == nil {
		statusCache = cache.NoopStatusCache{}
	}
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		agents:      deps.AgentRepo,
		audit:       deps.AuditRepo,
		clock:       clock,
		statusCache: statusCache,
		dispatcher:  deps.Dispatcher,
		logger:      nopIfNil(deps.Logger),
	}
}

// RankAgents scores every active agent against the ticket, best first.
func (s *AssignmentService) RankAgents(ctx context.Context, ticketID string) ([]domain.AgentScore, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	agents, err := s.agents.List(ctx, repository.AgentFilter{Active: ptrBool(true)})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return matching.RankAgents(ticket, agents), nil
}

// AssignTicket hands a ticket to an agent and keeps workload counters in step.
func (s *AssignmentService) AssignTicket(ctx context.Context, actorID, ticketID, agentID string) (*domain.Ticket, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, apperrors.NewValidationError("agent id required", map[string]any{"agent_id": "required"})
	}
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if ticket.Status.Settled() {
		return nil, apperrors.NewConflict("ticket is already settled", map[string]any{"status": string(ticket.Status)})
	}
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, mapRepoError(err, "agent", agentID)
	}
	if !agent.Active {
		return nil, apperrors.NewConflict("agent is inactive", map[string]any{"agent_id": agentID})
	}
	if ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == agentID {
		return ticket, nil
	}

	now := s.clock.Now().UTC()
	ticket, previous, err := s.tickets.Assign(ctx, ticketID, agentID, now)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if previous != nil && *previous == agentID {
		return ticket, nil
	}

	s.adjustWorkload(ctx, agent, 1, now)
	if previous != nil {
		if prev, err := s.agents.Get(ctx, *previous); err == nil {
			s.adjustWorkload(ctx, prev, -1, now)
		}
	}

	details := map[string]any{"agent_id": agentID}
	if previous != nil {
		details["previous_agent_id"] = *previous
	}
	appendAudit(ctx, s.audit, s.logger, &domain.AuditLogEntry{
		ID:        uuid.NewString(),
		Action:    domain.AuditActionTicketAssigned,
		Severity:  domain.AuditSeverityInfo,
		ActorID:   actorID,
		TicketID:  ptrString(ticket.ID),
		Details:   details,
		CreatedAt: now,
	})
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketAssigned, ticket.ID, actorID, now, events.TicketAssignedPayload{
		PreviousAgentID: previous,
		AgentID:         agentID,
	}))
	return ticket, nil
}

func (s *AssignmentService) adjustWorkload(ctx context.Context, agent *domain.Agent, delta int, now time.Time) {
	agent.ActiveTicketCount += delta
	if agent.ActiveTicketCount < 0 {
		agent.ActiveTicketCount = 0
	}
	agent.UpdatedAt = now
	if err := s.agents.Update(ctx, agent); err != nil {
		s.logger.Warn("agent workload update failed", zap.String("agent_id", agent.ID), zap.Error(err))
	}
}
