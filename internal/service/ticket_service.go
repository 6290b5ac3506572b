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
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows and stamps SLA deadlines.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	audit       repository.AuditLogRepository
	calculator  *sla.Calculator
	clock       sla.Clock
	statusCache cache.StatusCache
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	AuditRepo   repository.AuditLogRepository
	Demand      sla.DemandSource
	Clock       sla.Clock
	StatusCache cache.StatusCache
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	RequesterID string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	LinkedAsset *domain.AssetRef
}

// TicketListFilter describes list parameters. SLAStatuses filters on the
// live status.
type TicketListFilter struct {
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	Categories      []domain.TicketCategory
	SLAStatuses     []domain.SLAStatus
	Escalated       *bool
	AssignedAgentID *string
	Limit           int
	Offset          int
}

// TicketView pairs a ticket with its live SLA status.
type TicketView struct {
	Ticket    domain.Ticket
	SLAStatus domain.SLAStatus
	Messages  []domain.TicketMessage
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock
	}
	statusCache := deps.StatusCache
	if statusCache == nil {
		statusCache = cache.NoopStatusCache{}
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		audit:       deps.AuditRepo,
		calculator:  sla.NewCalculator(deps.Demand),
		clock:       clock,
		statusCache: statusCache,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      nopIfNil(deps.Logger),
	}
}

// EnrichTicketWithSLA computes the frozen SLA stamp for a new ticket.
func (s *TicketService) EnrichTicketWithSLA(priority domain.TicketPriority, createdAt time.Time) sla.Enrichment {
	return s.calculator.Compute(priority, createdAt)
}

// GetSLAStatus evaluates the live SLA status.
func (s *TicketService) GetSLAStatus(ticket *domain.Ticket, now time.Time) domain.SLAStatus {
	return sla.Status(ticket, now)
}

// CreateTicket validates input, stamps the SLA and stores the ticket.
func (s *TicketService) CreateTicket(ctx context.Context, actorID string, input TicketCreateInput) (*TicketView, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC().Truncate(time.Millisecond)
	enrichment := s.EnrichTicketWithSLA(input.Priority, now)
	ticket := &domain.Ticket{
		ID:                  uuid.NewString(),
		Title:               strings.TrimSpace(input.Title),
		Description:         strings.TrimSpace(input.Description),
		RequesterID:         input.RequesterID,
		Priority:            input.Priority,
		Category:            input.Category,
		Status:              domain.TicketStatusOpen,
		CreatedAt:           now,
		UpdatedAt:           now,
		SLATarget:           enrichment.Target,
		SLATier:             enrichment.Tier,
		DemandFactorApplied: enrichment.DemandFactorApplied,
		LinkedAsset:         input.LinkedAsset,
	}
	if ticket.RequesterID == "" {
		ticket.RequesterID = actorID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	s.metrics.RecordTicketCreated(string(ticket.Priority))

	ticketID := ticket.ID
	appendAudit(ctx, s.audit, s.logger, &domain.AuditLogEntry{
		ID:       uuid.NewString(),
		Action:   domain.AuditActionTicketCreated,
		Severity: domain.AuditSeverityInfo,
		ActorID:  actorID,
		TicketID: &ticketID,
		Details: map[string]any{
			"priority":              string(ticket.Priority),
			"sla_tier":              string(ticket.SLATier),
			"sla_target":            ticket.SLATarget.Format(time.RFC3339Nano),
			"demand_factor_applied": ticket.DemandFactorApplied,
		},
		CreatedAt: now,
	})
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketCreated, ticket.ID, actorID, now, events.TicketCreatedPayload{
		Priority:  ticket.Priority,
		Category:  ticket.Category,
		SLATier:   ticket.SLATier,
		SLATarget: ticket.SLATarget,
		Title:     ticket.Title,
	}))

	return &TicketView{Ticket: *ticket, SLAStatus: sla.Status(ticket, now), Messages: []domain.TicketMessage{}}, nil
}

func validateCreate(input TicketCreateInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "required"
	}
	if !input.Priority.Valid() {
		details["priority"] = "must be one of LOW, MEDIUM, HIGH, CRITICAL"
	}
	if !input.Category.Valid() {
		details["category"] = "unknown category"
	}
	if input.LinkedAsset != nil && strings.TrimSpace(input.LinkedAsset.ID) == "" {
		details["linked_asset.id"] = "required when an asset is linked"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

// GetTicket returns a ticket with its live status and thread.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketView, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return &TicketView{Ticket: *ticket, SLAStatus: sla.Status(ticket, s.clock.Now()), Messages: msgs}, nil
}

// ListTickets returns tickets with their SLA status. Statuses come from the
// status cache when present and are computed and cached otherwise.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]TicketView, error) {
	repoFilter := repository.TicketFilter{
		Statuses:        filter.Statuses,
		Priorities:      filter.Priorities,
		Categories:      filter.Categories,
		AssignedAgentID: filter.AssignedAgentID,
		Escalated:       filter.Escalated,
	}
	// the SLA status filter runs after loading, so paginate afterwards too
	if len(filter.SLAStatuses) == 0 {
		repoFilter.Limit = filter.Limit
		repoFilter.Offset = filter.Offset
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	statuses := s.statusesFor(ctx, tickets)
	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		status := statuses[t.ID]
		if len(filter.SLAStatuses) > 0 && !containsStatus(filter.SLAStatuses, status) {
			continue
		}
		views = append(views, TicketView{Ticket: t, SLAStatus: status})
	}
	if len(filter.SLAStatuses) > 0 {
		views = paginate(views, filter.Limit, filter.Offset)
	}
	return views, nil
}

func (s *TicketService) statusesFor(ctx context.Context, tickets []domain.Ticket) map[string]domain.SLAStatus {
	ids := make([]string, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	cached, err := s.statusCache.GetMany(ctx, ids)
	if err != nil {
		s.logger.Debug("sla status cache read failed", zap.Error(err))
		cached = map[string]domain.SLAStatus{}
	}

	now := s.clock.Now()
	var fresh []cache.StatusEntry
	out := make(map[string]domain.SLAStatus, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		if status, ok := cached[t.ID]; ok {
			out[t.ID] = status
			continue
		}
		status := sla.Status(t, now)
		out[t.ID] = status
		// expire no later than the next threshold crossing
		fresh = append(fresh, cache.StatusEntry{TicketID: t.ID, Status: status, ValidFor: sla.StableFor(t, now)})
	}
	if err := s.statusCache.SetMany(ctx, fresh); err != nil {
		s.logger.Debug("sla status cache write failed", zap.Error(err))
	}
	return out
}

func containsStatus(list []domain.SLAStatus, v domain.SLAStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// UpdateStatus moves a ticket through the status workflow.
func (s *TicketService) UpdateStatus(ctx context.Context, actorID, ticketID string, newStatus domain.TicketStatus, comment string) (*TicketView, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(newStatus)})
	}
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	oldStatus := ticket.Status
	if oldStatus == newStatus {
		return &TicketView{Ticket: *ticket, SLAStatus: sla.Status(ticket, s.clock.Now())}, nil
	}
	if !isValidTransition(oldStatus, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": string(oldStatus),
			"to":   string(newStatus),
		})
	}

	now := s.clock.Now().UTC()
	ticket, err = s.tickets.UpdateStatus(ctx, ticketID, oldStatus, newStatus, now)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if err := s.statusCache.Invalidate(ctx, ticket.ID); err != nil {
		s.logger.Debug("sla status cache invalidate failed", zap.Error(err))
	}

	details := map[string]any{"old_status": string(oldStatus), "new_status": string(newStatus)}
	if c := strings.TrimSpace(comment); c != "" {
		details["comment"] = c
	}
	appendAudit(ctx, s.audit, s.logger, &domain.AuditLogEntry{
		ID:        uuid.NewString(),
		Action:    domain.AuditActionTicketStatusChanged,
		Severity:  domain.AuditSeverityInfo,
		ActorID:   actorID,
		TicketID:  ptrString(ticket.ID),
		Details:   details,
		CreatedAt: now,
	})
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketStatusChanged, ticket.ID, actorID, now, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   strings.TrimSpace(comment),
	}))
	return &TicketView{Ticket: *ticket, SLAStatus: sla.Status(ticket, now)}, nil
}

// AddMessage appends an agent reply or internal note to a ticket thread.
func (s *TicketService) AddMessage(ctx context.Context, actorID, ticketID string, messageType domain.TicketMessageType, body string) (*domain.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", map[string]any{"body": "required"})
	}
	if !messageType.Authorable() {
		return nil, apperrors.NewValidationError("invalid message type", map[string]any{"message_type": string(messageType)})
	}
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}

	msg := &domain.TicketMessage{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		AuthorType:  domain.AuthorTypeAgent,
		AuthorID:    ptrString(actorID),
		MessageType: messageType,
		Body:        body,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketMessageAdded, ticketID, actorID, msg.CreatedAt, events.TicketMessageAddedPayload{
		MessageID:   msg.ID,
		MessageType: msg.MessageType,
		AuthorType:  msg.AuthorType,
		AuthorID:    msg.AuthorID,
		BodyPreview: stringPreview(msg.Body, 140),
	}))
	return msg, nil
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:             {domain.TicketStatusInProgress, domain.TicketStatusAwaitingCustomer, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress:       {domain.TicketStatusAwaitingCustomer, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusAwaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:         {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:           {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
