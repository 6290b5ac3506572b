package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/cache"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/escalation"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// EscalationService runs the escalation pass against stored tickets.
type EscalationService struct {
	tickets     repository.TicketRepository
	rules       repository.RuleRepository
	agents      repository.AgentRepository
	messages    repository.TicketMessageRepository
	audit       repository.AuditLogRepository
	engine      *escalation.Engine
	clock       sla.Clock
	locker      cache.Locker
	lockTTL     time.Duration
	statusCache cache.StatusCache
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	mu sync.Mutex
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	RuleRepo    repository.RuleRepository
	AgentRepo   repository.AgentRepository
	MessageRepo repository.TicketMessageRepository
	AuditRepo   repository.AuditLogRepository
	Engine      *escalation.Engine
	Clock       sla.Clock
	// Locker guards the pass across processes. Nil means in-process only.
	Locker      cache.Locker
	LockTTL     time.Duration
	StatusCache cache.StatusCache
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	engine := deps.Engine
	if engine == nil {
		engine = escalation.NewEngine()
	}
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock
	}
	statusCache := deps.StatusCache
	if statusCache == nil {
		statusCache = cache.NoopStatusCache{}
	}
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &EscalationService{
		tickets:     deps.TicketRepo,
		rules:       deps.RuleRepo,
		agents:      deps.AgentRepo,
		messages:    deps.MessageRepo,
		audit:       deps.AuditRepo,
		engine:      engine,
		clock:       clock,
		locker:      deps.Locker,
		lockTTL:     lockTTL,
		statusCache: statusCache,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      nopIfNil(deps.Logger),
	}
}

// RunEscalationJob scans open tickets, applies the first matching rule to
// each and persists the outcome. Only one pass runs at a time per process,
// and across processes while the distributed lock is reachable.
func (s *EscalationService) RunEscalationJob(ctx context.Context, actorID string) (escalation.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	release, err := s.acquire(ctx)
	if err != nil {
		s.metrics.RecordEscalationRun("skipped", time.Since(start))
		return escalation.Result{}, err
	}
	defer release()

	result, err := s.run(ctx, actorID)
	if err != nil {
		s.metrics.RecordEscalationRun("failed", time.Since(start))
		s.logger.Error("escalation job failed", zap.String("actor_id", actorID), zap.Error(err))
		return escalation.Result{}, err
	}
	elapsed := time.Since(start)
	s.metrics.RecordEscalationRun("ok", elapsed)
	s.logger.Info("escalation job completed",
		zap.String("actor_id", actorID),
		zap.Int("scanned", result.Scanned),
		zap.Int("escalated", result.EscalatedCount),
		zap.Duration("duration", elapsed))

	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventEscalationJobCompleted, "", actorID, result.RanAt, events.EscalationJobCompletedPayload{
		Scanned:        result.Scanned,
		EscalatedCount: result.EscalatedCount,
		Duration:       elapsed,
	}))
	return result, nil
}

func (s *EscalationService) acquire(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	lease, err := s.locker.Acquire(ctx, cache.EscalationLockKey, s.lockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, apperrors.NewConflict("escalation job already running", map[string]any{"lock": cache.EscalationLockKey})
	}
	if err != nil {
		s.logger.Warn("escalation lock unavailable; continuing with in-process lock only", zap.Error(err))
		return noop, nil
	}
	return func() {
		// release even if the request context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			s.logger.Warn("escalation lock release failed", zap.Error(err))
		}
	}, nil
}

func (s *EscalationService) run(ctx context.Context, actorID string) (escalation.Result, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return escalation.Result{}, apperrors.ToDomainError(err)
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{OpenOnly: true, Escalated: ptrBool(false)})
	if err != nil {
		return escalation.Result{}, apperrors.ToDomainError(err)
	}
	agents, err := s.agents.List(ctx, repository.AgentFilter{Active: ptrBool(true)})
	if err != nil {
		return escalation.Result{}, apperrors.ToDomainError(err)
	}

	now := s.clock.Now().UTC()
	result := s.engine.Run(rules, tickets, now, actorID, escalation.NewAgents(agents))
	if result.EscalatedCount == 0 {
		return result, nil
	}

	applied, err := s.tickets.SaveEscalations(ctx, escalationWrites(result))
	if err != nil {
		return escalation.Result{}, apperrors.ToDomainError(err)
	}
	result = s.dropUnapplied(result, applied)

	msgs := make([]domain.TicketMessage, len(result.Escalations))
	for i, esc := range result.Escalations {
		msgs[i] = esc.Message
	}
	if err := s.messages.AppendBatch(ctx, msgs); err != nil {
		s.logger.Error("escalation messages write failed", zap.Int("count", len(msgs)), zap.Error(err))
	}
	for _, esc := range result.Escalations {
		s.recordEscalation(ctx, actorID, esc, result)
	}
	if result.Summary != nil {
		appendAudit(ctx, s.audit, s.logger, result.Summary)
	}

	ids := make([]string, len(result.Escalations))
	for i, esc := range result.Escalations {
		ids[i] = esc.TicketID
	}
	if err := s.statusCache.Invalidate(ctx, ids...); err != nil {
		s.logger.Debug("sla status cache invalidate failed", zap.Error(err))
	}
	return result, nil
}

// escalationWrites narrows each escalated ticket to the fields its rule
// changed, so concurrent edits to the other fields survive the save.
func escalationWrites(result escalation.Result) []repository.EscalationWrite {
	writes := make([]repository.EscalationWrite, len(result.Escalations))
	for i, esc := range result.Escalations {
		ticket := result.Mutated[i]
		w := repository.EscalationWrite{TicketID: esc.TicketID, UpdatedAt: ticket.UpdatedAt}
		action := esc.Rule.Action
		if action.AssignToUserID != nil && !esc.DanglingAssignee {
			w.AssignedAgentID = ticket.AssignedAgentID
		}
		if action.TargetGroupID != nil {
			w.AssignedGroupID = ticket.AssignedGroupID
		}
		if action.NewPriority != nil {
			priority := ticket.Priority
			w.Priority = &priority
		}
		writes[i] = w
	}
	return writes
}

// dropUnapplied removes escalations whose ticket changed in storage between
// the read and the write, so side effects match what was persisted. Kept
// tickets are replaced by the rows as stored.
func (s *EscalationService) dropUnapplied(result escalation.Result, applied []domain.Ticket) escalation.Result {
	stored := make(map[string]domain.Ticket, len(applied))
	for _, t := range applied {
		stored[t.ID] = t
	}
	kept := result.Escalations[:0:0]
	mutated := result.Mutated[:0:0]
	for _, esc := range result.Escalations {
		ticket, hit := stored[esc.TicketID]
		if !hit {
			s.logger.Warn("ticket changed during escalation; skipped",
				zap.String("ticket_id", esc.TicketID),
				zap.String("rule", esc.Rule.Name))
			continue
		}
		kept = append(kept, esc)
		mutated = append(mutated, ticket)
	}
	for i := range result.Tickets {
		if ticket, hit := stored[result.Tickets[i].ID]; hit {
			result.Tickets[i] = ticket
		}
	}
	if len(kept) == len(result.Escalations) {
		result.Mutated = mutated
		return result
	}
	result.Escalations = kept
	result.Mutated = mutated
	result.EscalatedCount = len(kept)
	if result.EscalatedCount == 0 {
		result.Summary = nil
	} else if result.Summary != nil {
		summary := *result.Summary
		summary.Details = map[string]any{
			"escalated_count": result.EscalatedCount,
			"scanned":         result.Scanned,
		}
		result.Summary = &summary
	}
	return result
}

func (s *EscalationService) recordEscalation(ctx context.Context, actorID string, esc escalation.Escalation, result escalation.Result) {
	audit := esc.Audit
	appendAudit(ctx, s.audit, s.logger, &audit)

	if esc.DanglingAssignee {
		s.logger.Warn("escalation rule references unknown agent",
			zap.String("ticket_id", esc.TicketID),
			zap.String("rule", esc.Rule.Name),
			zap.String("agent_id", *esc.Rule.Action.AssignToUserID))
	}
	s.metrics.RecordEscalation(esc.Rule.Name, esc.DanglingAssignee)

	payload := events.TicketEscalatedPayload{
		RuleID:           esc.Rule.ID,
		RuleName:         esc.Rule.Name,
		SLAStatus:        esc.SLAStatus,
		DanglingAssignee: esc.DanglingAssignee,
	}
	for i := range result.Mutated {
		if t := result.Mutated[i]; t.ID == esc.TicketID {
			payload.AssignedAgentID = t.AssignedAgentID
			payload.AssignedGroupID = t.AssignedGroupID
			payload.Priority = t.Priority
			break
		}
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketEscalated, esc.TicketID, actorID, result.RanAt, payload))
}

// AuditService exposes the audit trail.
type AuditService struct {
	audit repository.AuditLogRepository
}

// NewAuditService constructs the service.
func NewAuditService(audit repository.AuditLogRepository) *AuditService {
	return &AuditService{audit: audit}
}

// AuditListFilter narrows audit listings.
type AuditListFilter struct {
	TicketID *string
	Action   *domain.AuditAction
	Limit    int
	Offset   int
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, filter AuditListFilter) ([]domain.AuditLogEntry, error) {
	entries, err := s.audit.List(ctx, repository.AuditFilter{
		TicketID: filter.TicketID,
		Action:   filter.Action,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return entries, nil
}
