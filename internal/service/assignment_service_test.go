package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

func newAssignmentService(store *repository.MemoryStore, dispatcher events.Dispatcher) *AssignmentService {
	return NewAssignmentService(AssignmentDependencies{
		TicketRepo: store.Tickets(),
		AgentRepo:  store.Agents(),
		AuditRepo:  store.AuditLogs(),
		Clock:      sla.FixedClock(testNow),
		Dispatcher: dispatcher,
	})
}

func seedRoster(t *testing.T, store *repository.MemoryStore) {
	seedAgent(t, store, domain.Agent{
		ID: "generalist", Name: "Gen", Email: "gen@example.com", Role: domain.AgentRoleAgent, Active: true,
		Skills: []domain.TicketCategory{domain.CategoryGeneral}, EfficiencyRating: 90, ActiveTicketCount: 0,
	})
	seedAgent(t, store, domain.Agent{
		ID: "netops", Name: "Net", Email: "net@example.com", Role: domain.AgentRoleAgent, Active: true,
		Skills: []domain.TicketCategory{domain.CategoryNetwork}, EfficiencyRating: 80, ActiveTicketCount: 4,
		AssetFamiliarity: map[string]int{"Cisco ASR": 100},
	})
	seedAgent(t, store, domain.Agent{
		ID: "retired", Name: "Old", Email: "old@example.com", Role: domain.AgentRoleAgent, Active: false,
		Skills: []domain.TicketCategory{domain.CategoryNetwork}, EfficiencyRating: 100,
	})
}

func TestRankAgentsUsesActiveRoster(t *testing.T) {
	store := repository.NewMemoryStore()
	seedRoster(t, store)
	ticket := seedTicket(t, store, "t-1", domain.TicketPriorityHigh, time.Hour, 8*time.Hour)
	ticket.LinkedAsset = &domain.AssetRef{ID: "asset-9", ModelName: "Cisco ASR"}
	require.NoError(t, store.Tickets().Replace(context.Background(), &ticket))

	scores, err := newAssignmentService(store, nil).RankAgents(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	// 40 + 20 + 12 + 15
	assert.Equal(t, "netops", scores[0].Agent.ID)
	assert.Equal(t, 87, scores[0].TotalScore)
	// 5 + 22.5 + 20 + 0
	assert.Equal(t, "generalist", scores[1].Agent.ID)
	assert.Equal(t, 48, scores[1].TotalScore)

	_, err = newAssignmentService(store, nil).RankAgents(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, "NOT_FOUND"))
}

func TestAssignTicketMovesWorkload(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedRoster(t, store)
	seedTicket(t, store, "t-1", domain.TicketPriorityHigh, time.Hour, 8*time.Hour)
	rec, dispatcher := newRecorder(events.EventTicketAssigned)
	svc := newAssignmentService(store, dispatcher)

	ticket, err := svc.AssignTicket(ctx, "manager-1", "t-1", "generalist")
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "generalist", *ticket.AssignedAgentID)

	gen, err := store.Agents().Get(ctx, "generalist")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.ActiveTicketCount)

	_, err = svc.AssignTicket(ctx, "manager-1", "t-1", "netops")
	require.NoError(t, err)

	gen, err = store.Agents().Get(ctx, "generalist")
	require.NoError(t, err)
	assert.Equal(t, 0, gen.ActiveTicketCount)
	net, err := store.Agents().Get(ctx, "netops")
	require.NoError(t, err)
	assert.Equal(t, 5, net.ActiveTicketCount)

	assigned := rec.ofType(events.EventTicketAssigned)
	require.Len(t, assigned, 2)
	payload, ok := assigned[1].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	require.NotNil(t, payload.PreviousAgentID)
	assert.Equal(t, "generalist", *payload.PreviousAgentID)

	action := domain.AuditActionTicketAssigned
	audit, err := store.AuditLogs().List(ctx, repository.AuditFilter{Action: &action})
	require.NoError(t, err)
	assert.Len(t, audit, 2)
}

func TestAssignTicketRejections(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedRoster(t, store)
	seedTicket(t, store, "open", domain.TicketPriorityHigh, time.Hour, 8*time.Hour)
	closed := seedTicket(t, store, "closed", domain.TicketPriorityHigh, time.Hour, 8*time.Hour)
	closed.Status = domain.TicketStatusClosed
	require.NoError(t, store.Tickets().Replace(ctx, &closed))
	svc := newAssignmentService(store, nil)

	cases := []struct {
		name     string
		ticketID string
		agentID  string
		code     string
	}{
		{"unknown ticket", "missing", "generalist", "NOT_FOUND"},
		{"unknown agent", "open", "ghost", "NOT_FOUND"},
		{"inactive agent", "open", "retired", "CONFLICT"},
		{"settled ticket", "closed", "generalist", "CONFLICT"},
		{"blank agent", "open", " ", "VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AssignTicket(ctx, "manager-1", tc.ticketID, tc.agentID)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tc.code), err.Error())
		})
	}
}

func TestAssignTicketKeepsEscalationThatLandsMidAssign(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedRoster(t, store)
	seedTicket(t, store, "t-1", domain.TicketPriorityHigh, 9*time.Hour, 8*time.Hour)
	seedAgent(t, store, domain.Agent{ID: "agent-lead", Name: "Lead", Email: "lead@example.com", Role: domain.AgentRoleManager, Active: true})
	seedRule(t, store, domain.EscalationRule{
		ID:        "rule-breach",
		Name:      "Breach to lead",
		Condition: domain.RuleCondition{SLAStatus: slaPtr(domain.SLAStatusBreached)},
		Action: domain.RuleAction{
			AssignToUserID: ptrString("agent-lead"),
			TargetGroupID:  ptrString("noc"),
			NewPriority:    priorityPtr(domain.TicketPriorityCritical),
		},
	})

	escalations := newEscalationService(store, nil, nil)
	tickets := &interleavedTickets{
		TicketRepository: store.Tickets(),
		afterGet: func() {
			_, err := escalations.RunEscalationJob(ctx, domain.SystemActorID)
			require.NoError(t, err)
		},
	}
	rec, dispatcher := newRecorder(events.EventTicketAssigned)
	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo: tickets,
		AgentRepo:  store.Agents(),
		AuditRepo:  store.AuditLogs(),
		Clock:      sla.FixedClock(testNow),
		Dispatcher: dispatcher,
	})

	ticket, err := svc.AssignTicket(ctx, "manager-1", "t-1", "netops")
	require.NoError(t, err)
	assert.Equal(t, "netops", *ticket.AssignedAgentID)

	stored, err := store.Tickets().Get(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, stored.IsEscalated)
	assert.Equal(t, "netops", *stored.AssignedAgentID)
	require.NotNil(t, stored.AssignedGroupID)
	assert.Equal(t, "noc", *stored.AssignedGroupID)
	assert.Equal(t, domain.TicketPriorityCritical, stored.Priority)

	assigned := rec.ofType(events.EventTicketAssigned)
	require.Len(t, assigned, 1)
	payload, ok := assigned[0].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	require.NotNil(t, payload.PreviousAgentID)
	assert.Equal(t, "agent-lead", *payload.PreviousAgentID)
}
