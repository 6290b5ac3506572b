// Package escalation applies ordered escalation rules to open tickets.
package escalation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
)

// AgentDirectory resolves assignee ids referenced by rule actions.
type AgentDirectory interface {
	Lookup(id string) (domain.Agent, bool)
}

// Agents is a map-backed AgentDirectory.
type Agents map[string]domain.Agent

// Lookup implements AgentDirectory.
func (a Agents) Lookup(id string) (domain.Agent, bool) {
	agent, ok := a[id]
	return agent, ok
}

// NewAgents indexes a slice of agents by id.
func NewAgents(list []domain.Agent) Agents {
	out := make(Agents, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out
}

// Escalation describes what happened to one ticket during a run.
type Escalation struct {
	TicketID         string
	Rule             domain.EscalationRule
	SLAStatus        domain.SLAStatus
	PreviousAssignee *string
	PreviousPriority domain.TicketPriority
	DanglingAssignee bool
	Message          domain.TicketMessage
	Audit            domain.AuditLogEntry
}

// Result is the outcome of a run. Tickets holds every input ticket in input
// order with mutations applied; Mutated holds only the escalated ones.
type Result struct {
	RanAt          time.Time
	ActorID        string
	Scanned        int
	Tickets        []domain.Ticket
	Mutated        []domain.Ticket
	Escalations    []Escalation
	EscalatedCount int
	Summary        *domain.AuditLogEntry
}

// Engine evaluates rules against tickets. It holds no ticket state.
type Engine struct {
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithIDGenerator overrides how message and audit ids are produced.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine constructs an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunEscalationJob runs a default engine once.
func RunEscalationJob(rules []domain.EscalationRule, tickets []domain.Ticket, now time.Time, actorID string, agents AgentDirectory) Result {
	return NewEngine().Run(rules, tickets, now, actorID, agents)
}

// Run scans open, not-yet-escalated tickets and applies the first matching
// rule to each. Inputs are not modified.
func (e *Engine) Run(rules []domain.EscalationRule, tickets []domain.Ticket, now time.Time, actorID string, agents AgentDirectory) Result {
	if agents == nil {
		agents = Agents{}
	}
	result := Result{
		RanAt:   now,
		ActorID: actorID,
		Tickets: make([]domain.Ticket, 0, len(tickets)),
	}

	for i := range tickets {
		ticket := tickets[i].Clone()
		if ticket.Open() && !ticket.IsEscalated {
			result.Scanned++
			status := sla.Status(&ticket, now)
			if rule, ok := SelectRule(rules, &ticket, status); ok {
				esc := e.apply(&ticket, *rule, status, now, agents)
				result.Escalations = append(result.Escalations, esc)
				result.Mutated = append(result.Mutated, ticket.Clone())
			}
		}
		result.Tickets = append(result.Tickets, ticket)
	}

	result.EscalatedCount = len(result.Escalations)
	if result.EscalatedCount > 0 {
		result.Summary = &domain.AuditLogEntry{
			ID:       e.newID(),
			Action:   domain.AuditActionEscalationJobRun,
			Severity: domain.AuditSeverityInfo,
			ActorID:  actorID,
			Details: map[string]any{
				"escalated_count": result.EscalatedCount,
				"scanned":         result.Scanned,
			},
			CreatedAt: now,
		}
	}
	return result
}

func (e *Engine) apply(ticket *domain.Ticket, rule domain.EscalationRule, status domain.SLAStatus, now time.Time, agents AgentDirectory) Escalation {
	esc := Escalation{
		TicketID:         ticket.ID,
		Rule:             rule,
		SLAStatus:        status,
		PreviousAssignee: ticket.AssignedAgentID,
		PreviousPriority: ticket.Priority,
	}

	ticket.IsEscalated = true
	ticket.UpdatedAt = now

	var assignee *domain.Agent
	if id := rule.Action.AssignToUserID; id != nil {
		if agent, ok := agents.Lookup(*id); ok {
			assigned := agent.ID
			ticket.AssignedAgentID = &assigned
			assignee = &agent
		} else {
			esc.DanglingAssignee = true
		}
	}
	if group := rule.Action.TargetGroupID; group != nil {
		g := *group
		ticket.AssignedGroupID = &g
	}
	if p := rule.Action.NewPriority; p != nil {
		ticket.Priority = *p
	}

	ticketID := ticket.ID
	esc.Message = domain.TicketMessage{
		ID:          e.newID(),
		TicketID:    ticket.ID,
		AuthorType:  domain.AuthorTypeSystem,
		MessageType: domain.MessageTypeSystemEvent,
		Body:        narrate(rule, esc, assignee, ticket),
		CreatedAt:   now,
	}

	details := map[string]any{
		"rule_id":    rule.ID,
		"sla_status": string(status),
	}
	if assignee != nil {
		details["assigned_agent_id"] = assignee.ID
	}
	if esc.DanglingAssignee {
		details["dangling_assignee_id"] = *rule.Action.AssignToUserID
	}
	if rule.Action.TargetGroupID != nil {
		details["target_group_id"] = *rule.Action.TargetGroupID
	}
	if rule.Action.NewPriority != nil {
		details["old_priority"] = string(esc.PreviousPriority)
		details["new_priority"] = string(*rule.Action.NewPriority)
	}
	esc.Audit = domain.AuditLogEntry{
		ID:        e.newID(),
		Action:    domain.AuditActionAutoEscalation,
		Severity:  domain.AuditSeverityWarning,
		ActorID:   domain.SystemActorID,
		TicketID:  &ticketID,
		RuleName:  rule.Name,
		Details:   details,
		CreatedAt: now,
	}
	return esc
}

func narrate(rule domain.EscalationRule, esc Escalation, assignee *domain.Agent, ticket *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automatically escalated by rule %q (SLA %s).", rule.Name, esc.SLAStatus)
	switch {
	case assignee != nil:
		name := assignee.Name
		if name == "" {
			name = assignee.ID
		}
		fmt.Fprintf(&b, " Reassigned to %s.", name)
	case esc.DanglingAssignee:
		fmt.Fprintf(&b, " Assignee %s could not be found; assignment unchanged.", *rule.Action.AssignToUserID)
	}
	if rule.Action.TargetGroupID != nil {
		fmt.Fprintf(&b, " Routed to group %s.", *rule.Action.TargetGroupID)
	}
	if rule.Action.NewPriority != nil {
		if esc.PreviousPriority != ticket.Priority {
			fmt.Fprintf(&b, " Priority changed from %s to %s.", esc.PreviousPriority, ticket.Priority)
		} else {
			fmt.Fprintf(&b, " Priority kept at %s.", ticket.Priority)
		}
	}
	if note := strings.TrimSpace(rule.Action.Note); note != "" {
		fmt.Fprintf(&b, " Note: %s", note)
	}
	return b.String()
}
