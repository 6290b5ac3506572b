package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// MemoryStore is an in-process implementation of every repository. It is
// used when no Postgres DSN is configured and by tests. Values are copied in
// and out so callers never share memory with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	tickets  map[string]domain.Ticket
	rules    []domain.EscalationRule
	agents   map[string]domain.Agent
	messages map[string][]domain.TicketMessage
	audit    []domain.AuditLogEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.Reset()
	return s
}

// Reset drops all data.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = map[string]domain.Ticket{}
	s.rules = nil
	s.agents = map[string]domain.Agent{}
	s.messages = map[string][]domain.TicketMessage{}
	s.audit = nil
}

// Tickets exposes the store as a TicketRepository.
func (s *MemoryStore) Tickets() TicketRepository { return memoryTickets{s} }

// Rules exposes the store as a RuleRepository.
func (s *MemoryStore) Rules() RuleRepository { return memoryRules{s} }

// Agents exposes the store as an AgentRepository.
func (s *MemoryStore) Agents() AgentRepository { return memoryAgents{s} }

// Messages exposes the store as a TicketMessageRepository.
func (s *MemoryStore) Messages() TicketMessageRepository { return memoryMessages{s} }

// AuditLogs exposes the store as an AuditLogRepository.
func (s *MemoryStore) AuditLogs() AuditLogRepository { return memoryAudit{s} }

type memoryTickets struct{ s *MemoryStore }

func (m memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	m.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (m memoryTickets) Get(_ context.Context, id string) (*domain.Ticket, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := ticket.Clone()
	return &out, nil
}

func (m memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.s.mu.RLock()
	result := make([]domain.Ticket, 0, len(m.s.tickets))
	for _, ticket := range m.s.tickets {
		if matchesTicket(ticket, filter) {
			result = append(result, ticket.Clone())
		}
	}
	m.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		end := offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

func matchesTicket(t domain.Ticket, f TicketFilter) bool {
	if f.OpenOnly && !t.Open() {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, t.Category) {
		return false
	}
	if f.AssignedAgentID != nil && (t.AssignedAgentID == nil || *t.AssignedAgentID != *f.AssignedAgentID) {
		return false
	}
	if f.Escalated != nil && t.IsEscalated != *f.Escalated {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (m memoryTickets) Replace(_ context.Context, ticket *domain.Ticket) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.replaceLocked(ticket)
}

func (m memoryTickets) UpdateStatus(_ context.Context, id string, from, to domain.TicketStatus, updatedAt time.Time) (*domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Status != from {
		return nil, ErrConflict
	}
	stored.Status = to
	stored.UpdatedAt = updatedAt
	m.s.tickets[id] = stored
	out := stored.Clone()
	return &out, nil
}

func (m memoryTickets) Assign(_ context.Context, id, agentID string, updatedAt time.Time) (*domain.Ticket, *string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.tickets[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !stored.Open() {
		return nil, nil, ErrConflict
	}
	previous := stored.Clone().AssignedAgentID
	assignee := agentID
	stored.AssignedAgentID = &assignee
	stored.UpdatedAt = updatedAt
	m.s.tickets[id] = stored
	out := stored.Clone()
	return &out, previous, nil
}

func (m memoryTickets) SaveEscalations(_ context.Context, writes []EscalationWrite) ([]domain.Ticket, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var applied []domain.Ticket
	for _, w := range writes {
		stored, ok := m.s.tickets[w.TicketID]
		if !ok || stored.IsEscalated || !stored.Open() {
			continue
		}
		stored.IsEscalated = true
		if w.Priority != nil {
			stored.Priority = *w.Priority
		}
		if w.AssignedAgentID != nil {
			agent := *w.AssignedAgentID
			stored.AssignedAgentID = &agent
		}
		if w.AssignedGroupID != nil {
			group := *w.AssignedGroupID
			stored.AssignedGroupID = &group
		}
		stored.UpdatedAt = w.UpdatedAt
		m.s.tickets[w.TicketID] = stored
		applied = append(applied, stored.Clone())
	}
	return applied, nil
}

func (m memoryTickets) replaceLocked(ticket *domain.Ticket) error {
	stored, ok := m.s.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	ticket.CreatedAt = stored.CreatedAt
	ticket.SLATarget = stored.SLATarget
	ticket.SLATier = stored.SLATier
	ticket.DemandFactorApplied = stored.DemandFactorApplied
	ticket.IsEscalated = ticket.IsEscalated || stored.IsEscalated
	m.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

type memoryRules struct{ s *MemoryStore }

func (m memoryRules) List(context.Context) ([]domain.EscalationRule, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]domain.EscalationRule, len(m.s.rules))
	for i, r := range m.s.rules {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m memoryRules) Get(_ context.Context, id string) (*domain.EscalationRule, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if i := m.indexLocked(id); i >= 0 {
		rule := m.s.rules[i].Clone()
		return &rule, nil
	}
	return nil, ErrNotFound
}

func (m memoryRules) Create(_ context.Context, rule *domain.EscalationRule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.indexLocked(rule.ID) >= 0 {
		return fmt.Errorf("rule %s already exists", rule.ID)
	}
	rule.Position = len(m.s.rules)
	m.s.rules = append(m.s.rules, rule.Clone())
	return nil
}

func (m memoryRules) Update(_ context.Context, rule *domain.EscalationRule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	i := m.indexLocked(rule.ID)
	if i < 0 {
		return ErrNotFound
	}
	rule.Position = i
	rule.CreatedAt = m.s.rules[i].CreatedAt
	m.s.rules[i] = rule.Clone()
	return nil
}

func (m memoryRules) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	m.s.rules = append(m.s.rules[:i:i], m.s.rules[i+1:]...)
	m.renumberLocked()
	return nil
}

func (m memoryRules) Reorder(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing := make([]string, len(m.s.rules))
	byID := make(map[string]domain.EscalationRule, len(m.s.rules))
	for i, r := range m.s.rules {
		existing[i] = r.ID
		byID[r.ID] = r
	}
	if !isPermutation(existing, ids) {
		return ErrInvalidOrder
	}
	reordered := make([]domain.EscalationRule, len(ids))
	for i, id := range ids {
		reordered[i] = byID[id]
	}
	m.s.rules = reordered
	m.renumberLocked()
	return nil
}

func (m memoryRules) ReplaceAll(_ context.Context, rules []domain.EscalationRule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.rules = make([]domain.EscalationRule, len(rules))
	for i, r := range rules {
		m.s.rules[i] = r.Clone()
	}
	m.renumberLocked()
	for i := range rules {
		rules[i].Position = i
	}
	return nil
}

func (m memoryRules) indexLocked(id string) int {
	for i, r := range m.s.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m memoryRules) renumberLocked() {
	for i := range m.s.rules {
		m.s.rules[i].Position = i
	}
}

type memoryAgents struct{ s *MemoryStore }

func (m memoryAgents) Create(_ context.Context, agent *domain.Agent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.agents[agent.ID]; exists {
		return fmt.Errorf("agent %s already exists", agent.ID)
	}
	for _, a := range m.s.agents {
		if strings.EqualFold(a.Email, agent.Email) {
			return fmt.Errorf("agent email %s already exists", agent.Email)
		}
	}
	m.s.agents[agent.ID] = cloneAgent(*agent)
	return nil
}

func (m memoryAgents) Update(_ context.Context, agent *domain.Agent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.agents[agent.ID]; !ok {
		return ErrNotFound
	}
	m.s.agents[agent.ID] = cloneAgent(*agent)
	return nil
}

func (m memoryAgents) Get(_ context.Context, id string) (*domain.Agent, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	agent, ok := m.s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneAgent(agent)
	return &out, nil
}

func (m memoryAgents) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, agent := range m.s.agents {
		if strings.EqualFold(agent.Email, email) {
			out := cloneAgent(agent)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m memoryAgents) List(_ context.Context, filter AgentFilter) ([]domain.Agent, error) {
	m.s.mu.RLock()
	result := make([]domain.Agent, 0, len(m.s.agents))
	for _, agent := range m.s.agents {
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		result = append(result, cloneAgent(agent))
	}
	m.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func cloneAgent(a domain.Agent) domain.Agent {
	out := a
	out.Skills = append([]domain.TicketCategory(nil), a.Skills...)
	if a.AssetFamiliarity != nil {
		out.AssetFamiliarity = make(map[string]int, len(a.AssetFamiliarity))
		for k, v := range a.AssetFamiliarity {
			out.AssetFamiliarity[k] = v
		}
	}
	return out
}

type memoryMessages struct{ s *MemoryStore }

func (m memoryMessages) Append(_ context.Context, msg *domain.TicketMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.messages[msg.TicketID] = append(m.s.messages[msg.TicketID], *msg)
	return nil
}

func (m memoryMessages) AppendBatch(_ context.Context, msgs []domain.TicketMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, msg := range msgs {
		m.s.messages[msg.TicketID] = append(m.s.messages[msg.TicketID], msg)
	}
	return nil
}

func (m memoryMessages) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]domain.TicketMessage, len(m.s.messages[ticketID]))
	copy(out, m.s.messages[ticketID])
	return out, nil
}

type memoryAudit struct{ s *MemoryStore }

func (m memoryAudit) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.audit = append(m.s.audit, *entry)
	return nil
}

func (m memoryAudit) List(_ context.Context, filter AuditFilter) ([]domain.AuditLogEntry, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	result := []domain.AuditLogEntry{}
	for i := len(m.s.audit) - 1; i >= 0; i-- {
		entry := m.s.audit[i]
		if filter.TicketID != nil && (entry.TicketID == nil || *entry.TicketID != *filter.TicketID) {
			continue
		}
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		result = append(result, entry)
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []domain.AuditLogEntry{}, nil
	}
	result = result[offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
