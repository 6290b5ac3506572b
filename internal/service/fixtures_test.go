package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
)

var testNow = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder(types ...events.EventType) (*recorder, events.Dispatcher) {
	r := &recorder{}
	d := events.NewInMemoryDispatcher()
	for _, t := range types {
		d.Subscribe(t, func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		})
	}
	return r, d
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// seedTicket stores an open ticket created age ago with a window of the
// given length.
func seedTicket(t *testing.T, store *repository.MemoryStore, id string, priority domain.TicketPriority, age, window time.Duration) domain.Ticket {
	t.Helper()
	created := testNow.Add(-age)
	ticket := domain.Ticket{
		ID:                  id,
		Title:               "ticket " + id,
		RequesterID:         "requester-1",
		Priority:            priority,
		Category:            domain.CategoryNetwork,
		Status:              domain.TicketStatusOpen,
		CreatedAt:           created,
		UpdatedAt:           created,
		SLATarget:           created.Add(window),
		SLATier:             domain.SLATierGold,
		DemandFactorApplied: 1,
	}
	require.NoError(t, store.Tickets().Create(context.Background(), &ticket))
	return ticket
}

func seedAgent(t *testing.T, store *repository.MemoryStore, agent domain.Agent) {
	t.Helper()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = testNow
		agent.UpdatedAt = testNow
	}
	require.NoError(t, store.Agents().Create(context.Background(), &agent))
}

func seedRule(t *testing.T, store *repository.MemoryStore, rule domain.EscalationRule) {
	t.Helper()
	rule.IsActive = true
	require.NoError(t, store.Rules().Create(context.Background(), &rule))
}

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func slaPtr(s domain.SLAStatus) *domain.SLAStatus { return &s }

// interleavedTickets lets a competing writer run at one point inside another
// operation: after its first List, after its first Get or just before its
// first SaveEscalations. Each hook fires once.
type interleavedTickets struct {
	repository.TicketRepository
	afterList  func()
	afterGet   func()
	beforeSave func()
}

func fireOnce(hook *func()) {
	if h := *hook; h != nil {
		*hook = nil
		h()
	}
}

func (r *interleavedTickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	out, err := r.TicketRepository.List(ctx, filter)
	fireOnce(&r.afterList)
	return out, err
}

func (r *interleavedTickets) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	out, err := r.TicketRepository.Get(ctx, id)
	fireOnce(&r.afterGet)
	return out, err
}

func (r *interleavedTickets) SaveEscalations(ctx context.Context, writes []repository.EscalationWrite) ([]domain.Ticket, error) {
	fireOnce(&r.beforeSave)
	return r.TicketRepository.SaveEscalations(ctx, writes)
}
