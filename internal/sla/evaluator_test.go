package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

func openTicket(created time.Time, priority domain.TicketPriority, factor float64) *domain.Ticket {
	enr := ComputeDeadline(priority, created, factor)
	return &domain.Ticket{
		ID:                  "t-1",
		Priority:            priority,
		Status:              domain.TicketStatusOpen,
		CreatedAt:           created,
		SLATarget:           enr.Target,
		SLATier:             enr.Tier,
		DemandFactorApplied: enr.DemandFactorApplied,
	}
}

func TestStatusCriticalAtPeakScenario(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := openTicket(created, domain.TicketPriorityCritical, 1.2)

	assert.Equal(t, created.Add(4*time.Hour+48*time.Minute), ticket.SLATarget)
	assert.Equal(t, domain.SLAStatusBreached, Status(ticket, created.Add(4*time.Hour+54*time.Minute)))
	assert.Equal(t, domain.SLAStatusAtRisk, Status(ticket, created.Add(4*time.Hour)))
	assert.Equal(t, domain.SLAStatusOnTrack, Status(ticket, created.Add(3*time.Hour)))
}

func TestStatusBoundaryIsStrict(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Status:    domain.TicketStatusInProgress,
		CreatedAt: created,
		SLATarget: created.Add(1_000_000 * time.Millisecond),
	}

	exactlyTwentyPercent := ticket.SLATarget.Add(-200_000 * time.Millisecond)
	assert.Equal(t, domain.SLAStatusOnTrack, Status(ticket, exactlyTwentyPercent))

	justUnder := ticket.SLATarget.Add(-199_999 * time.Millisecond)
	assert.Equal(t, domain.SLAStatusAtRisk, Status(ticket, justUnder))

	assert.Equal(t, domain.SLAStatusAtRisk, Status(ticket, ticket.SLATarget))
	assert.Equal(t, domain.SLAStatusBreached, Status(ticket, ticket.SLATarget.Add(time.Millisecond)))
}

func TestStatusSettledTicketsAreAlwaysOnTrack(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed} {
		ticket := openTicket(created, domain.TicketPriorityCritical, 1.0)
		ticket.Status = status
		for _, offset := range []time.Duration{0, time.Hour, 4 * time.Hour, 30 * 24 * time.Hour} {
			assert.Equal(t, domain.SLAStatusOnTrack, Status(ticket, created.Add(offset)), "%s +%s", status, offset)
		}
	}
}

func TestStatusIsMonotonicOnceBreached(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := openTicket(created, domain.TicketPriorityHigh, 0.8)

	breached := false
	for step := time.Duration(0); step <= 12*time.Hour; step += 7 * time.Minute {
		status := Status(ticket, created.Add(step))
		if breached {
			assert.Equal(t, domain.SLAStatusBreached, status, "step %s", step)
		}
		if status == domain.SLAStatusBreached {
			breached = true
		}
	}
	assert.True(t, breached)
}

func TestStatusAwaitingCustomerStillRunsTheClock(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := openTicket(created, domain.TicketPriorityCritical, 1.0)
	ticket.Status = domain.TicketStatusAwaitingCustomer

	assert.Equal(t, domain.SLAStatusBreached, Status(ticket, created.Add(5*time.Hour)))
}

func TestStableForEndsAtNextThreshold(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Status:    domain.TicketStatusOpen,
		CreatedAt: created,
		SLATarget: created.Add(10 * time.Hour),
	}

	cases := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"on track until the last fifth", created.Add(time.Hour), 7 * time.Hour},
		{"at risk until the target", created.Add(9 * time.Hour), time.Hour},
		{"breached stays breached", created.Add(11 * time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := StableFor(ticket, tc.at)
			assert.Equal(t, tc.want, d)
			if d > 0 {
				before := Status(ticket, tc.at)
				assert.Equal(t, before, Status(ticket, tc.at.Add(d-time.Millisecond)))
				assert.NotEqual(t, before, Status(ticket, tc.at.Add(d+time.Millisecond)))
			}
		})
	}

	resolved := *ticket
	resolved.Status = domain.TicketStatusResolved
	assert.Zero(t, StableFor(&resolved, created.Add(time.Hour)))
}
