package sla

import (
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// Status derives the SLA standing of a ticket at now. Settled tickets are
// always on track; otherwise a ticket is at risk once strictly less than a
// fifth of its window remains.
func Status(ticket *domain.Ticket, now time.Time) domain.SLAStatus {
	if ticket.Status.Settled() {
		return domain.SLAStatusOnTrack
	}
	timeLeft := ticket.SLATarget.Sub(now)
	if timeLeft < 0 {
		return domain.SLAStatusBreached
	}
	window := ticket.SLATarget.Sub(ticket.CreatedAt)
	// timeLeft/window < 0.20 without floating point.
	if timeLeft*5 < window {
		return domain.SLAStatusAtRisk
	}
	return domain.SLAStatusOnTrack
}

// StableFor reports how long Status keeps returning the value it returns at
// now. Zero means the status will not change with time alone.
func StableFor(ticket *domain.Ticket, now time.Time) time.Duration {
	if ticket.Status.Settled() {
		return 0
	}
	timeLeft := ticket.SLATarget.Sub(now)
	if timeLeft < 0 {
		return 0
	}
	window := ticket.SLATarget.Sub(ticket.CreatedAt)
	if timeLeft*5 < window {
		return timeLeft
	}
	return timeLeft - window/5
}
