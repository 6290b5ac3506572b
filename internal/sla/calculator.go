// Package sla computes SLA deadlines for new tickets and derives the live
// SLA status of existing ones.
package sla

import (
	"math"
	"time"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

const msPerHour = 3_600_000

var baseHours = map[domain.TicketPriority]float64{
	domain.TicketPriorityCritical: 4,
	domain.TicketPriorityHigh:     8,
	domain.TicketPriorityMedium:   24,
	domain.TicketPriorityLow:      72,
}

var tiers = map[domain.TicketPriority]domain.SLATier{
	domain.TicketPriorityCritical: domain.SLATierPlatinum,
	domain.TicketPriorityHigh:     domain.SLATierGold,
	domain.TicketPriorityMedium:   domain.SLATierSilver,
	domain.TicketPriorityLow:      domain.SLATierBronze,
}

// Enrichment is the SLA data frozen onto a ticket at creation.
type Enrichment struct {
	Target              time.Time
	Tier                domain.SLATier
	DemandFactorApplied float64
}

// BaseHours returns the unadjusted resolution window for a priority.
func BaseHours(priority domain.TicketPriority) float64 {
	return baseHours[priority]
}

// TierFor maps a priority to its service tier.
func TierFor(priority domain.TicketPriority) domain.SLATier {
	return tiers[priority]
}

// ComputeDeadline stamps a deadline for a priority created at createdAt under
// the given demand factor. The priority must already be validated.
func ComputeDeadline(priority domain.TicketPriority, createdAt time.Time, demandFactor float64) Enrichment {
	adjustedHours := BaseHours(priority) * demandFactor
	ms := math.Round(adjustedHours * msPerHour)
	return Enrichment{
		Target:              createdAt.Add(time.Duration(ms) * time.Millisecond),
		Tier:                TierFor(priority),
		DemandFactorApplied: demandFactor,
	}
}

// Calculator binds ComputeDeadline to a demand source.
type Calculator struct {
	demand DemandSource
}

// NewCalculator builds a calculator. A nil source means a constant factor of 1.
func NewCalculator(demand DemandSource) *Calculator {
	if demand == nil {
		demand = FixedDemand(DefaultNormalFactor)
	}
	return &Calculator{demand: demand}
}

// Compute reads the demand factor in effect at createdAt and computes the deadline.
func (c *Calculator) Compute(priority domain.TicketPriority, createdAt time.Time) Enrichment {
	return ComputeDeadline(priority, createdAt, c.demand.Factor(createdAt))
}
