package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

func TestComputeDeadline(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		priority domain.TicketPriority
		factor   float64
		wantMS   int64
		wantTier domain.SLATier
	}{
		{"critical at peak", domain.TicketPriorityCritical, 1.2, 17_280_000, domain.SLATierPlatinum},
		{"critical normal", domain.TicketPriorityCritical, 1.0, 4 * msPerHour, domain.SLATierPlatinum},
		{"high off hours", domain.TicketPriorityHigh, 0.8, 23_040_000, domain.SLATierGold},
		{"medium normal", domain.TicketPriorityMedium, 1.0, 24 * msPerHour, domain.SLATierSilver},
		{"low at peak", domain.TicketPriorityLow, 1.2, 311_040_000, domain.SLATierBronze},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDeadline(tt.priority, created, tt.factor)
			assert.Equal(t, tt.wantMS, got.Target.Sub(created).Milliseconds())
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.factor, got.DemandFactorApplied)
			assert.False(t, got.Target.Before(created))
		})
	}
}

func TestTierIsFixedByPriority(t *testing.T) {
	for _, factor := range []float64{0.8, 1.0, 1.2} {
		assert.Equal(t, domain.SLATierPlatinum, ComputeDeadline(domain.TicketPriorityCritical, time.Unix(0, 0), factor).Tier)
		assert.Equal(t, domain.SLATierGold, ComputeDeadline(domain.TicketPriorityHigh, time.Unix(0, 0), factor).Tier)
		assert.Equal(t, domain.SLATierSilver, ComputeDeadline(domain.TicketPriorityMedium, time.Unix(0, 0), factor).Tier)
		assert.Equal(t, domain.SLATierBronze, ComputeDeadline(domain.TicketPriorityLow, time.Unix(0, 0), factor).Tier)
	}
}

func TestCalculatorUsesDemandAtCreation(t *testing.T) {
	calc := NewCalculator(NewHourlyDemand(time.UTC))

	peak := time.Date(2025, 3, 4, 11, 0, 0, 0, time.UTC)
	got := calc.Compute(domain.TicketPriorityCritical, peak)
	assert.Equal(t, 1.2, got.DemandFactorApplied)
	assert.Equal(t, peak.Add(4*time.Hour+48*time.Minute), got.Target)

	night := time.Date(2025, 3, 4, 2, 0, 0, 0, time.UTC)
	got = calc.Compute(domain.TicketPriorityCritical, night)
	assert.Equal(t, 0.8, got.DemandFactorApplied)
	assert.Equal(t, night.Add(3*time.Hour+12*time.Minute), got.Target)
}

func TestNewCalculatorDefaultsToNeutralDemand(t *testing.T) {
	created := time.Date(2025, 3, 4, 11, 0, 0, 0, time.UTC)
	got := NewCalculator(nil).Compute(domain.TicketPriorityHigh, created)
	assert.Equal(t, 1.0, got.DemandFactorApplied)
	assert.Equal(t, created.Add(8*time.Hour), got.Target)
}
