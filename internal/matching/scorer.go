// Package matching ranks candidate agents for a ticket.
package matching

import (
	"math"
	"sort"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

const (
	skillMatchPoints   = 40.0
	skillMissPoints    = 5.0
	historyWeight      = 25.0
	workloadWeight     = 20.0
	workloadCapacity   = 10.0
	familiarityWeight  = 15.0
	percentDenominator = 100.0
)

// Score computes the breakdown for a single agent.
func Score(ticket *domain.Ticket, agent *domain.Agent) domain.AgentScore {
	b := domain.ScoreBreakdown{
		SkillMatch: skillMissPoints,
		History:    float64(agent.EfficiencyRating) / percentDenominator * historyWeight,
		Workload:   math.Max(0, (workloadCapacity-float64(agent.ActiveTicketCount))/workloadCapacity) * workloadWeight,
	}
	if agent.HasSkill(ticket.Category) {
		b.SkillMatch = skillMatchPoints
	}
	if ticket.LinkedAsset != nil {
		if familiarity, ok := agent.AssetFamiliarity[ticket.LinkedAsset.ModelName]; ok {
			b.AssetFamiliarity = float64(familiarity) / percentDenominator * familiarityWeight
		}
	}
	return domain.AgentScore{
		Agent:      *agent,
		TotalScore: int(math.Round(b.Sum())),
		Breakdown:  b,
	}
}

// RankAgents scores every agent and orders them best first. Agents with equal
// totals keep their input order. Neither the ticket nor the agents are modified.
func RankAgents(ticket *domain.Ticket, agents []domain.Agent) []domain.AgentScore {
	scores := make([]domain.AgentScore, 0, len(agents))
	for i := range agents {
		scores = append(scores, Score(ticket, &agents[i]))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})
	return scores
}
