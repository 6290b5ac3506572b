package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent   AgentRole = "AGENT"
	AgentRoleManager AgentRole = "MANAGER"
	AgentRoleAdmin   AgentRole = "ADMIN"
)

// Valid reports whether the role is known.
func (r AgentRole) Valid() bool {
	return r == AgentRoleAgent || r == AgentRoleManager || r == AgentRoleAdmin
}

// Agent models a support agent, manager or administrator along with the
// attributes used for assignment ranking.
type Agent struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Role              AgentRole
	Active            bool
	Skills            []TicketCategory
	EfficiencyRating  int
	ActiveTicketCount int
	AssetFamiliarity  map[string]int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasSkill reports whether the agent covers the category.
func (a *Agent) HasSkill(category TicketCategory) bool {
	for _, s := range a.Skills {
		if s == category {
			return true
		}
	}
	return false
}

// ScoreBreakdown itemizes the factors behind an AgentScore.
type ScoreBreakdown struct {
	SkillMatch       float64
	History          float64
	Workload         float64
	AssetFamiliarity float64
}

// Sum adds the unrounded contributions.
func (b ScoreBreakdown) Sum() float64 {
	return b.SkillMatch + b.History + b.Workload + b.AssetFamiliarity
}

// AgentScore is one entry of a ranked suggestion list.
type AgentScore struct {
	Agent      Agent
	TotalScore int
	Breakdown  ScoreBreakdown
}
