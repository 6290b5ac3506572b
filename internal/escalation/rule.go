package escalation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// Matches reports whether every condition field that is set equals the
// ticket's value. An empty condition matches every ticket.
func Matches(cond domain.RuleCondition, ticket *domain.Ticket, status domain.SLAStatus) bool {
	if cond.Priority != nil && *cond.Priority != ticket.Priority {
		return false
	}
	if cond.Category != nil && *cond.Category != ticket.Category {
		return false
	}
	if cond.SLAStatus != nil && *cond.SLAStatus != status {
		return false
	}
	return true
}

// SelectRule returns the first active rule, in slice order, whose condition
// matches the ticket.
func SelectRule(rules []domain.EscalationRule, ticket *domain.Ticket, status domain.SLAStatus) (*domain.EscalationRule, bool) {
	for i := range rules {
		if !rules[i].IsActive {
			continue
		}
		if Matches(rules[i].Condition, ticket, status) {
			return &rules[i], true
		}
	}
	return nil, false
}

// ValidateRule checks enum values and required fields of a rule.
func ValidateRule(rule *domain.EscalationRule) error {
	var problems []string
	if strings.TrimSpace(rule.Name) == "" {
		problems = append(problems, "name required")
	}
	if p := rule.Condition.Priority; p != nil && !p.Valid() {
		problems = append(problems, fmt.Sprintf("invalid condition priority %q", *p))
	}
	if c := rule.Condition.Category; c != nil && !c.Valid() {
		problems = append(problems, fmt.Sprintf("invalid condition category %q", *c))
	}
	if s := rule.Condition.SLAStatus; s != nil && !s.Valid() {
		problems = append(problems, fmt.Sprintf("invalid condition sla status %q", *s))
	}
	if p := rule.Action.NewPriority; p != nil && !p.Valid() {
		problems = append(problems, fmt.Sprintf("invalid action priority %q", *p))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
