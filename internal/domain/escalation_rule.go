package domain

import "time"

// RuleCondition selects tickets. Nil fields are wildcards; set fields are ANDed.
type RuleCondition struct {
	Priority  *TicketPriority
	Category  *TicketCategory
	SLAStatus *SLAStatus
}

// RuleAction describes the mutation applied when a rule fires.
type RuleAction struct {
	AssignToUserID *string
	TargetGroupID  *string
	NewPriority    *TicketPriority
	Note           string
}

// EscalationRule maps a condition to an action. Rules are evaluated in
// Position order and the first match wins.
type EscalationRule struct {
	ID        string
	Name      string
	IsActive  bool
	Position  int
	Condition RuleCondition
	Action    RuleAction
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the rule.
func (r EscalationRule) Clone() EscalationRule {
	out := r
	out.Condition.Priority = clonePtr(r.Condition.Priority)
	out.Condition.Category = clonePtr(r.Condition.Category)
	out.Condition.SLAStatus = clonePtr(r.Condition.SLAStatus)
	out.Action.AssignToUserID = clonePtr(r.Action.AssignToUserID)
	out.Action.TargetGroupID = clonePtr(r.Action.TargetGroupID)
	out.Action.NewPriority = clonePtr(r.Action.NewPriority)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
