package escalation

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// RuleFile is the on-disk representation of an ordered rule list.
//
//	rules:
//	  - name: Critical breach to duty manager
//	    when:
//	      priority: CRITICAL
//	      sla_status: BREACHED
//	    then:
//	      assign_to: agent-duty-manager
//	      note: Paged duty manager
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule entry in a RuleFile.
type RuleSpec struct {
	ID     string        `yaml:"id,omitempty"`
	Name   string        `yaml:"name"`
	Active *bool         `yaml:"active,omitempty"`
	When   ConditionSpec `yaml:"when"`
	Then   ActionSpec    `yaml:"then"`
}

// ConditionSpec mirrors domain.RuleCondition.
type ConditionSpec struct {
	Priority  string `yaml:"priority,omitempty"`
	Category  string `yaml:"category,omitempty"`
	SLAStatus string `yaml:"sla_status,omitempty"`
}

// ActionSpec mirrors domain.RuleAction.
type ActionSpec struct {
	AssignTo    string `yaml:"assign_to,omitempty"`
	TargetGroup string `yaml:"target_group,omitempty"`
	NewPriority string `yaml:"new_priority,omitempty"`
	Note        string `yaml:"note,omitempty"`
}

// LoadRulesFile reads and validates a YAML rule file.
func LoadRulesFile(path string) ([]domain.EscalationRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// LoadRules decodes rules in file order. Position follows the file order
// and rules without an explicit active flag are active.
func LoadRules(r io.Reader) ([]domain.EscalationRule, error) {
	var file RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return []domain.EscalationRule{}, nil
		}
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	now := time.Now().UTC()
	rules := make([]domain.EscalationRule, 0, len(file.Rules))
	seen := make(map[string]struct{}, len(file.Rules))
	for i, spec := range file.Rules {
		rule := spec.toDomain(i, now)
		if err := ValidateRule(&rule); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, spec.Name, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, fmt.Errorf("rule %d (%s): duplicate id %q", i+1, spec.Name, rule.ID)
		}
		seen[rule.ID] = struct{}{}
		rules = append(rules, rule)
	}
	return rules, nil
}

// EncodeRules writes rules back out in the RuleFile format.
func EncodeRules(w io.Writer, rules []domain.EscalationRule) error {
	file := RuleFile{Rules: make([]RuleSpec, 0, len(rules))}
	for _, rule := range rules {
		active := rule.IsActive
		spec := RuleSpec{
			ID:     rule.ID,
			Name:   rule.Name,
			Active: &active,
			Then:   ActionSpec{Note: rule.Action.Note},
		}
		if p := rule.Condition.Priority; p != nil {
			spec.When.Priority = string(*p)
		}
		if c := rule.Condition.Category; c != nil {
			spec.When.Category = string(*c)
		}
		if s := rule.Condition.SLAStatus; s != nil {
			spec.When.SLAStatus = string(*s)
		}
		if a := rule.Action.AssignToUserID; a != nil {
			spec.Then.AssignTo = *a
		}
		if g := rule.Action.TargetGroupID; g != nil {
			spec.Then.TargetGroup = *g
		}
		if p := rule.Action.NewPriority; p != nil {
			spec.Then.NewPriority = string(*p)
		}
		file.Rules = append(file.Rules, spec)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}

func (s RuleSpec) toDomain(position int, now time.Time) domain.EscalationRule {
	rule := domain.EscalationRule{
		ID:        s.ID,
		Name:      s.Name,
		IsActive:  s.Active == nil || *s.Active,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
		Action:    domain.RuleAction{Note: s.Then.Note},
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if s.When.Priority != "" {
		p := domain.TicketPriority(s.When.Priority)
		rule.Condition.Priority = &p
	}
	if s.When.Category != "" {
		c := domain.TicketCategory(s.When.Category)
		rule.Condition.Category = &c
	}
	if s.When.SLAStatus != "" {
		st := domain.SLAStatus(s.When.SLAStatus)
		rule.Condition.SLAStatus = &st
	}
	if s.Then.AssignTo != "" {
		a := s.Then.AssignTo
		rule.Action.AssignToUserID = &a
	}
	if s.Then.TargetGroup != "" {
		g := s.Then.TargetGroup
		rule.Action.TargetGroupID = &g
	}
	if s.Then.NewPriority != "" {
		p := domain.TicketPriority(s.Then.NewPriority)
		rule.Action.NewPriority = &p
	}
	return rule
}
