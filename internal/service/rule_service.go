package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/escalation"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// RuleService manages the ordered escalation rule list.
type RuleService struct {
	rules  repository.RuleRepository
	audit  repository.AuditLogRepository
	clock  sla.Clock
	logger *zap.Logger
}

// RuleInput carries the editable fields of a rule. A nil IsActive defaults
// to true on create and leaves the flag unchanged on update.
type RuleInput struct {
	Name      string
	IsActive  *bool
	Condition domain.RuleCondition
	Action    domain.RuleAction
}

// NewRuleService constructs the service.
func NewRuleService(rules repository.RuleRepository, audit repository.AuditLogRepository, clock sla.Clock, logger *zap.Logger) *RuleService {
	if clock == nil {
		clock = sla.SystemClock
	}
	return &RuleService{rules: rules, audit: audit, clock: clock, logger: nopIfNil(logger)}
}

// List returns rules in evaluation order.
func (s *RuleService) List(ctx context.Context) ([]domain.EscalationRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return rules, nil
}

// Create appends a rule to the end of the list.
func (s *RuleService) Create(ctx context.Context, actorID string, input RuleInput) (*domain.EscalationRule, error) {
	now := s.clock.Now().UTC()
	rule := &domain.EscalationRule{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		IsActive:  input.IsActive == nil || *input.IsActive,
		Condition: input.Condition,
		Action:    input.Action,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	s.recordChange(ctx, actorID, "created", rule)
	return rule, nil
}

// Update rewrites a rule's fields without moving it.
func (s *RuleService) Update(ctx context.Context, actorID, ruleID string, input RuleInput) (*domain.EscalationRule, error) {
	rule, err := s.rules.Get(ctx, ruleID)
	if err != nil {
		return nil, mapRepoError(err, "rule", ruleID)
	}
	rule.Name = strings.TrimSpace(input.Name)
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	rule.Condition = input.Condition
	rule.Action = input.Action
	rule.UpdatedAt = s.clock.Now().UTC()
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, mapRepoError(err, "rule", ruleID)
	}
	s.recordChange(ctx, actorID, "updated", rule)
	return rule, nil
}

// Delete removes a rule; later rules move up.
func (s *RuleService) Delete(ctx context.Context, actorID, ruleID string) error {
	rule, err := s.rules.Get(ctx, ruleID)
	if err != nil {
		return mapRepoError(err, "rule", ruleID)
	}
	if err := s.rules.Delete(ctx, ruleID); err != nil {
		return mapRepoError(err, "rule", ruleID)
	}
	s.recordChange(ctx, actorID, "deleted", rule)
	return nil
}

// Reorder sets the evaluation order. ids must list every rule exactly once.
func (s *RuleService) Reorder(ctx context.Context, actorID string, ids []string) ([]domain.EscalationRule, error) {
	if err := s.rules.Reorder(ctx, ids); err != nil {
		if errors.Is(err, repository.ErrInvalidOrder) {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"ids": ids})
		}
		return nil, apperrors.ToDomainError(err)
	}
	appendAudit(ctx, s.audit, s.logger, &domain.AuditLogEntry{
		ID:        uuid.NewString(),
		Action:    domain.AuditActionRuleChanged,
		Severity:  domain.AuditSeverityInfo,
		ActorID:   actorID,
		Details:   map[string]any{"change": "reordered", "order": ids},
		CreatedAt: s.clock.Now().UTC(),
	})
	return s.List(ctx)
}

// LoadRulesFromFile seeds an empty rule list from a YAML file. A populated
// list is left alone and reported as not loaded.
func (s *RuleService) LoadRulesFromFile(ctx context.Context, path string) (bool, error) {
	existing, err := s.rules.List(ctx)
	if err != nil {
		return false, apperrors.ToDomainError(err)
	}
	if len(existing) > 0 {
		s.logger.Info("escalation rules already present; skipping rules file",
			zap.String("path", path), zap.Int("rules", len(existing)))
		return false, nil
	}
	rules, err := escalation.LoadRulesFile(path)
	if err != nil {
		return false, err
	}
	if err := s.rules.ReplaceAll(ctx, rules); err != nil {
		return false, apperrors.ToDomainError(err)
	}
	s.logger.Info("escalation rules loaded", zap.String("path", path), zap.Int("rules", len(rules)))
	return true, nil
}

func (s *RuleService) recordChange(ctx context.Context, actorID, change string, rule *domain.EscalationRule) {
	appendAudit(ctx, s.audit, s.logger, &domain.AuditLogEntry{
		ID:       uuid.NewString(),
		Action:   domain.AuditActionRuleChanged,
		Severity: domain.AuditSeverityInfo,
		ActorID:  actorID,
		RuleName: rule.Name,
		Details: map[string]any{
			"change":   change,
			"rule_id":  rule.ID,
			"position": rule.Position,
			"active":   rule.IsActive,
		},
		CreatedAt: s.clock.Now().UTC(),
	})
}

func validateRule(rule *domain.EscalationRule) error {
	if err := escalation.ValidateRule(rule); err != nil {
		return apperrors.NewValidationError("invalid escalation rule", map[string]any{"rule": err.Error()})
	}
	return nil
}
