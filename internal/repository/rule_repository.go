package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// RuleRepository stores escalation rules as an ordered list. List always
// returns rules by ascending Position and positions are kept dense.
type RuleRepository interface {
	List(ctx context.Context) ([]domain.EscalationRule, error)
	Get(ctx context.Context, id string) (*domain.EscalationRule, error)
	// Create appends the rule at the end of the list.
	Create(ctx context.Context, rule *domain.EscalationRule) error
	// Update changes a rule in place without moving it.
	Update(ctx context.Context, rule *domain.EscalationRule) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
	ReplaceAll(ctx context.Context, rules []domain.EscalationRule) error
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `id, name, is_active, position, cond_priority, cond_category, cond_sla_status,
        action_assign_to, action_target_group, action_new_priority, action_note, created_at, updated_at`

func (r *ruleRepository) List(ctx context.Context) ([]domain.EscalationRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ruleColumns+` FROM escalation_rules ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.EscalationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func (r *ruleRepository) Get(ctx context.Context, id string) (*domain.EscalationRule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM escalation_rules WHERE id=$1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return rule, nil
}

func (r *ruleRepository) Create(ctx context.Context, rule *domain.EscalationRule) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM escalation_rules`).Scan(&rule.Position); err != nil {
			return err
		}
		return insertRule(ctx, tx, rule)
	})
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        UPDATE escalation_rules SET name=$1, is_active=$2, cond_priority=$3, cond_category=$4,
            cond_sla_status=$5, action_assign_to=$6, action_target_group=$7, action_new_priority=$8,
            action_note=$9, updated_at=$10
        WHERE id=$11
        RETURNING position, created_at`
	err := r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.IsActive,
		rule.Condition.Priority,
		rule.Condition.Category,
		rule.Condition.SLAStatus,
		rule.Action.AssignToUserID,
		rule.Action.TargetGroupID,
		rule.Action.NewPriority,
		rule.Action.Note,
		rule.UpdatedAt,
		rule.ID,
	).Scan(&rule.Position, &rule.CreatedAt)
	return mapNoRows(err)
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM escalation_rules WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx, `
            UPDATE escalation_rules AS r SET position = o.rn - 1
            FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY position) AS rn FROM escalation_rules) AS o
            WHERE r.id = o.id`)
		return err
	})
}

func (r *ruleRepository) Reorder(ctx context.Context, ids []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM escalation_rules FOR UPDATE`)
		if err != nil {
			return err
		}
		existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		if !isPermutation(existing, ids) {
			return ErrInvalidOrder
		}
		for i, id := range ids {
			if _, err := tx.Exec(ctx, `UPDATE escalation_rules SET position=$1 WHERE id=$2`, i, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ruleRepository) ReplaceAll(ctx context.Context, rules []domain.EscalationRule) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM escalation_rules`); err != nil {
			return err
		}
		for i := range rules {
			rules[i].Position = i
			if err := insertRule(ctx, tx, &rules[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRule(ctx context.Context, tx pgx.Tx, rule *domain.EscalationRule) error {
	const query = `
        INSERT INTO escalation_rules (id, name, is_active, position, cond_priority, cond_category,
            cond_sla_status, action_assign_to, action_target_group, action_new_priority, action_note,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := tx.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.IsActive,
		rule.Position,
		rule.Condition.Priority,
		rule.Condition.Category,
		rule.Condition.SLAStatus,
		rule.Action.AssignToUserID,
		rule.Action.TargetGroupID,
		rule.Action.NewPriority,
		rule.Action.Note,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	return err
}

func scanRule(row pgx.Row) (*domain.EscalationRule, error) {
	var rule domain.EscalationRule
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.IsActive,
		&rule.Position,
		&rule.Condition.Priority,
		&rule.Condition.Category,
		&rule.Condition.SLAStatus,
		&rule.Action.AssignToUserID,
		&rule.Action.TargetGroupID,
		&rule.Action.NewPriority,
		&rule.Action.Note,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

func isPermutation(existing, ids []string) bool {
	if len(existing) != len(ids) {
		return false
	}
	want := make(map[string]int, len(existing))
	for _, id := range existing {
		want[id]++
	}
	for _, id := range ids {
		if want[id] == 0 {
			return false
		}
		want[id]--
	}
	return true
}
