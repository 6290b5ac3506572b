package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// AuditFilter narrows audit listings.
type AuditFilter struct {
	TicketID *string
	Action   *domain.AuditAction
	Limit    int
	Offset   int
}

// AuditLogRepository stores audit entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (id, action, severity, actor_id, ticket_id, rule_name, details, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Action,
		entry.Severity,
		entry.ActorID,
		entry.TicketID,
		entry.RuleName,
		details,
		entry.CreatedAt,
	)
	return err
}

// List returns entries newest first.
func (r *auditLogRepository) List(ctx context.Context, filter AuditFilter) ([]domain.AuditLogEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		clauses = append(clauses, fmt.Sprintf("action=$%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT id, action, severity, actor_id, ticket_id, rule_name, details, created_at
        FROM audit_logs WHERE %s ORDER BY created_at DESC, seq DESC LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AuditLogEntry{}
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.Severity,
			&entry.ActorID,
			&entry.TicketID,
			&entry.RuleName,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
