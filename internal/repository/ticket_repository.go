package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// TicketFilter captures list parameters. Live SLA status filtering happens
// in the service layer since status is never stored.
type TicketFilter struct {
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	Categories      []domain.TicketCategory
	AssignedAgentID *string
	Escalated       *bool
	OpenOnly        bool
	Limit           int
	Offset          int
}

// EscalationWrite carries the fields one escalation changes. Nil fields were
// not touched by the rule and keep whatever value storage holds.
type EscalationWrite struct {
	TicketID        string
	Priority        *domain.TicketPriority
	AssignedAgentID *string
	AssignedGroupID *string
	UpdatedAt       time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Replace stores the mutable fields of ticket. CreatedAt and the SLA
	// stamp are never overwritten and IsEscalated never reverts to false.
	Replace(ctx context.Context, ticket *domain.Ticket) error
	// UpdateStatus moves a ticket from one status to another. It returns
	// ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.TicketStatus, updatedAt time.Time) (*domain.Ticket, error)
	// Assign sets the assignee of an open ticket and reports the assignee it
	// replaced. Settled tickets yield ErrConflict.
	Assign(ctx context.Context, id, agentID string, updatedAt time.Time) (*domain.Ticket, *string, error)
	// SaveEscalations flags each ticket that is still open and not yet
	// escalated in storage and writes only the non-nil fields of its write.
	// It returns the stored rows that were written.
	SaveEscalations(ctx context.Context, writes []EscalationWrite) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, requester_id, priority, category, status,
        created_at, updated_at, sla_target, sla_tier, demand_factor_applied, is_escalated,
        assigned_agent_id, assigned_group_id, asset_id, asset_model`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, requester_id, priority, category, status,
            created_at, updated_at, sla_target, sla_tier, demand_factor_applied, is_escalated,
            assigned_agent_id, assigned_group_id, asset_id, asset_model)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	assetID, assetModel := assetColumns(ticket.LinkedAsset)
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.RequesterID,
		ticket.Priority,
		ticket.Category,
		ticket.Status,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.SLATarget,
		ticket.SLATier,
		ticket.DemandFactorApplied,
		ticket.IsEscalated,
		ticket.AssignedAgentID,
		ticket.AssignedGroupID,
		assetID,
		assetModel,
	)
	return err
}

func (r *ticketRepository) Replace(ctx context.Context, ticket *domain.Ticket) error {
	return replaceTicket(ctx, r.pool, ticket)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, from, to domain.TicketStatus, updatedAt time.Time) (*domain.Ticket, error) {
	query := `UPDATE tickets SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4 RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, to, updatedAt, id, from))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrConflict(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *ticketRepository) Assign(ctx context.Context, id, agentID string, updatedAt time.Time) (*domain.Ticket, *string, error) {
	var (
		ticket   *domain.Ticket
		previous *string
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status domain.TicketStatus
		err := tx.QueryRow(ctx, `SELECT status, assigned_agent_id FROM tickets WHERE id=$1 FOR UPDATE`, id).
			Scan(&status, &previous)
		if err != nil {
			return mapNoRows(err)
		}
		if status.Settled() {
			return ErrConflict
		}
		query := `UPDATE tickets SET assigned_agent_id=$1, updated_at=$2 WHERE id=$3 RETURNING ` + ticketColumns
		ticket, err = scanTicket(tx.QueryRow(ctx, query, agentID, updatedAt, id))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return ticket, previous, nil
}

func (r *ticketRepository) SaveEscalations(ctx context.Context, writes []EscalationWrite) ([]domain.Ticket, error) {
	if len(writes) == 0 {
		return nil, nil
	}
	query := `
        UPDATE tickets SET is_escalated=TRUE,
            priority=COALESCE($1, priority),
            assigned_agent_id=COALESCE($2, assigned_agent_id),
            assigned_group_id=COALESCE($3, assigned_group_id),
            updated_at=$4
        WHERE id=$5 AND is_escalated=FALSE AND status NOT IN ('RESOLVED','CLOSED')
        RETURNING ` + ticketColumns
	var applied []domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		applied = applied[:0]
		for i := range writes {
			w := &writes[i]
			ticket, err := scanTicket(tx.QueryRow(ctx, query, w.Priority, w.AssignedAgentID, w.AssignedGroupID, w.UpdatedAt, w.TicketID))
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("save escalation %s: %w", w.TicketID, err)
			}
			applied = append(applied, *ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func replaceTicket(ctx context.Context, db rowQuerier, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, category=$4, status=$5,
            updated_at=$6, is_escalated=(is_escalated OR $7), assigned_agent_id=$8,
            assigned_group_id=$9, asset_id=$10, asset_model=$11
        WHERE id=$12
        RETURNING created_at, sla_target, sla_tier, demand_factor_applied, is_escalated`
	assetID, assetModel := assetColumns(ticket.LinkedAsset)
	err := db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Category,
		ticket.Status,
		ticket.UpdatedAt,
		ticket.IsEscalated,
		ticket.AssignedAgentID,
		ticket.AssignedGroupID,
		assetID,
		assetModel,
		ticket.ID,
	).Scan(&ticket.CreatedAt, &ticket.SLATarget, &ticket.SLATier, &ticket.DemandFactorApplied, &ticket.IsEscalated)
	return mapNoRows(err)
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			args = append(args, c)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if filter.Escalated != nil {
		args = append(args, *filter.Escalated)
		clauses = append(clauses, fmt.Sprintf("is_escalated=$%d", len(args)))
	}
	if filter.OpenOnly {
		clauses = append(clauses, "status NOT IN ('RESOLVED','CLOSED')")
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at ASC, id ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket     domain.Ticket
		assetID    *string
		assetModel *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.RequesterID,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.SLATarget,
		&ticket.SLATier,
		&ticket.DemandFactorApplied,
		&ticket.IsEscalated,
		&ticket.AssignedAgentID,
		&ticket.AssignedGroupID,
		&assetID,
		&assetModel,
	); err != nil {
		return nil, err
	}
	if assetID != nil {
		ticket.LinkedAsset = &domain.AssetRef{ID: *assetID}
		if assetModel != nil {
			ticket.LinkedAsset.ModelName = *assetModel
		}
	}
	return &ticket, nil
}

func assetColumns(ref *domain.AssetRef) (*string, *string) {
	if ref == nil {
		return nil, nil
	}
	id, model := ref.ID, ref.ModelName
	return &id, &model
}
