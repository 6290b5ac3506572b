package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

// TicketMessageRepository stores ticket threads. Messages are never updated
// or deleted.
type TicketMessageRepository interface {
	Append(ctx context.Context, msg *domain.TicketMessage) error
	// AppendBatch writes msgs in one round trip, in order.
	AppendBatch(ctx context.Context, msgs []domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds the pgx-backed repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

const insertMessageSQL = `
        INSERT INTO ticket_messages (id, ticket_id, author_type, author_id, message_type, body, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

func messageArgs(msg *domain.TicketMessage) []any {
	return []any{msg.ID, msg.TicketID, msg.AuthorType, msg.AuthorID, msg.MessageType, msg.Body, msg.CreatedAt}
}

func (r *ticketMessageRepository) Append(ctx context.Context, msg *domain.TicketMessage) error {
	_, err := r.pool.Exec(ctx, insertMessageSQL, messageArgs(msg)...)
	return err
}

func (r *ticketMessageRepository) AppendBatch(ctx context.Context, msgs []domain.TicketMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range msgs {
		batch.Queue(insertMessageSQL, messageArgs(&msgs[i])...)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range msgs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("message %s: %w", msgs[i].ID, err)
		}
	}
	return nil
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, author_type, author_id, message_type, body, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketMessage, error) {
		var msg domain.TicketMessage
		err := row.Scan(&msg.ID, &msg.TicketID, &msg.AuthorType, &msg.AuthorID, &msg.MessageType, &msg.Body, &msg.CreatedAt)
		return msg, err
	})
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.TicketMessage{}
	}
	return msgs, nil
}
