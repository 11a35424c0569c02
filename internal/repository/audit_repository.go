package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/persistence"
)

// AuditRepository appends and reads the immutable audit trail. There is
// deliberately no update or delete.
type AuditRepository interface {
	Insert(ctx context.Context, q persistence.Queryable, event *domain.AuditEvent) error
	ListByGuild(ctx context.Context, q persistence.Queryable, guildID string, limit, offset int) ([]domain.AuditEvent, error)
	ListByTicket(ctx context.Context, q persistence.Queryable, guildID string, ticketID int64) ([]domain.AuditEvent, error)
}

type auditRepository struct{}

// NewAuditRepository instantiates repository.
func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Insert(ctx context.Context, q persistence.Queryable, event *domain.AuditEvent) error {
	const query = `
        INSERT INTO audit_events (guild_id, actor_id, category, action, target_type, target_id, ticket_id, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		event.GuildID,
		event.ActorID,
		event.Category,
		event.Action,
		event.TargetType,
		event.TargetID,
		event.TicketID,
		event.Metadata,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *auditRepository) ListByGuild(ctx context.Context, q persistence.Queryable, guildID string, limit, offset int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = auditColumns + ` WHERE guild_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := q.Query(ctx, query, guildID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func (r *auditRepository) ListByTicket(ctx context.Context, q persistence.Queryable, guildID string, ticketID int64) ([]domain.AuditEvent, error) {
	const query = auditColumns + ` WHERE guild_id=$1 AND ticket_id=$2 ORDER BY id ASC`
	rows, err := q.Query(ctx, query, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

const auditColumns = `
        SELECT id, guild_id, actor_id, category, action, target_type, target_id, ticket_id, metadata, created_at
        FROM audit_events`

func scanAuditEvents(rows pgx.Rows) ([]domain.AuditEvent, error) {
	var result []domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		if err := rows.Scan(
			&event.ID,
			&event.GuildID,
			&event.ActorID,
			&event.Category,
			&event.Action,
			&event.TargetType,
			&event.TargetID,
			&event.TicketID,
			&event.Metadata,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
