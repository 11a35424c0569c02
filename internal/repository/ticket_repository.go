package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/persistence"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	GuildID   string
	OpenerID  *string
	ClaimedBy *string
	Statuses  []domain.TicketStatus
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence. Every method takes
// the Queryable it must write through so calls participate in the
// caller's transaction.
type TicketRepository interface {
	NextNumber(ctx context.Context, q persistence.Queryable, guildID string) (int64, error)
	Insert(ctx context.Context, q persistence.Queryable, ticket *domain.Ticket) error
	GetByNumber(ctx context.Context, q persistence.Queryable, guildID string, number int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, q persistence.Queryable, filter TicketFilter) ([]domain.Ticket, error)
	Claim(ctx context.Context, q persistence.Queryable, guildID string, number int64, claimer string, prevClaimer *string, force bool) (bool, error)
	Unclaim(ctx context.Context, q persistence.Queryable, guildID string, number int64, prevClaimer string) (bool, error)
	Close(ctx context.Context, q persistence.Queryable, guildID string, number int64, closedBy string, closedAt time.Time) (bool, error)
	SetCloseRequest(ctx context.Context, q persistence.Queryable, guildID string, number int64, requestID string) (bool, error)
	ClearCloseRequest(ctx context.Context, q persistence.Queryable, guildID string, number int64, requestID string) (bool, error)
	SetAutocloseExclusion(ctx context.Context, q persistence.Queryable, guildID string, number int64, excluded bool) (bool, error)
}

type ticketRepository struct{}

// NewTicketRepository instantiates repository.
func NewTicketRepository() TicketRepository {
	return &ticketRepository{}
}

// NextNumber allocates the next per-guild ticket number atomically via
// the counter row, so concurrent creates never collide.
func (r *ticketRepository) NextNumber(ctx context.Context, q persistence.Queryable, guildID string) (int64, error) {
	const query = `
        INSERT INTO ticket_counters (guild_id, next_number) VALUES ($1, 1)
        ON CONFLICT (guild_id) DO UPDATE SET next_number = ticket_counters.next_number + 1
        RETURNING next_number`
	var number int64
	if err := q.QueryRow(ctx, query, guildID).Scan(&number); err != nil {
		return 0, err
	}
	return number, nil
}

func (r *ticketRepository) Insert(ctx context.Context, q persistence.Queryable, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (guild_id, ticket_number, channel_id, opener_id, status, subject, panel_id, exclude_from_autoclose, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		ticket.GuildID,
		ticket.Number,
		ticket.ChannelID,
		ticket.OpenerID,
		ticket.Status,
		ticket.Subject,
		ticket.PanelID,
		ticket.ExcludeFromAutoclose,
		ticket.Metadata,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, q persistence.Queryable, guildID string, number int64) (*domain.Ticket, error) {
	const query = ticketColumns + ` WHERE guild_id=$1 AND ticket_number=$2`
	var ticket domain.Ticket
	if err := scanTicket(q.QueryRow(ctx, query, guildID, number), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, q persistence.Queryable, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"guild_id=$1"}
	args := []any{filter.GuildID}

	if filter.OpenerID != nil {
		args = append(args, *filter.OpenerID)
		clauses = append(clauses, fmt.Sprintf("opener_id=$%d", len(args)))
	}
	if filter.ClaimedBy != nil {
		args = append(args, *filter.ClaimedBy)
		clauses = append(clauses, fmt.Sprintf("claimed_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY ticket_number DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// Claim is the single atomic check-and-set for claim ownership. The
// predicate is keyed on the previous claimed_by value; with two racing
// claimers exactly one UPDATE matches and the loser sees zero rows.
// force bypasses the previous-value predicate (transfer, staff
// override) but never the terminal-state guard.
func (r *ticketRepository) Claim(ctx context.Context, q persistence.Queryable, guildID string, number int64, claimer string, prevClaimer *string, force bool) (bool, error) {
	const query = `
        UPDATE tickets SET claimed_by=$1, status=$2, updated_at=NOW()
        WHERE guild_id=$3 AND ticket_number=$4 AND status <> $5
          AND ($6 OR claimed_by IS NOT DISTINCT FROM $7)`
	cmd, err := q.Exec(ctx, query,
		claimer,
		domain.TicketStatusClaimed,
		guildID,
		number,
		domain.TicketStatusClosed,
		force,
		prevClaimer,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) Unclaim(ctx context.Context, q persistence.Queryable, guildID string, number int64, prevClaimer string) (bool, error) {
	const query = `
        UPDATE tickets SET claimed_by=NULL, status=$1, updated_at=NOW()
        WHERE guild_id=$2 AND ticket_number=$3 AND status=$4 AND claimed_by=$5`
	cmd, err := q.Exec(ctx, query,
		domain.TicketStatusOpen,
		guildID,
		number,
		domain.TicketStatusClaimed,
		prevClaimer,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// Close marks the terminal transition. The status guard makes closing
// idempotence-safe under races: only one closer ever matches.
func (r *ticketRepository) Close(ctx context.Context, q persistence.Queryable, guildID string, number int64, closedBy string, closedAt time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status=$1, closed_by=$2, closed_at=$3, close_request_id=NULL, updated_at=NOW()
        WHERE guild_id=$4 AND ticket_number=$5 AND status <> $1`
	cmd, err := q.Exec(ctx, query,
		domain.TicketStatusClosed,
		closedBy,
		closedAt,
		guildID,
		number,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) SetCloseRequest(ctx context.Context, q persistence.Queryable, guildID string, number int64, requestID string) (bool, error) {
	const query = `
        UPDATE tickets SET close_request_id=$1, updated_at=NOW()
        WHERE guild_id=$2 AND ticket_number=$3 AND status <> $4`
	cmd, err := q.Exec(ctx, query, requestID, guildID, number, domain.TicketStatusClosed)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// ClearCloseRequest matches on the correlation token so a stale confirm
// cannot clear a request it did not see.
func (r *ticketRepository) ClearCloseRequest(ctx context.Context, q persistence.Queryable, guildID string, number int64, requestID string) (bool, error) {
	const query = `
        UPDATE tickets SET close_request_id=NULL, updated_at=NOW()
        WHERE guild_id=$1 AND ticket_number=$2 AND close_request_id=$3`
	cmd, err := q.Exec(ctx, query, guildID, number, requestID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) SetAutocloseExclusion(ctx context.Context, q persistence.Queryable, guildID string, number int64, excluded bool) (bool, error) {
	const query = `
        UPDATE tickets SET exclude_from_autoclose=$1, updated_at=NOW()
        WHERE guild_id=$2 AND ticket_number=$3 AND status <> $4`
	cmd, err := q.Exec(ctx, query, excluded, guildID, number, domain.TicketStatusClosed)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

const ticketColumns = `
        SELECT id, guild_id, ticket_number, channel_id, opener_id, status, claimed_by,
               closed_by, closed_at, close_request_id, subject, panel_id,
               exclude_from_autoclose, metadata, created_at, updated_at
        FROM tickets`

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.Number,
		&ticket.ChannelID,
		&ticket.OpenerID,
		&ticket.Status,
		&ticket.ClaimedBy,
		&ticket.ClosedBy,
		&ticket.ClosedAt,
		&ticket.CloseRequestID,
		&ticket.Subject,
		&ticket.PanelID,
		&ticket.ExcludeFromAutoclose,
		&ticket.Metadata,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// IsNoRows reports whether err is the pgx missing-row sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
