package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusClaimed TicketStatus = "CLAIMED"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// MaxSubjectLength bounds the user-provided subject line.
const MaxSubjectLength = 256

// Ticket is the aggregate for one support case inside a guild.
//
// ClaimedBy is non-nil exactly when Status is CLAIMED; ClosedBy and
// ClosedAt are non-nil exactly when Status is CLOSED. CLOSED is terminal.
type Ticket struct {
	ID                   int64
	GuildID              string
	Number               int64
	ChannelID            string
	OpenerID             string
	Status               TicketStatus
	ClaimedBy            *string
	ClosedBy             *string
	ClosedAt             *time.Time
	CloseRequestID       *string
	Subject              *string
	PanelID              *string
	ExcludeFromAutoclose bool
	Metadata             map[string]any
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// ClaimantIs reports whether userID currently holds the claim.
func (t *Ticket) ClaimantIs(userID string) bool {
	return t.ClaimedBy != nil && *t.ClaimedBy == userID
}
