package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketClaimed        EventType = "ticket_claimed"
	EventTicketUnclaimed      EventType = "ticket_unclaimed"
	EventTicketTransferred    EventType = "ticket_transferred"
	EventTicketClosed         EventType = "ticket_closed"
	EventTicketCloseRequested EventType = "ticket_close_requested"
	EventRoleChanged          EventType = "role_changed"
	EventGuildSetup           EventType = "guild_setup"
)

// Event represents a domain event published after a committed
// transition. Events are fan-out only; nothing in the lifecycle depends
// on a subscriber.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	GuildID   string         `json:"guild_id"`
	TicketID  *int64         `json:"ticket_id,omitempty"`
	ActorID   string         `json:"actor_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
