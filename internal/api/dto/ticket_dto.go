package dto

import (
	"time"

	"github.com/spec-kit/guild-tickets/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ChannelID string         `json:"channel_id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Subject   *string        `json:"subject,omitempty"`
	PanelID   *string        `json:"panel_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ClaimTicketRequest payload.
type ClaimTicketRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	Force   bool   `json:"force"`
}

// UnclaimTicketRequest payload.
type UnclaimTicketRequest struct {
	ActorID string `json:"actor_id,omitempty"`
}

// TransferTicketRequest payload.
type TransferTicketRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	ToID    string `json:"to_id"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	ActorID       string  `json:"actor_id,omitempty"`
	Reason        *string `json:"reason,omitempty"`
	DeleteChannel bool    `json:"delete_channel"`
	NotifyOpener  bool    `json:"notify_opener"`
}

// RequestCloseRequest payload.
type RequestCloseRequest struct {
	ActorID string  `json:"actor_id,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

// CancelCloseRequestRequest payload.
type CancelCloseRequestRequest struct {
	ActorID   string `json:"actor_id,omitempty"`
	RequestID string `json:"request_id"`
}

// AutocloseExclusionRequest payload.
type AutocloseExclusionRequest struct {
	ActorID  string `json:"actor_id,omitempty"`
	Excluded bool   `json:"excluded"`
}

// TicketResponse represents one ticket.
type TicketResponse struct {
	ID                   int64               `json:"id"`
	GuildID              string              `json:"guild_id"`
	Number               int64               `json:"number"`
	ChannelID            string              `json:"channel_id"`
	OpenerID             string              `json:"opener_id"`
	Status               domain.TicketStatus `json:"status"`
	ClaimedBy            *string             `json:"claimed_by,omitempty"`
	ClosedBy             *string             `json:"closed_by,omitempty"`
	ClosedAt             *time.Time          `json:"closed_at,omitempty"`
	CloseRequestID       *string             `json:"close_request_id,omitempty"`
	Subject              *string             `json:"subject,omitempty"`
	PanelID              *string             `json:"panel_id,omitempty"`
	ExcludeFromAutoclose bool                `json:"exclude_from_autoclose"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}
