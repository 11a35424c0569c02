package dto

import "time"

// SetupGuildRequest payload.
type SetupGuildRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

// SetupGuildResponse carries the onboarded guild and its one-time API key.
type SetupGuildResponse struct {
	GuildID   string    `json:"guild_id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEventResponse represents one audit entry.
type AuditEventResponse struct {
	ID         int64          `json:"id"`
	GuildID    string         `json:"guild_id"`
	ActorID    string         `json:"actor_id"`
	Category   string         `json:"category"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	TicketID   *int64         `json:"ticket_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
