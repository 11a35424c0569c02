package domain

import "time"

// Guild is one tenant: a chat-platform server the bot operates in.
type Guild struct {
	ID         string
	OwnerID    string
	Name       string
	APIKeyHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
