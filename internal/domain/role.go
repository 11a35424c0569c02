package domain

import "time"

// Role is a named, guild-scoped bundle of permission bits.
type Role struct {
	ID          string
	GuildID     string
	Name        string
	Permissions uint64
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleMember links a user to a role within a guild.
type RoleMember struct {
	GuildID   string
	RoleID    string
	UserID    string
	CreatedAt time.Time
}
