package dto

import "time"

// CreateRoleRequest payload.
type CreateRoleRequest struct {
	ActorID     string `json:"actor_id,omitempty"`
	Name        string `json:"name"`
	Permissions uint64 `json:"permissions"`
}

// UpdateRoleMaskRequest payload.
type UpdateRoleMaskRequest struct {
	ActorID     string `json:"actor_id,omitempty"`
	Permissions uint64 `json:"permissions"`
}

// RoleMemberRequest payload for assign/remove.
type RoleMemberRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	UserID  string `json:"user_id"`
}

// RoleResponse represents one role.
type RoleResponse struct {
	ID              string    `json:"id"`
	GuildID         string    `json:"guild_id"`
	Name            string    `json:"name"`
	Permissions     uint64    `json:"permissions"`
	PermissionNames []string  `json:"permission_names"`
	IsDefault       bool      `json:"is_default"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
