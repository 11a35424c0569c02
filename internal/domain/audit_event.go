package domain

import "time"

// AuditCategory groups audit events by the kind of thing they touch.
type AuditCategory string

const (
	AuditCategoryTicket AuditCategory = "TICKET"
	AuditCategoryTeam   AuditCategory = "TEAM"
	AuditCategoryGuild  AuditCategory = "GUILD"
)

// Audit action verbs recorded against tickets.
const (
	AuditActionCreated         = "created"
	AuditActionClaimed         = "claimed"
	AuditActionUnclaimed       = "unclaimed"
	AuditActionTransferred     = "transferred"
	AuditActionClosed          = "closed"
	AuditActionCloseRequested  = "close_requested"
	AuditActionCloseCancelled  = "close_request_cancelled"
	AuditActionAutocloseToggle = "autoclose_exclusion_set"
)

// AuditEvent is an immutable record of one action. The trail is
// append-only: entries are never updated or deleted.
type AuditEvent struct {
	ID         int64
	GuildID    string
	ActorID    string
	Category   AuditCategory
	Action     string
	TargetType string
	TargetID   string
	TicketID   *int64
	Metadata   map[string]any
	CreatedAt  time.Time
}
