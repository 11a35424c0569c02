package permission

// Flag is one capability bit in a 64-bit permission mask. A role
// carries a mask; a user's effective mask is the OR across roles.
type Flag uint64

const (
	TicketView Flag = 1 << iota
	TicketViewAll
	TicketClaim
	TicketClose
	TicketCloseAny
	TicketUnclaimAny
	TicketTransfer
	GuildSettingsEdit
	TeamManage
	PanelManage
	WebhookManage
	AuditView
	AnalyticsView
)

// orderedFlags keeps Names deterministic.
var orderedFlags = []struct {
	flag Flag
	name string
}{
	{TicketView, "TICKET_VIEW"},
	{TicketViewAll, "TICKET_VIEW_ALL"},
	{TicketClaim, "TICKET_CLAIM"},
	{TicketClose, "TICKET_CLOSE"},
	{TicketCloseAny, "TICKET_CLOSE_ANY"},
	{TicketUnclaimAny, "TICKET_UNCLAIM_ANY"},
	{TicketTransfer, "TICKET_TRANSFER"},
	{GuildSettingsEdit, "GUILD_SETTINGS_EDIT"},
	{TeamManage, "TEAM_MANAGE"},
	{PanelManage, "PANEL_MANAGE"},
	{WebhookManage, "WEBHOOK_MANAGE"},
	{AuditView, "AUDIT_VIEW"},
	{AnalyticsView, "ANALYTICS_VIEW"},
}

// Default masks for the roles created at guild setup.
const (
	DefaultAdminMask = TicketView | TicketViewAll | TicketClaim | TicketClose |
		TicketCloseAny | TicketUnclaimAny | TicketTransfer | GuildSettingsEdit |
		TeamManage | PanelManage | WebhookManage | AuditView | AnalyticsView
	DefaultSupportMask = TicketView | TicketViewAll | TicketClaim | TicketClose | TicketTransfer
)

// Has reports whether the flag's bit is set in the mask.
func (m Flag) Has(flag Flag) bool {
	return m&flag != 0
}

// HasAny reports whether any of the given flags is set.
func (m Flag) HasAny(flags ...Flag) bool {
	for _, flag := range flags {
		if m&flag != 0 {
			return true
		}
	}
	return false
}

// HasAll reports whether every given flag is set.
func (m Flag) HasAll(flags ...Flag) bool {
	for _, flag := range flags {
		if m&flag == 0 {
			return false
		}
	}
	return true
}

// Combine ORs raw role masks into one effective mask.
func Combine(masks ...uint64) Flag {
	var combined Flag
	for _, mask := range masks {
		combined |= Flag(mask)
	}
	return combined
}

// Names reverse-maps set bits to readable names for errors and UI.
func Names(mask Flag) []string {
	var names []string
	for _, entry := range orderedFlags {
		if mask&entry.flag != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}
