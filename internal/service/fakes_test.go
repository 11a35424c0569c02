package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/txn"
)

// fakeTxnManager runs the unit of work without a database. Effects
// drain only when fn succeeds, mirroring the commit contract.
type fakeTxnManager struct {
	rollbacks int
}

func (f *fakeTxnManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, txc *txn.Context) error) error {
	txc := txn.NewContext(nil, nil)
	if err := fn(ctx, txc); err != nil {
		f.rollbacks++
		return err
	}
	txc.Drain(ctx)
	return nil
}

// memTicketRepo is an in-memory TicketRepository with the same
// conditional-write semantics as the SQL implementation.
type memTicketRepo struct {
	counters map[string]int64
	tickets  map[string]*domain.Ticket
	nextID   int64
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		counters: map[string]int64{},
		tickets:  map[string]*domain.Ticket{},
	}
}

func ticketKey(guildID string, number int64) string {
	return fmt.Sprintf("%s/%d", guildID, number)
}

func (m *memTicketRepo) NextNumber(ctx context.Context, q persistence.Queryable, guildID string) (int64, error) {
	m.counters[guildID]++
	return m.counters[guildID], nil
}

func (m *memTicketRepo) Insert(ctx context.Context, q persistence.Queryable, ticket *domain.Ticket) error {
	m.nextID++
	ticket.ID = m.nextID
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	m.tickets[ticketKey(ticket.GuildID, ticket.Number)] = &clone
	return nil
}

func (m *memTicketRepo) GetByNumber(ctx context.Context, q persistence.Queryable, guildID string, number int64) (*domain.Ticket, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (m *memTicketRepo) ListWithFilter(ctx context.Context, q persistence.Queryable, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if ticket.GuildID != filter.GuildID {
			continue
		}
		if filter.OpenerID != nil && ticket.OpenerID != *filter.OpenerID {
			continue
		}
		if filter.ClaimedBy != nil && (ticket.ClaimedBy == nil || *ticket.ClaimedBy != *filter.ClaimedBy) {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func sameClaimant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memTicketRepo) Claim(ctx context.Context, q persistence.Queryable, guildID string, number int64, claimer string, prevClaimer *string, force bool) (bool, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok || ticket.Status == domain.TicketStatusClosed {
		return false, nil
	}
	if !force && !sameClaimant(ticket.ClaimedBy, prevClaimer) {
		return false, nil
	}
	ticket.ClaimedBy = &claimer
	ticket.Status = domain.TicketStatusClaimed
	return true, nil
}

func (m *memTicketRepo) Unclaim(ctx context.Context, q persistence.Queryable, guildID string, number int64, prevClaimer string) (bool, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok || ticket.Status != domain.TicketStatusClaimed || ticket.ClaimedBy == nil || *ticket.ClaimedBy != prevClaimer {
		return false, nil
	}
	ticket.ClaimedBy = nil
	ticket.Status = domain.TicketStatusOpen
	return true, nil
}

func (m *memTicketRepo) Close(ctx context.Context, q persistence.Queryable, guildID string, number int64, closedBy string, closedAt time.Time) (bool, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok || ticket.Status == domain.TicketStatusClosed {
		return false, nil
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedBy = &closedBy
	ticket.ClosedAt = &closedAt
	ticket.CloseRequestID = nil
	return true, nil
}

func (m *memTicketRepo) SetCloseRequest(ctx context.Context, q persistence.Queryable, guildID string, number int64, requestID string) (bool, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok || ticket.Status == domain.TicketStatusClosed {
		return false, nil
	}
	ticket.CloseRequestID = &requestID
	return true, nil
}

func (m *memTicketRepo) ClearCloseRequest(ctx context.Context, q persistence.Queryable, guildID string, number int64, requestID string) (bool, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok || ticket.CloseRequestID == nil || *ticket.CloseRequestID != requestID {
		return false, nil
	}
	ticket.CloseRequestID = nil
	return true, nil
}

func (m *memTicketRepo) SetAutocloseExclusion(ctx context.Context, q persistence.Queryable, guildID string, number int64, excluded bool) (bool, error) {
	ticket, ok := m.tickets[ticketKey(guildID, number)]
	if !ok || ticket.Status == domain.TicketStatusClosed {
		return false, nil
	}
	ticket.ExcludeFromAutoclose = excluded
	return true, nil
}

// memAuditRepo appends to a slice; reads filter it.
type memAuditRepo struct {
	events []domain.AuditEvent
	nextID int64
}

func (m *memAuditRepo) Insert(ctx context.Context, q persistence.Queryable, event *domain.AuditEvent) error {
	m.nextID++
	event.ID = m.nextID
	event.CreatedAt = time.Now().UTC()
	m.events = append(m.events, *event)
	return nil
}

func (m *memAuditRepo) ListByGuild(ctx context.Context, q persistence.Queryable, guildID string, limit, offset int) ([]domain.AuditEvent, error) {
	var result []domain.AuditEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].GuildID == guildID {
			result = append(result, m.events[i])
		}
	}
	return result, nil
}

func (m *memAuditRepo) ListByTicket(ctx context.Context, q persistence.Queryable, guildID string, ticketID int64) ([]domain.AuditEvent, error) {
	var result []domain.AuditEvent
	for _, event := range m.events {
		if event.GuildID == guildID && event.TicketID != nil && *event.TicketID == ticketID {
			result = append(result, event)
		}
	}
	return result, nil
}

func (m *memAuditRepo) actions() []string {
	var actions []string
	for _, event := range m.events {
		actions = append(actions, event.Action)
	}
	return actions
}

// stubRoleRepo serves effective masks; role mutations store rows in
// memory for the role service tests.
type stubRoleRepo struct {
	masks   map[string]uint64
	roles   map[string]*domain.Role
	members map[string][]string
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{
		masks:   map[string]uint64{},
		roles:   map[string]*domain.Role{},
		members: map[string][]string{},
	}
}

func (s *stubRoleRepo) grant(guildID, userID string, mask uint64) {
	s.masks[guildID+"/"+userID] |= mask
}

func (s *stubRoleRepo) Insert(ctx context.Context, q persistence.Queryable, role *domain.Role) error {
	role.CreatedAt = time.Now().UTC()
	role.UpdatedAt = role.CreatedAt
	clone := *role
	s.roles[role.GuildID+"/"+role.ID] = &clone
	return nil
}

func (s *stubRoleRepo) UpdateMask(ctx context.Context, q persistence.Queryable, guildID, roleID string, permissions uint64) error {
	role, ok := s.roles[guildID+"/"+roleID]
	if !ok {
		return pgx.ErrNoRows
	}
	role.Permissions = permissions
	return nil
}

func (s *stubRoleRepo) Delete(ctx context.Context, q persistence.Queryable, guildID, roleID string) error {
	delete(s.roles, guildID+"/"+roleID)
	return nil
}

func (s *stubRoleRepo) GetByID(ctx context.Context, q persistence.Queryable, guildID, roleID string) (*domain.Role, error) {
	role, ok := s.roles[guildID+"/"+roleID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *role
	return &clone, nil
}

func (s *stubRoleRepo) ListByGuild(ctx context.Context, q persistence.Queryable, guildID string) ([]domain.Role, error) {
	var result []domain.Role
	for _, role := range s.roles {
		if role.GuildID == guildID {
			result = append(result, *role)
		}
	}
	return result, nil
}

func (s *stubRoleRepo) AddMember(ctx context.Context, q persistence.Queryable, member *domain.RoleMember) error {
	key := member.GuildID + "/" + member.RoleID
	for _, existing := range s.members[key] {
		if existing == member.UserID {
			return nil
		}
	}
	s.members[key] = append(s.members[key], member.UserID)
	return nil
}

func (s *stubRoleRepo) RemoveMember(ctx context.Context, q persistence.Queryable, guildID, roleID, userID string) (bool, error) {
	key := guildID + "/" + roleID
	for i, existing := range s.members[key] {
		if existing == userID {
			s.members[key] = append(s.members[key][:i], s.members[key][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRoleRepo) MasksForUser(ctx context.Context, q persistence.Queryable, guildID, userID string) ([]uint64, error) {
	var result []uint64
	if mask, ok := s.masks[guildID+"/"+userID]; ok {
		result = append(result, mask)
	}
	for key, role := range s.roles {
		for _, member := range s.members[key] {
			if role.GuildID == guildID && member == userID {
				result = append(result, role.Permissions)
			}
		}
	}
	return result, nil
}

// stubGuildRepo holds tenants keyed by id.
type stubGuildRepo struct {
	guilds map[string]*domain.Guild
}

func newStubGuildRepo() *stubGuildRepo {
	return &stubGuildRepo{guilds: map[string]*domain.Guild{}}
}

func (s *stubGuildRepo) Insert(ctx context.Context, q persistence.Queryable, guild *domain.Guild) error {
	guild.CreatedAt = time.Now().UTC()
	guild.UpdatedAt = guild.CreatedAt
	clone := *guild
	s.guilds[guild.ID] = &clone
	return nil
}

func (s *stubGuildRepo) GetByID(ctx context.Context, q persistence.Queryable, id string) (*domain.Guild, error) {
	guild, ok := s.guilds[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *guild
	return &clone, nil
}

func (s *stubGuildRepo) UpdateAPIKeyHash(ctx context.Context, q persistence.Queryable, id, hash string) error {
	guild, ok := s.guilds[id]
	if !ok {
		return pgx.ErrNoRows
	}
	guild.APIKeyHash = hash
	return nil
}

// recordingGateway captures channel effect calls.
type recordingGateway struct {
	messages  []string
	dms       []string
	archived  []string
	deleted   []string
	sendErr   error
	deleteErr error
}

func (g *recordingGateway) SendMessage(ctx context.Context, channelID, content string) error {
	g.messages = append(g.messages, channelID+": "+content)
	return g.sendErr
}

func (g *recordingGateway) SendDirectMessage(ctx context.Context, userID, content string) error {
	g.dms = append(g.dms, userID+": "+content)
	return g.sendErr
}

func (g *recordingGateway) ArchiveChannel(ctx context.Context, channelID string) error {
	g.archived = append(g.archived, channelID)
	return nil
}

func (g *recordingGateway) DeleteChannel(ctx context.Context, channelID string) error {
	g.deleted = append(g.deleted, channelID)
	return g.deleteErr
}
