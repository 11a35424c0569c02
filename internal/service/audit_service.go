package service

import (
	"context"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/permission"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// AuditService is the read side of the audit trail.
type AuditService struct {
	db      persistence.Queryable
	audits  repository.AuditRepository
	tickets repository.TicketRepository
	perms   *permission.Engine
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	DB          persistence.Queryable
	AuditRepo   repository.AuditRepository
	TicketRepo  repository.TicketRepository
	Permissions *permission.Engine
}

// NewAuditService constructs the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	return &AuditService{
		db:      deps.DB,
		audits:  deps.AuditRepo,
		tickets: deps.TicketRepo,
		perms:   deps.Permissions,
	}
}

// ListForGuild returns the guild's trail, newest first.
func (s *AuditService) ListForGuild(ctx context.Context, guildID, viewerID string, limit, offset int) ([]domain.AuditEvent, error) {
	if err := s.perms.Check(ctx, guildID, viewerID, permission.AuditView, permission.AllowGuildOwner()); err != nil {
		return nil, err
	}
	events, err := s.audits.ListByGuild(ctx, s.db, guildID, limit, offset)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return events, nil
}

// ListForTicket returns one ticket's trail in order. Openers and
// claimants see their own tickets' history without AUDIT_VIEW.
func (s *AuditService) ListForTicket(ctx context.Context, guildID string, number int64, viewerID string) ([]domain.AuditEvent, error) {
	ticket, err := s.tickets.GetByNumber(ctx, s.db, guildID, number)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{
				"guild_id":      guildID,
				"ticket_number": number,
			})
		}
		return nil, apperrors.NewStoreError(err)
	}
	if ticket.OpenerID != viewerID && !ticket.ClaimantIs(viewerID) {
		if err := s.perms.Check(ctx, guildID, viewerID, permission.AuditView, permission.AllowGuildOwner()); err != nil {
			return nil, err
		}
	}
	events, err := s.audits.ListByTicket(ctx, s.db, guildID, ticket.ID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return events, nil
}
