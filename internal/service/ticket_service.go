package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/gateway"
	"github.com/spec-kit/guild-tickets/internal/permission"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/txn"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// TicketService is the ticket lifecycle state machine. Every transition
// runs inside one transaction: permission check, conditional state
// write, audit append. External side effects (gateway calls, webhook
// and analytics fan-out) are queued as post-commit effects and never
// run for a transaction that rolled back.
//
// Authorization note: the machine re-validates permissions itself on
// every transition; callers are not trusted to pre-check.
type TicketService struct {
	tx         txn.Manager
	db         persistence.Queryable
	tickets    repository.TicketRepository
	audits     repository.AuditRepository
	perms      *permission.Engine
	dispatcher events.Dispatcher
	gateway    gateway.Client
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Tx          txn.Manager
	DB          persistence.Queryable
	TicketRepo  repository.TicketRepository
	AuditRepo   repository.AuditRepository
	Permissions *permission.Engine
	Dispatcher  events.Dispatcher
	Gateway     gateway.Client
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	GuildID   string
	ChannelID string
	OpenerID  string
	Subject   *string
	PanelID   *string
	Metadata  map[string]any
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tx:         deps.Tx,
		db:         deps.DB,
		tickets:    deps.TicketRepo,
		audits:     deps.AuditRepo,
		perms:      deps.Permissions,
		dispatcher: deps.Dispatcher,
		gateway:    deps.Gateway,
		logger:     logger,
	}
}

// Create opens a ticket in state OPEN with the guild's next sequence
// number. Any guild member may open a ticket; there is no permission
// check here.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if input.GuildID == "" || input.ChannelID == "" || input.OpenerID == "" {
		return nil, apperrors.NewValidationError("guild_id, channel_id and opener_id are required", nil)
	}
	if input.Subject != nil {
		trimmed := strings.TrimSpace(*input.Subject)
		if len(trimmed) > domain.MaxSubjectLength {
			return nil, apperrors.NewValidationError("subject too long", map[string]any{
				"max_length": domain.MaxSubjectLength,
			})
		}
		if trimmed == "" {
			input.Subject = nil
		} else {
			input.Subject = &trimmed
		}
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		number, err := s.tickets.NextNumber(ctx, txc.DB(), input.GuildID)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		ticket = &domain.Ticket{
			GuildID:   input.GuildID,
			Number:    number,
			ChannelID: input.ChannelID,
			OpenerID:  input.OpenerID,
			Status:    domain.TicketStatusOpen,
			Subject:   input.Subject,
			PanelID:   input.PanelID,
			Metadata:  input.Metadata,
		}
		if err := s.tickets.Insert(ctx, txc.DB(), ticket); err != nil {
			return apperrors.NewStoreError(err)
		}
		if err := s.recordTicketAudit(ctx, txc, ticket, input.OpenerID, domain.AuditActionCreated, map[string]any{
			"channel_id": input.ChannelID,
			"panel_id":   input.PanelID,
		}); err != nil {
			return err
		}
		s.queueEvent(txc, events.EventTicketCreated, ticket, input.OpenerID, map[string]any{
			"channel_id": ticket.ChannelID,
			"subject":    ticket.Subject,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Claim assigns the ticket to claimerID. The state transition is a
// single conditional write keyed on the previously observed claimant,
// so two concurrent claims resolve to exactly one winner; the loser
// gets AlreadyClaimed, never a silent overwrite.
func (s *TicketService) Claim(ctx context.Context, guildID string, number int64, claimerID string, force bool) (*domain.Ticket, error) {
	if guildID == "" || claimerID == "" {
		return nil, apperrors.NewValidationError("guild_id and claimer_id are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.IsClosed() {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}
		if current.ClaimedBy != nil && *current.ClaimedBy != claimerID && !force {
			return apperrors.NewAlreadyClaimed(*current.ClaimedBy, ticketDetails(current))
		}
		if err := s.perms.Check(ctx, guildID, claimerID, permission.TicketClaim); err != nil {
			return err
		}

		ok, err := s.tickets.Claim(ctx, txc.DB(), guildID, number, claimerID, current.ClaimedBy, force)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return s.claimConflict(ctx, txc.DB(), guildID, number)
		}

		previous := current.ClaimedBy
		current.Status = domain.TicketStatusClaimed
		current.ClaimedBy = &claimerID
		ticket = current

		if err := s.recordTicketAudit(ctx, txc, current, claimerID, domain.AuditActionClaimed, map[string]any{
			"previous_claimant": previous,
			"force":             force,
		}); err != nil {
			return err
		}
		s.queueEvent(txc, events.EventTicketClaimed, current, claimerID, map[string]any{
			"claimed_by": claimerID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Unclaim releases the claim and returns the ticket to OPEN. Allowed
// for the current claimant, or anyone holding TICKET_UNCLAIM_ANY.
func (s *TicketService) Unclaim(ctx context.Context, guildID string, number int64, performedByID string) (*domain.Ticket, error) {
	if guildID == "" || performedByID == "" {
		return nil, apperrors.NewValidationError("guild_id and performed_by are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.IsClosed() {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}
		if current.Status != domain.TicketStatusClaimed || current.ClaimedBy == nil {
			return apperrors.NewConflict("ticket is not claimed", ticketDetails(current))
		}
		if !current.ClaimantIs(performedByID) {
			if err := s.perms.Check(ctx, guildID, performedByID, permission.TicketUnclaimAny); err != nil {
				return err
			}
		}

		previous := *current.ClaimedBy
		ok, err := s.tickets.Unclaim(ctx, txc.DB(), guildID, number, previous)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return s.claimConflict(ctx, txc.DB(), guildID, number)
		}

		current.Status = domain.TicketStatusOpen
		current.ClaimedBy = nil
		ticket = current

		if err := s.recordTicketAudit(ctx, txc, current, performedByID, domain.AuditActionUnclaimed, map[string]any{
			"previous_claimant": previous,
		}); err != nil {
			return err
		}
		s.queueEvent(txc, events.EventTicketUnclaimed, current, performedByID, map[string]any{
			"previous_claimant": previous,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Transfer moves the claim to toID in one transaction. The write goes
// straight to the new claimant, so no observer ever sees the ticket
// unclaimed in between.
func (s *TicketService) Transfer(ctx context.Context, guildID string, number int64, actorID, toID string) (*domain.Ticket, error) {
	if guildID == "" || actorID == "" || toID == "" {
		return nil, apperrors.NewValidationError("guild_id, actor_id and to_id are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.IsClosed() {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}
		if err := s.perms.Check(ctx, guildID, actorID, permission.TicketTransfer); err != nil {
			return err
		}

		ok, err := s.tickets.Claim(ctx, txc.DB(), guildID, number, toID, current.ClaimedBy, true)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return s.claimConflict(ctx, txc.DB(), guildID, number)
		}

		previous := current.ClaimedBy
		current.Status = domain.TicketStatusClaimed
		current.ClaimedBy = &toID
		ticket = current

		if err := s.recordTicketAudit(ctx, txc, current, actorID, domain.AuditActionTransferred, map[string]any{
			"previous_claimant": previous,
			"new_claimant":      toID,
		}); err != nil {
			return err
		}
		s.queueEvent(txc, events.EventTicketTransferred, current, actorID, map[string]any{
			"previous_claimant": previous,
			"new_claimant":      toID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Close is the terminal transition. deleteChannel and notifyOpener are
// hints consumed by post-commit gateway effects only.
func (s *TicketService) Close(ctx context.Context, guildID string, number int64, closedByID string, reason *string, deleteChannel, notifyOpener bool) (*domain.Ticket, error) {
	if guildID == "" || closedByID == "" {
		return nil, apperrors.NewValidationError("guild_id and closed_by are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.IsClosed() {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}
		if err := s.authorizeClose(ctx, guildID, closedByID, current); err != nil {
			return err
		}

		now := time.Now().UTC()
		ok, err := s.tickets.Close(ctx, txc.DB(), guildID, number, closedByID, now)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}

		current.Status = domain.TicketStatusClosed
		current.ClosedBy = &closedByID
		current.ClosedAt = &now
		current.CloseRequestID = nil
		ticket = current

		if err := s.recordTicketAudit(ctx, txc, current, closedByID, domain.AuditActionClosed, map[string]any{
			"reason":         reason,
			"delete_channel": deleteChannel,
			"notify_opener":  notifyOpener,
		}); err != nil {
			return err
		}

		s.queueEvent(txc, events.EventTicketClosed, current, closedByID, map[string]any{
			"reason": reason,
		})
		s.queueChannelEffects(txc, current, deleteChannel, notifyOpener, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// RequestClose records an opener-initiated close request as a fresh
// correlation token without changing the primary state.
func (s *TicketService) RequestClose(ctx context.Context, guildID string, number int64, openerID string, reason *string) (*domain.Ticket, error) {
	if guildID == "" || openerID == "" {
		return nil, apperrors.NewValidationError("guild_id and opener_id are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.IsClosed() {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}
		if current.OpenerID != openerID {
			return apperrors.NewPermissionDenied("only the opener may request close", ticketDetails(current))
		}

		requestID := uuid.NewString()
		ok, err := s.tickets.SetCloseRequest(ctx, txc.DB(), guildID, number, requestID)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}

		current.CloseRequestID = &requestID
		ticket = current

		if err := s.recordTicketAudit(ctx, txc, current, openerID, domain.AuditActionCloseRequested, map[string]any{
			"request_id": requestID,
			"reason":     reason,
		}); err != nil {
			return err
		}
		s.queueEvent(txc, events.EventTicketCloseRequested, current, openerID, map[string]any{
			"request_id": requestID,
			"reason":     reason,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// CancelCloseRequest clears the pending request identified by
// requestID. A stale or repeated confirmation gets NoPendingRequest.
func (s *TicketService) CancelCloseRequest(ctx context.Context, guildID string, number int64, actorID, requestID string) (*domain.Ticket, error) {
	if guildID == "" || actorID == "" || requestID == "" {
		return nil, apperrors.NewValidationError("guild_id, actor_id and request_id are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.CloseRequestID == nil {
			return apperrors.NewNoPendingRequest(ticketDetails(current))
		}
		if current.OpenerID != actorID {
			if err := s.perms.Check(ctx, guildID, actorID, permission.TicketClose); err != nil {
				return err
			}
		}

		ok, err := s.tickets.ClearCloseRequest(ctx, txc.DB(), guildID, number, requestID)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return apperrors.NewNoPendingRequest(map[string]any{
				"request_id": requestID,
			})
		}

		current.CloseRequestID = nil
		ticket = current

		return s.recordTicketAudit(ctx, txc, current, actorID, domain.AuditActionCloseCancelled, map[string]any{
			"request_id": requestID,
		})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// SetAutocloseExclusion toggles the flag consulted by the external
// autoclose scheduler. Allowed for the claimant or settings editors.
func (s *TicketService) SetAutocloseExclusion(ctx context.Context, guildID string, number int64, actorID string, excluded bool) (*domain.Ticket, error) {
	if guildID == "" || actorID == "" {
		return nil, apperrors.NewValidationError("guild_id and actor_id are required", nil)
	}

	var ticket *domain.Ticket
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		current, err := s.getTicket(ctx, txc.DB(), guildID, number)
		if err != nil {
			return err
		}
		if current.IsClosed() {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}
		if !current.ClaimantIs(actorID) {
			if err := s.perms.Check(ctx, guildID, actorID, permission.GuildSettingsEdit); err != nil {
				return err
			}
		}

		ok, err := s.tickets.SetAutocloseExclusion(ctx, txc.DB(), guildID, number, excluded)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !ok {
			return apperrors.NewAlreadyClosed(ticketDetails(current))
		}

		current.ExcludeFromAutoclose = excluded
		ticket = current

		return s.recordTicketAudit(ctx, txc, current, actorID, domain.AuditActionAutocloseToggle, map[string]any{
			"excluded": excluded,
		})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Get fetches one ticket for a viewer. Openers and claimants always see
// their own tickets; anyone else needs TICKET_VIEW_ALL.
func (s *TicketService) Get(ctx context.Context, guildID string, number int64, viewerID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, s.db, guildID, number)
	if err != nil {
		return nil, err
	}
	if ticket.OpenerID != viewerID && !ticket.ClaimantIs(viewerID) {
		if err := s.perms.Check(ctx, guildID, viewerID, permission.TicketViewAll); err != nil {
			return nil, err
		}
	}
	return ticket, nil
}

// List returns tickets matching the filter. Listing beyond your own
// tickets needs TICKET_VIEW_ALL.
func (s *TicketService) List(ctx context.Context, viewerID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if filter.GuildID == "" {
		return nil, apperrors.NewValidationError("guild_id is required", nil)
	}
	ownOnly := filter.OpenerID != nil && *filter.OpenerID == viewerID
	if !ownOnly {
		if err := s.perms.Check(ctx, filter.GuildID, viewerID, permission.TicketViewAll); err != nil {
			return nil, err
		}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, s.db, filter)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return tickets, nil
}

func (s *TicketService) authorizeClose(ctx context.Context, guildID, closedByID string, ticket *domain.Ticket) error {
	if ticket.OpenerID == closedByID {
		return nil
	}
	mask, err := s.perms.EffectiveMask(ctx, guildID, closedByID)
	if err != nil {
		return err
	}
	if mask.Has(permission.TicketCloseAny) {
		return nil
	}
	if ticket.ClaimantIs(closedByID) && mask.Has(permission.TicketClose) {
		return nil
	}
	return apperrors.NewPermissionDenied("", map[string]any{
		"required": permission.Names(permission.TicketClose | permission.TicketCloseAny),
	})
}

// claimConflict re-reads after a failed conditional write to report the
// precise cause. Under read committed the re-read sees the competing
// committed row.
func (s *TicketService) claimConflict(ctx context.Context, q persistence.Queryable, guildID string, number int64) error {
	current, err := s.getTicket(ctx, q, guildID, number)
	if err != nil {
		return err
	}
	if current.IsClosed() {
		return apperrors.NewAlreadyClosed(ticketDetails(current))
	}
	if current.ClaimedBy != nil {
		return apperrors.NewAlreadyClaimed(*current.ClaimedBy, ticketDetails(current))
	}
	return apperrors.NewConflict("concurrent ticket update", ticketDetails(current))
}

func (s *TicketService) getTicket(ctx context.Context, q persistence.Queryable, guildID string, number int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, q, guildID, number)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{
				"guild_id":      guildID,
				"ticket_number": number,
			})
		}
		return nil, apperrors.NewStoreError(err)
	}
	return ticket, nil
}

func (s *TicketService) recordTicketAudit(ctx context.Context, txc *txn.Context, ticket *domain.Ticket, actorID, action string, metadata map[string]any) error {
	event := &domain.AuditEvent{
		GuildID:    ticket.GuildID,
		ActorID:    actorID,
		Category:   domain.AuditCategoryTicket,
		Action:     action,
		TargetType: "ticket",
		TargetID:   ticket.ChannelID,
		TicketID:   &ticket.ID,
		Metadata:   metadata,
	}
	if err := s.audits.Insert(ctx, txc.DB(), event); err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}

func (s *TicketService) queueEvent(txc *txn.Context, eventType events.EventType, ticket *domain.Ticket, actorID string, payload map[string]any) {
	if s.dispatcher == nil {
		return
	}
	ticketID := ticket.ID
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		GuildID:   ticket.GuildID,
		TicketID:  &ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	txc.AfterCommit("publish "+string(eventType), func(ctx context.Context) error {
		return s.dispatcher.Publish(ctx, event)
	})
}

func (s *TicketService) queueChannelEffects(txc *txn.Context, ticket *domain.Ticket, deleteChannel, notifyOpener bool, reason *string) {
	if s.gateway == nil {
		return
	}
	channelID := ticket.ChannelID
	openerID := ticket.OpenerID
	if notifyOpener {
		message := "Your ticket has been closed."
		if reason != nil && *reason != "" {
			message = "Your ticket has been closed: " + *reason
		}
		txc.AfterCommit("notify opener", func(ctx context.Context) error {
			return s.gateway.SendDirectMessage(ctx, openerID, message)
		})
	}
	if deleteChannel {
		txc.AfterCommit("delete channel", func(ctx context.Context) error {
			return s.gateway.DeleteChannel(ctx, channelID)
		})
	} else {
		txc.AfterCommit("archive channel", func(ctx context.Context) error {
			return s.gateway.ArchiveChannel(ctx, channelID)
		})
	}
}

func ticketDetails(ticket *domain.Ticket) map[string]any {
	return map[string]any{
		"guild_id":      ticket.GuildID,
		"ticket_number": ticket.Number,
	}
}
