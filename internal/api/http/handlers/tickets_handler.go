package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-tickets/internal/api/dto"
	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/service"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// TicketsHandler exposes lifecycle operations over HTTP.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /guilds/:guildID/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), service.TicketCreateInput{
		GuildID:   c.Params("guildID"),
		ChannelID: req.ChannelID,
		OpenerID:  actorID,
		Subject:   req.Subject,
		PanelID:   req.PanelID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /guilds/:guildID/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actorID, err := resolveActor(c, c.Query("actor_id"))
	if err != nil {
		return err
	}
	filter := repository.TicketFilter{GuildID: c.Params("guildID")}
	if opener := c.Query("opener_id"); opener != "" {
		filter.OpenerID = &opener
	}
	if claimer := c.Query("claimed_by"); claimer != "" {
		filter.ClaimedBy = &claimer
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	tickets, err := h.service.List(c.UserContext(), actorID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /guilds/:guildID/tickets/:number.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actorID, err := resolveActor(c, c.Query("actor_id"))
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), c.Params("guildID"), number, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Claim POST /guilds/:guildID/tickets/:number/claim.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	var req dto.ClaimTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Claim(c.UserContext(), c.Params("guildID"), number, actorID, req.Force)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Unclaim POST /guilds/:guildID/tickets/:number/unclaim.
func (h *TicketsHandler) Unclaim(c *fiber.Ctx) error {
	var req dto.UnclaimTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Unclaim(c.UserContext(), c.Params("guildID"), number, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Transfer POST /guilds/:guildID/tickets/:number/transfer.
func (h *TicketsHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToID == "" {
		return apperrors.NewValidationError("to_id required", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Transfer(c.UserContext(), c.Params("guildID"), number, actorID, req.ToID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Close POST /guilds/:guildID/tickets/:number/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Close(c.UserContext(), c.Params("guildID"), number, actorID, req.Reason, req.DeleteChannel, req.NotifyOpener)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RequestClose POST /guilds/:guildID/tickets/:number/close-request.
func (h *TicketsHandler) RequestClose(c *fiber.Ctx) error {
	var req dto.RequestCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.RequestClose(c.UserContext(), c.Params("guildID"), number, actorID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CancelCloseRequest DELETE /guilds/:guildID/tickets/:number/close-request.
func (h *TicketsHandler) CancelCloseRequest(c *fiber.Ctx) error {
	var req dto.CancelCloseRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequestID == "" {
		return apperrors.NewValidationError("request_id required", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.CancelCloseRequest(c.UserContext(), c.Params("guildID"), number, actorID, req.RequestID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// SetAutocloseExclusion PUT /guilds/:guildID/tickets/:number/autoclose-exclusion.
func (h *TicketsHandler) SetAutocloseExclusion(c *fiber.Ctx) error {
	var req dto.AutocloseExclusionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.SetAutocloseExclusion(c.UserContext(), c.Params("guildID"), number, actorID, req.Excluded)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// resolveActor determines who is acting. User principals act as
// themselves; service principals relay the acting user explicitly.
func resolveActor(c *fiber.Ctx, explicit string) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return "", apperrors.NewUnauthorized("authentication required")
	}
	if principal.SubjectType == domain.SubjectTypeUser {
		return principal.UserID, nil
	}
	if explicit == "" {
		return "", apperrors.NewValidationError("actor_id required for service calls", nil)
	}
	return explicit, nil
}

func ticketNumber(c *fiber.Ctx) (int64, error) {
	number, err := strconv.ParseInt(c.Params("number"), 10, 64)
	if err != nil || number <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket number", nil)
	}
	return number, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                   ticket.ID,
		GuildID:              ticket.GuildID,
		Number:               ticket.Number,
		ChannelID:            ticket.ChannelID,
		OpenerID:             ticket.OpenerID,
		Status:               ticket.Status,
		ClaimedBy:            ticket.ClaimedBy,
		ClosedBy:             ticket.ClosedBy,
		ClosedAt:             ticket.ClosedAt,
		CloseRequestID:       ticket.CloseRequestID,
		Subject:              ticket.Subject,
		PanelID:              ticket.PanelID,
		ExcludeFromAutoclose: ticket.ExcludeFromAutoclose,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
	}
}
