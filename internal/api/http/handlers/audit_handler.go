package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-tickets/internal/api/dto"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/service"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// ListForGuild GET /guilds/:guildID/audit.
func (h *AuditHandler) ListForGuild(c *fiber.Ctx) error {
	actorID, err := resolveActor(c, c.Query("actor_id"))
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	events, err := h.service.ListForGuild(c.UserContext(), c.Params("guildID"), actorID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditResponses(events)})
}

// ListForTicket GET /guilds/:guildID/tickets/:number/audit.
func (h *AuditHandler) ListForTicket(c *fiber.Ctx) error {
	actorID, err := resolveActor(c, c.Query("actor_id"))
	if err != nil {
		return err
	}
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	events, err := h.service.ListForTicket(c.UserContext(), c.Params("guildID"), number, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditResponses(events)})
}

func auditResponses(events []domain.AuditEvent) []dto.AuditEventResponse {
	items := make([]dto.AuditEventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.AuditEventResponse{
			ID:         event.ID,
			GuildID:    event.GuildID,
			ActorID:    event.ActorID,
			Category:   string(event.Category),
			Action:     event.Action,
			TargetType: event.TargetType,
			TargetID:   event.TargetID,
			TicketID:   event.TicketID,
			Metadata:   event.Metadata,
			CreatedAt:  event.CreatedAt,
		})
	}
	return items
}
