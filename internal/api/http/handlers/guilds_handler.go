package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-tickets/internal/api/dto"
	"github.com/spec-kit/guild-tickets/internal/service"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// GuildsHandler exposes guild onboarding over HTTP.
type GuildsHandler struct {
	service *service.GuildService
}

// NewGuildsHandler constructs handler.
func NewGuildsHandler(guildService *service.GuildService) *GuildsHandler {
	return &GuildsHandler{service: guildService}
}

// Setup POST /guilds/:guildID/setup.
func (h *GuildsHandler) Setup(c *fiber.Ctx) error {
	var req dto.SetupGuildRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	result, err := h.service.Setup(c.UserContext(), service.GuildSetupInput{
		GuildID: c.Params("guildID"),
		OwnerID: req.OwnerID,
		Name:    req.Name,
		ActorID: actorID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SetupGuildResponse{
		GuildID:   result.Guild.ID,
		OwnerID:   result.Guild.OwnerID,
		Name:      result.Guild.Name,
		APIKey:    result.APIKey,
		CreatedAt: result.Guild.CreatedAt,
	}})
}
