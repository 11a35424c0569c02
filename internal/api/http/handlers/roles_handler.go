package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-tickets/internal/api/dto"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/permission"
	"github.com/spec-kit/guild-tickets/internal/service"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// RolesHandler exposes team role administration over HTTP.
type RolesHandler struct {
	service *service.RoleService
}

// NewRolesHandler constructs handler.
func NewRolesHandler(roleService *service.RoleService) *RolesHandler {
	return &RolesHandler{service: roleService}
}

// Create POST /guilds/:guildID/roles.
func (h *RolesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	role, err := h.service.CreateRole(c.UserContext(), c.Params("guildID"), actorID, req.Name, req.Permissions)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": roleResponse(role)})
}

// List GET /guilds/:guildID/roles.
func (h *RolesHandler) List(c *fiber.Ctx) error {
	actorID, err := resolveActor(c, c.Query("actor_id"))
	if err != nil {
		return err
	}
	roles, err := h.service.ListRoles(c.UserContext(), c.Params("guildID"), actorID)
	if err != nil {
		return err
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		items = append(items, roleResponse(&roles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateMask PUT /guilds/:guildID/roles/:roleID.
func (h *RolesHandler) UpdateMask(c *fiber.Ctx) error {
	var req dto.UpdateRoleMaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	if err := h.service.UpdateRoleMask(c.UserContext(), c.Params("guildID"), actorID, c.Params("roleID"), req.Permissions); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}

// Delete DELETE /guilds/:guildID/roles/:roleID.
func (h *RolesHandler) Delete(c *fiber.Ctx) error {
	var req dto.RoleMemberRequest
	_ = c.BodyParser(&req)
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	if err := h.service.DeleteRole(c.UserContext(), c.Params("guildID"), actorID, c.Params("roleID")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// AssignMember POST /guilds/:guildID/roles/:roleID/members.
func (h *RolesHandler) AssignMember(c *fiber.Ctx) error {
	var req dto.RoleMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	if err := h.service.AssignRole(c.UserContext(), c.Params("guildID"), actorID, c.Params("roleID"), req.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"assigned": true}})
}

// RemoveMember DELETE /guilds/:guildID/roles/:roleID/members/:userID.
func (h *RolesHandler) RemoveMember(c *fiber.Ctx) error {
	var req dto.RoleMemberRequest
	_ = c.BodyParser(&req)
	actorID, err := resolveActor(c, req.ActorID)
	if err != nil {
		return err
	}
	if err := h.service.RemoveRole(c.UserContext(), c.Params("guildID"), actorID, c.Params("roleID"), c.Params("userID")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": true}})
}

func roleResponse(role *domain.Role) dto.RoleResponse {
	return dto.RoleResponse{
		ID:              role.ID,
		GuildID:         role.GuildID,
		Name:            role.Name,
		Permissions:     role.Permissions,
		PermissionNames: permission.Names(permission.Flag(role.Permissions)),
		IsDefault:       role.IsDefault,
		CreatedAt:       role.CreatedAt,
		UpdatedAt:       role.UpdatedAt,
	}
}
