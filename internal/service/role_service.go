package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/permission"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/txn"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// RoleService administers roles and memberships. Every mutation
// invalidates the guild's permission-mask cache after commit.
type RoleService struct {
	tx     txn.Manager
	db     persistence.Queryable
	roles  repository.RoleRepository
	audits repository.AuditRepository
	perms  *permission.Engine
}

// RoleDependencies bundles collaborators for the role service.
type RoleDependencies struct {
	Tx          txn.Manager
	DB          persistence.Queryable
	RoleRepo    repository.RoleRepository
	AuditRepo   repository.AuditRepository
	Permissions *permission.Engine
}

// NewRoleService constructs the service.
func NewRoleService(deps RoleDependencies) *RoleService {
	return &RoleService{
		tx:     deps.Tx,
		db:     deps.DB,
		roles:  deps.RoleRepo,
		audits: deps.AuditRepo,
		perms:  deps.Permissions,
	}
}

// CreateRole adds a guild role with the given permission mask.
func (s *RoleService) CreateRole(ctx context.Context, guildID, actorID, name string, mask uint64) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if guildID == "" || name == "" {
		return nil, apperrors.NewValidationError("guild_id and name are required", nil)
	}
	if err := s.perms.Check(ctx, guildID, actorID, permission.TeamManage, permission.AllowGuildOwner(), permission.AllowPlatformAdmin()); err != nil {
		return nil, err
	}

	role := &domain.Role{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		Name:        name,
		Permissions: mask,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		if err := s.roles.Insert(ctx, txc.DB(), role); err != nil {
			return apperrors.NewStoreError(err)
		}
		if err := s.recordRoleAudit(ctx, txc, guildID, actorID, "role_created", role.ID, map[string]any{
			"name":        name,
			"permissions": permission.Names(permission.Flag(mask)),
		}); err != nil {
			return err
		}
		s.queueInvalidation(txc, guildID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRoleMask replaces a role's permission mask.
func (s *RoleService) UpdateRoleMask(ctx context.Context, guildID, actorID, roleID string, mask uint64) error {
	if err := s.perms.Check(ctx, guildID, actorID, permission.TeamManage, permission.AllowGuildOwner(), permission.AllowPlatformAdmin()); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		if err := s.roles.UpdateMask(ctx, txc.DB(), guildID, roleID, mask); err != nil {
			if repository.IsNoRows(err) {
				return apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
			}
			return apperrors.NewStoreError(err)
		}
		if err := s.recordRoleAudit(ctx, txc, guildID, actorID, "role_mask_updated", roleID, map[string]any{
			"permissions": permission.Names(permission.Flag(mask)),
		}); err != nil {
			return err
		}
		s.queueInvalidation(txc, guildID)
		return nil
	})
}

// DeleteRole removes a non-default role and its memberships.
func (s *RoleService) DeleteRole(ctx context.Context, guildID, actorID, roleID string) error {
	if err := s.perms.Check(ctx, guildID, actorID, permission.TeamManage, permission.AllowGuildOwner(), permission.AllowPlatformAdmin()); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		role, err := s.roles.GetByID(ctx, txc.DB(), guildID, roleID)
		if err != nil {
			if repository.IsNoRows(err) {
				return apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
			}
			return apperrors.NewStoreError(err)
		}
		if role.IsDefault {
			return apperrors.NewConflict("default roles cannot be deleted", map[string]any{"role_id": roleID})
		}
		if err := s.roles.Delete(ctx, txc.DB(), guildID, roleID); err != nil {
			return apperrors.NewStoreError(err)
		}
		if err := s.recordRoleAudit(ctx, txc, guildID, actorID, "role_deleted", roleID, map[string]any{
			"name": role.Name,
		}); err != nil {
			return err
		}
		s.queueInvalidation(txc, guildID)
		return nil
	})
}

// AssignRole adds a user to a role. Assigning an existing member is a
// no-op.
func (s *RoleService) AssignRole(ctx context.Context, guildID, actorID, roleID, userID string) error {
	if err := s.perms.Check(ctx, guildID, actorID, permission.TeamManage, permission.AllowGuildOwner(), permission.AllowPlatformAdmin()); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		if _, err := s.roles.GetByID(ctx, txc.DB(), guildID, roleID); err != nil {
			if repository.IsNoRows(err) {
				return apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
			}
			return apperrors.NewStoreError(err)
		}
		member := &domain.RoleMember{GuildID: guildID, RoleID: roleID, UserID: userID}
		if err := s.roles.AddMember(ctx, txc.DB(), member); err != nil {
			return apperrors.NewStoreError(err)
		}
		if err := s.recordRoleAudit(ctx, txc, guildID, actorID, "member_added", roleID, map[string]any{
			"user_id": userID,
		}); err != nil {
			return err
		}
		s.queueInvalidation(txc, guildID)
		return nil
	})
}

// RemoveRole drops a user from a role. Removing a non-member is
// tolerated as non-fatal.
func (s *RoleService) RemoveRole(ctx context.Context, guildID, actorID, roleID, userID string) error {
	if err := s.perms.Check(ctx, guildID, actorID, permission.TeamManage, permission.AllowGuildOwner(), permission.AllowPlatformAdmin()); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		removed, err := s.roles.RemoveMember(ctx, txc.DB(), guildID, roleID, userID)
		if err != nil {
			return apperrors.NewStoreError(err)
		}
		if !removed {
			return nil
		}
		if err := s.recordRoleAudit(ctx, txc, guildID, actorID, "member_removed", roleID, map[string]any{
			"user_id": userID,
		}); err != nil {
			return err
		}
		s.queueInvalidation(txc, guildID)
		return nil
	})
}

// ListRoles returns the guild's roles.
func (s *RoleService) ListRoles(ctx context.Context, guildID, viewerID string) ([]domain.Role, error) {
	if err := s.perms.Check(ctx, guildID, viewerID, permission.TeamManage, permission.AllowGuildOwner(), permission.AllowPlatformAdmin()); err != nil {
		return nil, err
	}
	roles, err := s.roles.ListByGuild(ctx, s.db, guildID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return roles, nil
}

func (s *RoleService) recordRoleAudit(ctx context.Context, txc *txn.Context, guildID, actorID, action, roleID string, metadata map[string]any) error {
	event := &domain.AuditEvent{
		GuildID:    guildID,
		ActorID:    actorID,
		Category:   domain.AuditCategoryTeam,
		Action:     action,
		TargetType: "role",
		TargetID:   roleID,
		Metadata:   metadata,
	}
	if err := s.audits.Insert(ctx, txc.DB(), event); err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}

func (s *RoleService) queueInvalidation(txc *txn.Context, guildID string) {
	txc.AfterCommit("invalidate permission cache", func(ctx context.Context) error {
		s.perms.InvalidateGuild(ctx, guildID)
		return nil
	})
}
