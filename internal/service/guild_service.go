package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/config"
	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/permission"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/txn"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// GuildService handles tenant onboarding.
type GuildService struct {
	tx     txn.Manager
	db     persistence.Queryable
	guilds repository.GuildRepository
	roles  repository.RoleRepository
	audits repository.AuditRepository
	perms  *permission.Engine
	cfg    config.AuthConfig
}

// GuildDependencies bundles collaborators for the guild service.
type GuildDependencies struct {
	Tx          txn.Manager
	DB          persistence.Queryable
	GuildRepo   repository.GuildRepository
	RoleRepo    repository.RoleRepository
	AuditRepo   repository.AuditRepository
	Permissions *permission.Engine
	AuthConfig  config.AuthConfig
}

// GuildSetupInput describes onboarding payload.
type GuildSetupInput struct {
	GuildID string
	OwnerID string
	Name    string
	ActorID string
}

// GuildSetupResult carries the onboarded guild and its API key. The
// plaintext key is returned exactly once; only the bcrypt hash is
// stored.
type GuildSetupResult struct {
	Guild  *domain.Guild
	APIKey string
}

// NewGuildService constructs the service.
func NewGuildService(deps GuildDependencies) *GuildService {
	return &GuildService{
		tx:     deps.Tx,
		db:     deps.DB,
		guilds: deps.GuildRepo,
		roles:  deps.RoleRepo,
		audits: deps.AuditRepo,
		perms:  deps.Permissions,
		cfg:    deps.AuthConfig,
	}
}

// Setup registers a guild, creates the default "admin" and "support"
// roles, and assigns the owner to admin. Bootstrap action: allowed for
// the owner themselves or a platform admin, before any roles exist.
func (s *GuildService) Setup(ctx context.Context, input GuildSetupInput) (*GuildSetupResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.GuildID == "" || input.OwnerID == "" {
		return nil, apperrors.NewValidationError("guild_id and owner_id are required", nil)
	}
	if input.ActorID != input.OwnerID && !s.perms.IsPlatformAdmin(input.ActorID) {
		return nil, apperrors.NewPermissionDenied("only the guild owner or a platform admin may run setup", nil)
	}

	if _, err := s.guilds.GetByID(ctx, s.db, input.GuildID); err == nil {
		return nil, apperrors.NewConflict("guild already set up", map[string]any{"guild_id": input.GuildID})
	} else if !repository.IsNoRows(err) {
		return nil, apperrors.NewStoreError(err)
	}

	apiKey := uuid.NewString()
	hash, err := auth.HashAPIKey(apiKey, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	guild := &domain.Guild{
		ID:         input.GuildID,
		OwnerID:    input.OwnerID,
		Name:       input.Name,
		APIKeyHash: hash,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, txc *txn.Context) error {
		if err := s.guilds.Insert(ctx, txc.DB(), guild); err != nil {
			return apperrors.NewStoreError(err)
		}

		adminRole := &domain.Role{
			ID:          uuid.NewString(),
			GuildID:     guild.ID,
			Name:        "admin",
			Permissions: uint64(permission.DefaultAdminMask),
			IsDefault:   true,
		}
		supportRole := &domain.Role{
			ID:          uuid.NewString(),
			GuildID:     guild.ID,
			Name:        "support",
			Permissions: uint64(permission.DefaultSupportMask),
			IsDefault:   true,
		}
		for _, role := range []*domain.Role{adminRole, supportRole} {
			if err := s.roles.Insert(ctx, txc.DB(), role); err != nil {
				return apperrors.NewStoreError(err)
			}
		}
		member := &domain.RoleMember{GuildID: guild.ID, RoleID: adminRole.ID, UserID: input.OwnerID}
		if err := s.roles.AddMember(ctx, txc.DB(), member); err != nil {
			return apperrors.NewStoreError(err)
		}

		event := &domain.AuditEvent{
			GuildID:    guild.ID,
			ActorID:    input.ActorID,
			Category:   domain.AuditCategoryGuild,
			Action:     "setup",
			TargetType: "guild",
			TargetID:   guild.ID,
			Metadata: map[string]any{
				"owner_id": input.OwnerID,
				"name":     input.Name,
			},
		}
		if err := s.audits.Insert(ctx, txc.DB(), event); err != nil {
			return apperrors.NewStoreError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &GuildSetupResult{Guild: guild, APIKey: apiKey}, nil
}

// VerifyAPIKey checks a presented key against the guild's stored hash.
func (s *GuildService) VerifyAPIKey(ctx context.Context, guildID, apiKey string) error {
	guild, err := s.guilds.GetByID(ctx, s.db, guildID)
	if err != nil {
		if repository.IsNoRows(err) {
			return apperrors.NewNotFound("guild", map[string]any{"guild_id": guildID})
		}
		return apperrors.NewStoreError(err)
	}
	if err := auth.CompareAPIKey(guild.APIKeyHash, apiKey); err != nil {
		return apperrors.NewUnauthorized("invalid api key")
	}
	return nil
}
