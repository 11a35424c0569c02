package permission

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// MaskCache caches effective masks per (guild, user). Best effort: any
// failure falls through to the store. Invalidated whenever role
// membership or role masks change.
type MaskCache interface {
	Get(ctx context.Context, guildID, userID string) (uint64, bool, error)
	Set(ctx context.Context, guildID, userID string, mask uint64) error
	InvalidateGuild(ctx context.Context, guildID string) error
}

// Engine computes and checks effective permission masks. Mask
// computation is a pure function of role assignments; the engine holds
// no mutable state of its own.
type Engine struct {
	db             persistence.Queryable
	roles          repository.RoleRepository
	guilds         repository.GuildRepository
	cache          MaskCache
	platformAdmins map[string]struct{}
	logger         *zap.Logger
}

// EngineDependencies bundles collaborators for the engine.
type EngineDependencies struct {
	DB             persistence.Queryable
	RoleRepo       repository.RoleRepository
	GuildRepo      repository.GuildRepository
	Cache          MaskCache
	PlatformAdmins []string
	Logger         *zap.Logger
}

// NewEngine constructs the engine.
func NewEngine(deps EngineDependencies) *Engine {
	admins := make(map[string]struct{}, len(deps.PlatformAdmins))
	for _, id := range deps.PlatformAdmins {
		admins[id] = struct{}{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:             deps.DB,
		roles:          deps.RoleRepo,
		guilds:         deps.GuildRepo,
		cache:          deps.Cache,
		platformAdmins: admins,
		logger:         logger,
	}
}

// EffectiveMask aggregates the user's role masks in the guild. A user
// with no roles gets a zero mask, not an error.
func (e *Engine) EffectiveMask(ctx context.Context, guildID, userID string) (Flag, error) {
	if e.cache != nil {
		if mask, ok, err := e.cache.Get(ctx, guildID, userID); err != nil {
			e.logger.Warn("permission cache read failed", zap.Error(err))
		} else if ok {
			return Flag(mask), nil
		}
	}

	masks, err := e.roles.MasksForUser(ctx, e.db, guildID, userID)
	if err != nil {
		return 0, apperrors.NewStoreError(err)
	}
	mask := Combine(masks...)

	if e.cache != nil {
		if err := e.cache.Set(ctx, guildID, userID, uint64(mask)); err != nil {
			e.logger.Warn("permission cache write failed", zap.Error(err))
		}
	}
	return mask, nil
}

// CheckOption adjusts a single permission check.
type CheckOption func(*checkOptions)

type checkOptions struct {
	allowGuildOwner    bool
	allowPlatformAdmin bool
}

// AllowGuildOwner short-circuits the check for the guild's owner,
// independent of role bits. Used for bootstrap actions before roles
// exist.
func AllowGuildOwner() CheckOption {
	return func(o *checkOptions) { o.allowGuildOwner = true }
}

// AllowPlatformAdmin short-circuits the check for platform operators.
func AllowPlatformAdmin() CheckOption {
	return func(o *checkOptions) { o.allowPlatformAdmin = true }
}

// Check returns PermissionDenied unless the user's effective mask has
// the flag or an enabled override applies.
func (e *Engine) Check(ctx context.Context, guildID, userID string, flag Flag, opts ...CheckOption) error {
	var options checkOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.allowPlatformAdmin && e.IsPlatformAdmin(userID) {
		return nil
	}
	if options.allowGuildOwner {
		guild, err := e.guilds.GetByID(ctx, e.db, guildID)
		if err == nil && guild.OwnerID == userID {
			return nil
		}
		if err != nil && !repository.IsNoRows(err) {
			return apperrors.NewStoreError(err)
		}
	}

	mask, err := e.EffectiveMask(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if !mask.Has(flag) {
		return apperrors.NewPermissionDenied("", map[string]any{
			"required": Names(flag),
		})
	}
	return nil
}

// IsPlatformAdmin reports whether the user is a platform operator.
func (e *Engine) IsPlatformAdmin(userID string) bool {
	_, ok := e.platformAdmins[userID]
	return ok
}

// InvalidateGuild drops cached masks for every user in the guild.
func (e *Engine) InvalidateGuild(ctx context.Context, guildID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateGuild(ctx, guildID); err != nil {
		e.logger.Warn("permission cache invalidation failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}
