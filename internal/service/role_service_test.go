package service

import (
	"context"
	"testing"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/permission"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

type countingCache struct {
	invalidations []string
}

func (c *countingCache) Get(ctx context.Context, guildID, userID string) (uint64, bool, error) {
	return 0, false, nil
}

func (c *countingCache) Set(ctx context.Context, guildID, userID string, mask uint64) error {
	return nil
}

func (c *countingCache) InvalidateGuild(ctx context.Context, guildID string) error {
	c.invalidations = append(c.invalidations, guildID)
	return nil
}

type roleFixture struct {
	service *RoleService
	roles   *stubRoleRepo
	audits  *memAuditRepo
	cache   *countingCache
}

func newRoleFixture() *roleFixture {
	roles := newStubRoleRepo()
	audits := &memAuditRepo{}
	cache := &countingCache{}

	guilds := newStubGuildRepo()
	guilds.guilds["g1"] = &domain.Guild{ID: "g1", OwnerID: "owner"}

	engine := permission.NewEngine(permission.EngineDependencies{
		RoleRepo:  roles,
		GuildRepo: guilds,
		Cache:     cache,
	})

	svc := NewRoleService(RoleDependencies{
		Tx:          &fakeTxnManager{},
		RoleRepo:    roles,
		AuditRepo:   audits,
		Permissions: engine,
	})
	return &roleFixture{service: svc, roles: roles, audits: audits, cache: cache}
}

func TestCreateRoleRequiresTeamManage(t *testing.T) {
	f := newRoleFixture()
	ctx := context.Background()

	if _, err := f.service.CreateRole(ctx, "g1", "stranger", "helpers", 0); !apperrors.IsPermissionDenied(err) {
		t.Fatalf("expected denial, got %v", err)
	}

	role, err := f.service.CreateRole(ctx, "g1", "owner", "helpers", uint64(permission.TicketClaim))
	if err != nil {
		t.Fatalf("owner should create roles: %v", err)
	}
	if role.ID == "" || role.Permissions != uint64(permission.TicketClaim) {
		t.Fatalf("unexpected role: %+v", role)
	}
	if len(f.cache.invalidations) != 1 {
		t.Fatalf("expected one cache invalidation, got %v", f.cache.invalidations)
	}
	if got := f.audits.actions(); len(got) != 1 || got[0] != "role_created" {
		t.Fatalf("expected role_created audit, got %v", got)
	}
}

func TestUpdateRoleMask(t *testing.T) {
	f := newRoleFixture()
	ctx := context.Background()

	role, err := f.service.CreateRole(ctx, "g1", "owner", "helpers", uint64(permission.TicketClaim))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.service.UpdateRoleMask(ctx, "g1", "owner", role.ID, uint64(permission.TicketClaim|permission.TicketClose)); err != nil {
		t.Fatal(err)
	}
	stored, err := f.roles.GetByID(ctx, nil, "g1", role.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Permissions != uint64(permission.TicketClaim|permission.TicketClose) {
		t.Fatalf("mask not updated: %b", stored.Permissions)
	}

	if err := f.service.UpdateRoleMask(ctx, "g1", "owner", "missing", 0); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRoleProtectsDefaults(t *testing.T) {
	f := newRoleFixture()
	ctx := context.Background()

	def := &domain.Role{ID: "r-default", GuildID: "g1", Name: "admin", IsDefault: true}
	if err := f.roles.Insert(ctx, nil, def); err != nil {
		t.Fatal(err)
	}

	if err := f.service.DeleteRole(ctx, "g1", "owner", "r-default"); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("default role deletion should conflict, got %v", err)
	}

	role, err := f.service.CreateRole(ctx, "g1", "owner", "temps", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.service.DeleteRole(ctx, "g1", "owner", role.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.roles.GetByID(ctx, nil, "g1", role.ID); err == nil {
		t.Fatal("role should be gone")
	}
}

func TestMembershipChangesEffectiveMask(t *testing.T) {
	f := newRoleFixture()
	ctx := context.Background()

	role, err := f.service.CreateRole(ctx, "g1", "owner", "helpers", uint64(permission.TicketClaim))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.service.AssignRole(ctx, "g1", "owner", role.ID, "newbie"); err != nil {
		t.Fatal(err)
	}
	// Assigning twice is a no-op, not an error.
	if err := f.service.AssignRole(ctx, "g1", "owner", role.ID, "newbie"); err != nil {
		t.Fatalf("re-assign should be tolerated: %v", err)
	}
	if len(f.roles.members["g1/"+role.ID]) != 1 {
		t.Fatalf("duplicate membership stored: %v", f.roles.members)
	}

	invalidationsBefore := len(f.cache.invalidations)
	if err := f.service.RemoveRole(ctx, "g1", "owner", role.ID, "newbie"); err != nil {
		t.Fatal(err)
	}
	if len(f.cache.invalidations) != invalidationsBefore+1 {
		t.Fatal("membership removal must invalidate the cache")
	}

	// Removing a non-member is tolerated and does not audit or
	// invalidate.
	auditsBefore := len(f.audits.events)
	if err := f.service.RemoveRole(ctx, "g1", "owner", role.ID, "ghost"); err != nil {
		t.Fatalf("non-member removal should be tolerated: %v", err)
	}
	if len(f.audits.events) != auditsBefore {
		t.Fatal("non-member removal should not audit")
	}

	if err := f.service.AssignRole(ctx, "g1", "owner", "missing", "newbie"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRoles(t *testing.T) {
	f := newRoleFixture()
	ctx := context.Background()

	if _, err := f.service.CreateRole(ctx, "g1", "owner", "helpers", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.ListRoles(ctx, "g1", "stranger"); !apperrors.IsPermissionDenied(err) {
		t.Fatalf("expected denial, got %v", err)
	}
	roles, err := f.service.ListRoles(ctx, "g1", "owner")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 {
		t.Fatalf("expected 1 role, got %d", len(roles))
	}
}
