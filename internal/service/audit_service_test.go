package service

import (
	"context"
	"testing"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/permission"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

func newAuditFixture() (*AuditService, *ticketFixture) {
	f := newTicketFixture()
	engine := permission.NewEngine(permission.EngineDependencies{
		RoleRepo:  f.roles,
		GuildRepo: newStubGuildRepo(),
	})
	svc := NewAuditService(AuditDependencies{
		AuditRepo:   f.audits,
		TicketRepo:  f.tickets,
		Permissions: engine,
	})
	return svc, f
}

func TestListForTicketTracksLifecycle(t *testing.T) {
	svc, f := newAuditFixture()
	f.roles.grant("g1", "staff", uint64(permission.TicketClaim|permission.TicketClose))
	ctx := context.Background()

	ticket := f.open(t, "g1", "alice")
	if _, err := f.service.Claim(ctx, "g1", ticket.Number, "staff", false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.Close(ctx, "g1", ticket.Number, "staff", nil, false, false); err != nil {
		t.Fatal(err)
	}

	trail, err := svc.ListForTicket(ctx, "g1", ticket.Number, "alice")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{domain.AuditActionCreated, domain.AuditActionClaimed, domain.AuditActionClosed}
	if len(trail) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(trail))
	}
	for i, action := range want {
		if trail[i].Action != action {
			t.Fatalf("entry %d: expected %s, got %s", i, action, trail[i].Action)
		}
	}
}

func TestListForTicketVisibility(t *testing.T) {
	svc, f := newAuditFixture()
	f.roles.grant("g1", "auditor", uint64(permission.AuditView))
	ctx := context.Background()

	ticket := f.open(t, "g1", "alice")

	if _, err := svc.ListForTicket(ctx, "g1", ticket.Number, "alice"); err != nil {
		t.Fatalf("opener should read own trail: %v", err)
	}
	if _, err := svc.ListForTicket(ctx, "g1", ticket.Number, "auditor"); err != nil {
		t.Fatalf("AUDIT_VIEW holder should read any trail: %v", err)
	}
	if _, err := svc.ListForTicket(ctx, "g1", ticket.Number, "stranger"); !apperrors.IsPermissionDenied(err) {
		t.Fatalf("expected denial, got %v", err)
	}
	if _, err := svc.ListForTicket(ctx, "g1", 999, "alice"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListForGuildRequiresAuditView(t *testing.T) {
	svc, f := newAuditFixture()
	f.roles.grant("g1", "auditor", uint64(permission.AuditView))
	ctx := context.Background()

	f.open(t, "g1", "alice")
	f.open(t, "g1", "bob")

	if _, err := svc.ListForGuild(ctx, "g1", "alice", 50, 0); !apperrors.IsPermissionDenied(err) {
		t.Fatalf("expected denial, got %v", err)
	}
	trail, err := svc.ListForGuild(ctx, "g1", "auditor", 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(trail))
	}
	// Newest first.
	if trail[0].ID < trail[1].ID {
		t.Fatal("guild trail should be newest first")
	}
}
