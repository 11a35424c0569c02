package permission

import (
	"testing"
)

func TestFlagHas(t *testing.T) {
	mask := TicketView | TicketClaim

	if !mask.Has(TicketView) {
		t.Fatal("expected TicketView to be set")
	}
	if !mask.Has(TicketClaim) {
		t.Fatal("expected TicketClaim to be set")
	}
	if mask.Has(TicketClose) {
		t.Fatal("TicketClose should not be set")
	}
}

func TestZeroMaskGrantsNothing(t *testing.T) {
	var mask Flag
	for _, flag := range orderedFlags {
		if mask.Has(flag.flag) {
			t.Fatalf("zero mask unexpectedly grants %s", flag.name)
		}
	}
}

func TestHasAnyHasAll(t *testing.T) {
	mask := TicketView | TicketClose

	if !mask.HasAny(TicketClose, TicketTransfer) {
		t.Fatal("HasAny should match on TicketClose")
	}
	if mask.HasAny(TicketTransfer, TeamManage) {
		t.Fatal("HasAny should not match disjoint flags")
	}
	if !mask.HasAll(TicketView, TicketClose) {
		t.Fatal("HasAll should match full subset")
	}
	if mask.HasAll(TicketView, TicketTransfer) {
		t.Fatal("HasAll should fail on missing flag")
	}
}

func TestCombineIsUnion(t *testing.T) {
	combined := Combine(uint64(TicketView), uint64(TicketClaim), uint64(TicketView))
	if combined != TicketView|TicketClaim {
		t.Fatalf("unexpected combined mask: %b", combined)
	}
	if Combine() != 0 {
		t.Fatal("empty combine should be zero")
	}
}

// Granting a role can never remove a capability the user already has.
func TestCombineMonotonic(t *testing.T) {
	base := Combine(uint64(TicketView), uint64(TicketClaim))
	wider := Combine(uint64(TicketView), uint64(TicketClaim), uint64(TeamManage))
	for _, flag := range orderedFlags {
		if base.Has(flag.flag) && !wider.Has(flag.flag) {
			t.Fatalf("adding a mask dropped %s", flag.name)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names(TicketView | TicketClose)
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
	if names[0] != "TICKET_VIEW" || names[1] != "TICKET_CLOSE" {
		t.Fatalf("unexpected names: %v", names)
	}
	if got := Names(0); len(got) != 0 {
		t.Fatalf("zero mask should have no names, got %v", got)
	}
}

func TestDefaultMasks(t *testing.T) {
	for _, flag := range orderedFlags {
		if !DefaultAdminMask.Has(flag.flag) {
			t.Fatalf("admin mask missing %s", flag.name)
		}
	}
	if !DefaultSupportMask.HasAll(TicketView, TicketViewAll, TicketClaim, TicketClose, TicketTransfer) {
		t.Fatal("support mask missing expected flags")
	}
	if DefaultSupportMask.Has(TeamManage) {
		t.Fatal("support mask should not manage roles")
	}
	if DefaultSupportMask.Has(TicketCloseAny) {
		t.Fatal("support mask should not close arbitrary tickets")
	}
}
