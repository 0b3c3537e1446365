package ws

import (
	"testing"
)

func TestRegisterMakesConnectionActive(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)

	if !r.Reachable(1) {
		t.Error("user 1 should be reachable after register")
	}
	active, ok := r.Active(1)
	if !ok || active != "conn-a" {
		t.Errorf("active = %q, want conn-a", active)
	}
	owner, ok := r.OwnerOf("conn-a")
	if !ok || owner != 1 {
		t.Errorf("OwnerOf(conn-a) = %d, want 1", owner)
	}
}

func TestSecondConnectionWinsActiveSlot(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)
	r.Register("conn-b", 1)

	active, _ := r.Active(1)
	if active != "conn-b" {
		t.Errorf("active = %q, want conn-b (last writer wins)", active)
	}

	conns := r.ConnectionsOf(1)
	if len(conns) != 2 {
		t.Fatalf("live set size = %d, want 2", len(conns))
	}
	if conns[0] != "conn-a" || conns[1] != "conn-b" {
		t.Errorf("live set = %v, want [conn-a conn-b]", conns)
	}
}

func TestUnregisterNonActiveLeavesActiveUnchanged(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)
	r.Register("conn-b", 1)

	userID, wasActive, ok := r.Unregister("conn-a")
	if !ok || userID != 1 {
		t.Fatalf("Unregister = (%d, %v, %v)", userID, wasActive, ok)
	}
	if wasActive {
		t.Error("conn-a was not the active connection")
	}
	if active, _ := r.Active(1); active != "conn-b" {
		t.Errorf("active = %q, want conn-b", active)
	}
	if !r.Reachable(1) {
		t.Error("user should still be reachable")
	}
}

func TestUnregisterActivePromotesMostRecent(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)
	r.Register("conn-b", 1)
	r.Register("conn-c", 1)

	_, wasActive, _ := r.Unregister("conn-c")
	if !wasActive {
		t.Fatal("conn-c should have been active")
	}
	if active, _ := r.Active(1); active != "conn-b" {
		t.Errorf("active = %q, want conn-b (most recent remaining)", active)
	}
}

func TestUnregisterLastConnectionKeepsUserEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)
	r.Unregister("conn-a")

	if r.Reachable(1) {
		t.Error("user should be unreachable with empty live set")
	}
	if _, ok := r.Active(1); ok {
		t.Error("active should be unset")
	}
	// The entry itself survives for the process lifetime.
	found := false
	for _, id := range r.Users() {
		if id == 1 {
			found = true
		}
	}
	if !found {
		t.Error("user entry should not be deleted when the live set empties")
	}
}

func TestUnregisterUnknownConnection(t *testing.T) {
	r := NewRegistry()
	if _, _, ok := r.Unregister("nope"); ok {
		t.Error("unregistering an unknown connection should report not found")
	}
	if _, ok := r.OwnerOf("nope"); ok {
		t.Error("OwnerOf of unknown connection should report not found")
	}
	if r.ConnectionsOf(42) != nil {
		t.Error("ConnectionsOf of unknown user should be nil")
	}
}

func TestClearUserReleasesAllConnections(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)
	r.Register("conn-b", 1)
	r.Register("conn-x", 2)

	removed := r.ClearUser(1)
	if len(removed) != 2 {
		t.Fatalf("ClearUser removed %d connections, want 2", len(removed))
	}
	if r.Reachable(1) {
		t.Error("user 1 should be unreachable after clear")
	}
	if _, ok := r.OwnerOf("conn-a"); ok {
		t.Error("conn-a should no longer have an owner")
	}
	if !r.Reachable(2) {
		t.Error("user 2 must be untouched")
	}
}

func TestReRegisterSameConnectionRestoresActive(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-a", 1)
	r.Register("conn-b", 1)
	r.Register("conn-a", 1)

	if active, _ := r.Active(1); active != "conn-a" {
		t.Errorf("active = %q, want conn-a after re-identify", active)
	}
	if got := len(r.ConnectionsOf(1)); got != 2 {
		t.Errorf("live set size = %d, want 2 (no duplicate entry)", got)
	}
}
