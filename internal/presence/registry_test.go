package presence

import "testing"

type fakeHandle string

func (f fakeHandle) ID() string { return string(f) }

func TestRegistry_LatestRegisterWins(t *testing.T) {
	r := NewRegistry[fakeHandle]()

	for _, h := range []fakeHandle{"h1", "h2", "h3"} {
		r.Register("alice", h)
		got, ok := r.Lookup("alice")
		if !ok || got != h {
			t.Fatalf("Expected lookup to return %s, got %s (ok=%v)", h, got, ok)
		}
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", r.Len())
	}
	if _, ok := r.UserFor("h1"); ok {
		t.Error("Expected superseded handle h1 to be dropped from the connection index")
	}
}

func TestRegistry_LookupAbsent(t *testing.T) {
	r := NewRegistry[fakeHandle]()
	if _, ok := r.Lookup("nobody"); ok {
		t.Error("Expected absent user to report not found")
	}
}

func TestRegistry_StaleUnregisterKeepsNewerEntry(t *testing.T) {
	r := NewRegistry[fakeHandle]()
	r.Register("alice", "h1")
	r.Register("alice", "h2")

	if r.Unregister("alice", "h1") {
		t.Error("Expected stale unregister to report no removal")
	}
	got, ok := r.Lookup("alice")
	if !ok || got != "h2" {
		t.Fatalf("Expected h2 to survive stale unregister, got %s (ok=%v)", got, ok)
	}

	if !r.Unregister("alice", "h2") {
		t.Error("Expected unregister of the live handle to remove it")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Error("Expected alice to be absent after unregistering h2")
	}
	if r.Unregister("alice", "h2") {
		t.Error("Expected second unregister to be a no-op")
	}
}

func TestRegistry_ReannounceMovesAssociation(t *testing.T) {
	r := NewRegistry[fakeHandle]()
	r.Register("alice", "h1")
	r.Register("bob", "h1")

	if _, ok := r.Lookup("alice"); ok {
		t.Error("Expected alice to lose her entry when h1 re-announced as bob")
	}
	if u, ok := r.UserFor("h1"); !ok || u != "bob" {
		t.Errorf("Expected h1 to map to bob, got %q (ok=%v)", u, ok)
	}
}

func TestRegistry_UnregisterDoesNotTouchOtherUsers(t *testing.T) {
	r := NewRegistry[fakeHandle]()
	r.Register("alice", "h1")
	r.Register("bob", "h2")

	r.Unregister("bob", "h1")
	r.Unregister("alice", "h2")

	if _, ok := r.Lookup("alice"); !ok {
		t.Error("Expected alice to remain registered")
	}
	if _, ok := r.Lookup("bob"); !ok {
		t.Error("Expected bob to remain registered")
	}
}
