package performance

import "testing"

func TestSelectionGuardSupersedes(t *testing.T) {
	g := NewSelectionGuard()
	first := g.Begin("U1")
	other := g.Begin("U2")
	if !first.Current() {
		t.Fatalf("first ticket should be current")
	}
	second := g.Begin("U1")
	if first.Current() {
		t.Fatalf("first ticket should be superseded")
	}
	if !second.Current() || !other.Current() {
		t.Fatalf("latest tickets should be current")
	}
	if (Ticket{}).Current() {
		t.Fatalf("zero ticket should never be current")
	}
}
