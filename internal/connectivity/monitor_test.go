package connectivity

import "testing"

func TestSetOnlineNotifiesOnTransitionsOnly(t *testing.T) {
	m := NewMonitor(false)

	var events []bool
	m.Subscribe(func(online bool) {
		events = append(events, online)
	})

	m.SetOnline(false) // no transition
	m.SetOnline(true)
	m.SetOnline(true) // no transition
	m.SetOnline(false)

	if len(events) != 2 {
		t.Fatalf("expected 2 transition events, got %d", len(events))
	}
	if !events[0] || events[1] {
		t.Errorf("unexpected transition order: %v", events)
	}
	if m.Online() {
		t.Error("expected final state offline")
	}
}

func TestInitialState(t *testing.T) {
	if !NewMonitor(true).Online() {
		t.Error("expected initial online state")
	}
	if NewMonitor(false).Online() {
		t.Error("expected initial offline state")
	}
}
