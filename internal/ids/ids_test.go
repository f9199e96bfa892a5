package ids

import "testing"

func TestSessionFormat(t *testing.T) {
	id := Session()
	if len(id) != len("sess_")+16 {
		t.Errorf("session ID length = %d, want %d", len(id), len("sess_")+16)
	}
	if id[:5] != "sess_" {
		t.Errorf("session ID prefix = %q, want %q", id[:5], "sess_")
	}
}

func TestItemFormat(t *testing.T) {
	id := Item()
	if len(id) != len("item_")+20 {
		t.Errorf("item ID length = %d, want %d", len(id), len("item_")+20)
	}
	if id[:5] != "item_" {
		t.Errorf("item ID prefix = %q, want %q", id[:5], "item_")
	}
}

func TestEventFormat(t *testing.T) {
	id := Event()
	if len(id) != len("event_")+20 {
		t.Errorf("event ID length = %d, want %d", len(id), len("event_")+20)
	}
	if id[:6] != "event_" {
		t.Errorf("event ID prefix = %q, want %q", id[:6], "event_")
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := Event()
		if seen[id] {
			t.Error("generated duplicate event ID")
		}
		seen[id] = true
	}
}
