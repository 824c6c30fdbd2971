package netplay

import "testing"

func TestSeatMapPinsLocalHuman(t *testing.T) {
	m := NewSeatMap("me")
	m.Assign([]PlayerState{{UserID: "a"}, {UserID: "me"}, {UserID: "b"}})

	if seat, _ := m.SeatFor("me"); seat != 1 {
		t.Fatalf("local human at seat %d, want 1", seat)
	}
	if seat, _ := m.SeatFor("a"); seat != 2 {
		t.Fatalf("first encountered user at seat %d, want 2", seat)
	}
	if seat, _ := m.SeatFor("b"); seat != 3 {
		t.Fatalf("second encountered user at seat %d, want 3", seat)
	}
}

func TestSeatMapStableAcrossReorderedSnapshots(t *testing.T) {
	m := NewSeatMap("me")
	m.Assign([]PlayerState{{UserID: "me"}, {UserID: "a"}, {UserID: "b"}})
	first := map[string]int{}
	for _, id := range []string{"me", "a", "b"} {
		first[id], _ = m.SeatFor(id)
	}

	// The server reorders its list and adds a late joiner.
	m.Assign([]PlayerState{{UserID: "b"}, {UserID: "c"}, {UserID: "me"}, {UserID: "a"}})

	for id, want := range first {
		if got, _ := m.SeatFor(id); got != want {
			t.Errorf("seat for %q changed: %d -> %d", id, want, got)
		}
	}
	if seat, _ := m.SeatFor("c"); seat != 4 {
		t.Errorf("late joiner at seat %d, want 4", seat)
	}
	if got, _ := m.UserFor(2); got != "a" {
		t.Errorf("UserFor(2) = %q, want a", got)
	}
}
