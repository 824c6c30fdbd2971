package domain

import "testing"

func TestAfterMove(t *testing.T) {
	b := FourPlayerBoard()

	t.Run("OpposingPawnOnSlotIsEvicted", func(t *testing.T) {
		mover := trackPawn(0, 0, 20)
		victim := trackPawn(1, 4, b.LocalIndex(1, 20))
		pawns := []*Pawn{mover, victim}

		evicted := AfterMove(b, pawns, mover, 20)
		if len(evicted) != 1 || evicted[0].ID != victim.ID {
			t.Fatalf("AfterMove() evicted %v, want pawn %d", evicted, victim.ID)
		}
		if !victim.AtBase() {
			t.Errorf("victim not sent to base: %v", victim)
		}
	})

	t.Run("HomeLanePawnIsImmune", func(t *testing.T) {
		mover := trackPawn(0, 0, 20)
		safe := trackPawn(1, 4, b.RouteLen+1)
		pawns := []*Pawn{mover, safe}

		if evicted := AfterMove(b, pawns, mover, 20); len(evicted) != 0 {
			t.Fatalf("AfterMove() evicted %v, want none", evicted)
		}
	})

	t.Run("MoverInHomeLaneBumpsNothing", func(t *testing.T) {
		mover := trackPawn(0, 0, b.RouteLen+2)
		other := trackPawn(1, 4, 10)
		pawns := []*Pawn{mover, other}

		if evicted := AfterMove(b, pawns, mover, b.RouteLen+2); len(evicted) != 0 {
			t.Fatalf("AfterMove() evicted %v, want none", evicted)
		}
	})
}

func TestAfterSlide(t *testing.T) {
	b := FourPlayerBoard()

	t.Run("SlideCarriesMoverAndEvictsAlongPath", func(t *testing.T) {
		// Absolute slot 16 starts seat 1's length-4 slide; seat 0 triggers it.
		mover := trackPawn(0, 0, 16)
		midVictim := trackPawn(2, 8, b.LocalIndex(2, 18))
		endVictim := trackPawn(3, 12, b.LocalIndex(3, 20))
		pawns := []*Pawn{mover, midVictim, endVictim}

		final, evicted := AfterSlide(b, pawns, mover, 16)
		if final != 20 {
			t.Fatalf("AfterSlide() final = %d, want 20", final)
		}
		if len(evicted) != 2 {
			t.Fatalf("AfterSlide() evicted %d pawns, want 2", len(evicted))
		}
		if !midVictim.AtBase() || !endVictim.AtBase() {
			t.Errorf("victims not sent to base: %v, %v", midVictim, endVictim)
		}
	})

	t.Run("OwnColourSlideDoesNotTrigger", func(t *testing.T) {
		mover := trackPawn(1, 4, b.LocalIndex(1, 16))
		pawns := []*Pawn{mover}

		final, evicted := AfterSlide(b, pawns, mover, mover.Index)
		if final != mover.Index || len(evicted) != 0 {
			t.Fatalf("AfterSlide() = (%d, %v), want no slide", final, evicted)
		}
	})

	t.Run("PlainSlotDoesNotSlide", func(t *testing.T) {
		mover := trackPawn(0, 0, 20)
		final, evicted := AfterSlide(b, []*Pawn{mover}, mover, 20)
		if final != 20 || len(evicted) != 0 {
			t.Fatalf("AfterSlide() = (%d, %v), want no slide", final, evicted)
		}
	})
}

func TestNoSelfOverlapAfterResolvedMoves(t *testing.T) {
	b := FourPlayerBoard()
	a := trackPawn(0, 0, 5)
	c := trackPawn(0, 1, 8)
	pawns := []*Pawn{a, c}

	// A move that would stack seat 0's pawns is rejected, so committing only
	// accepted destinations can never produce a same-owner overlap.
	if _, err := b.Resolve(pawns, a, 3); err != ErrBlockedBySelf {
		t.Fatalf("Resolve() error = %v, want ErrBlockedBySelf", err)
	}

	dest, err := b.Resolve(pawns, a, 4)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	a.PlaceAt(b, dest)

	seen := map[int]bool{}
	for _, p := range SeatPawns(pawns, 0) {
		if p.State != PawnOnTrack {
			continue
		}
		if seen[p.Index] {
			t.Fatalf("same-owner overlap at index %d", p.Index)
		}
		seen[p.Index] = true
	}
}
