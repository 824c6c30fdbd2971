package domain

// AfterMove evicts every opposing pawn whose normalized slot equals the slot
// the mover just landed on, sending it back to base. Pawns inside any home
// lane are immune; home lanes are private. Returns the evicted pawns.
func AfterMove(b *Board, pawns []*Pawn, mover *Pawn, landed int) []*Pawn {
	abs := b.AbsSlot(mover.Owner, landed)
	if abs < 0 {
		return nil
	}
	return evictAt(b, pawns, mover, abs)
}

// AfterSlide applies the slide chain for the slot the mover landed on, if
// that slot starts a slide of another colour. The mover is carried across
// every square of the slide and each crossed square (landing square
// included) evicts opposing pawns found there. Returns the mover's new
// seat-local index and the evicted pawns; when no slide triggers, the index
// is returned unchanged.
func AfterSlide(b *Board, pawns []*Pawn, mover *Pawn, landed int) (int, []*Pawn) {
	abs := b.AbsSlot(mover.Owner, landed)
	if abs < 0 {
		return landed, nil
	}
	slide, ok := b.SlideAt(abs)
	if !ok || slide.Owner == mover.Owner {
		return landed, nil
	}

	var evicted []*Pawn
	for step := 1; step <= slide.Length; step++ {
		crossed := (abs + step) % b.RouteLen
		evicted = append(evicted, evictAt(b, pawns, mover, crossed)...)
	}
	return landed + slide.Length, evicted
}

func evictAt(b *Board, pawns []*Pawn, mover *Pawn, abs int) []*Pawn {
	var evicted []*Pawn
	for _, p := range pawns {
		if p.Owner == mover.Owner || p.ID == mover.ID {
			continue
		}
		if p.NormalizedSlot(b) == abs {
			p.SendToBase()
			evicted = append(evicted, p)
		}
	}
	return evicted
}
