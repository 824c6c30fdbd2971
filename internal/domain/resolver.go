package domain

import "errors"

// Move rejection reasons. These are the only ways a destination query fails;
// none of them is fatal, callers simply do not commit the move.
var (
	ErrBackwardFromBase = errors.New("cannot move backward from base")
	ErrAlreadyFinished  = errors.New("pawn already finished")
	ErrOvershoot        = errors.New("move overshoots the final home slot")
	ErrBlockedBySelf    = errors.New("destination occupied by own pawn")
	ErrZeroSteps        = errors.New("step count must be non-zero")
)

// Dest computes the seat-local destination index for moving a pawn by the
// given step count, without any occupancy checks. It is pure: the pawn is
// never mutated and repeated calls yield identical results.
//
// Forward movement turns into the home lane when it crosses the entry gate,
// except from the very last outer-track index, which wraps to the start of
// the loop instead. Backward movement retreats through the home lane onto
// the entry gate and wraps around the gate, while backward movement on the
// outer track wraps off index 0 onto the last outer index. The asymmetry
// between the two wrap rules is deliberate; existing layouts depend on it.
func (b *Board) Dest(p *Pawn, steps int) (int, error) {
	if p.Finished() {
		return 0, ErrAlreadyFinished
	}
	if steps == 0 {
		return 0, ErrZeroSteps
	}

	if p.AtBase() {
		if steps < 0 {
			return 0, ErrBackwardFromBase
		}
		return b.checkBounds(steps - 1)
	}

	if steps > 0 {
		return b.forward(p.Index, steps)
	}
	return b.backward(p.Index, -steps)
}

func (b *Board) forward(index, steps int) (int, error) {
	// Dead zone: forward movement from the last outer index never enters
	// the home lane, it wraps to the start of the loop.
	if index == b.LastOuter() {
		return b.checkBounds(steps - 1)
	}
	if index <= b.EntryGate() {
		toGate := b.EntryGate() - index
		if steps <= toGate {
			return index + steps, nil
		}
		excess := steps - toGate - 1
		return b.checkBounds(b.RouteLen + excess)
	}
	// Inside the home lane.
	return b.checkBounds(index + steps)
}

func (b *Board) backward(index, back int) (int, error) {
	if index >= b.RouteLen {
		// Retreat within the lane first, then re-enter the outer track at
		// the entry gate and keep counting from there.
		lane := index - b.RouteLen
		if back <= lane {
			return index - back, nil
		}
		dest := b.EntryGate() - (back - lane - 1)
		if dest < 0 {
			dest += b.EntryGate() + 1
		}
		return dest, nil
	}

	dest := index - back
	if dest < 0 {
		dest += b.RouteLen
	}
	return dest, nil
}

func (b *Board) checkBounds(dest int) (int, error) {
	if dest >= b.PathLen() {
		return 0, ErrOvershoot
	}
	return dest, nil
}

// Resolve is the full legality check: destination arithmetic plus same-owner
// blocking. Opposing pawns never block; they are bumped after the move lands.
// The query mutates nothing and may be used freely for previews and scoring.
func (b *Board) Resolve(pawns []*Pawn, p *Pawn, steps int) (int, error) {
	dest, err := b.Dest(p, steps)
	if err != nil {
		return 0, err
	}
	for _, other := range pawns {
		if other.Owner != p.Owner || other.ID == p.ID {
			continue
		}
		// Same owner means the same path frame, so local indices compare
		// directly. Finished pawns share the home pocket and never block.
		if other.State == PawnOnTrack && other.Index == dest {
			return 0, ErrBlockedBySelf
		}
	}
	return dest, nil
}

// CanMove reports whether the pawn has a legal move of the given step count.
func (b *Board) CanMove(pawns []*Pawn, p *Pawn, steps int) bool {
	_, err := b.Resolve(pawns, p, steps)
	return err == nil
}
