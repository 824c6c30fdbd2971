package domain

import "fmt"

// PawnState is the lifecycle stage of a single pawn.
type PawnState int

const (
	// PawnAtBase means the pawn has not entered the track; it has no index.
	PawnAtBase PawnState = iota
	// PawnOnTrack means the pawn occupies a seat-local path index.
	PawnOnTrack
	// PawnFinished means the pawn reached its exact final home slot. A
	// finished pawn never moves again until a full match reset.
	PawnFinished
)

// Pawn is one movable piece. Index is only meaningful while OnTrack or
// Finished (where it equals the board's final index).
type Pawn struct {
	Owner int
	ID    int
	Index int
	State PawnState
}

// NewPawnSet creates the initial pawns for a match, all at base.
func NewPawnSet(seats, perSeat int) []*Pawn {
	pawns := make([]*Pawn, 0, seats*perSeat)
	for seat := 0; seat < seats; seat++ {
		for i := 0; i < perSeat; i++ {
			pawns = append(pawns, &Pawn{Owner: seat, ID: seat*perSeat + i, Index: -1, State: PawnAtBase})
		}
	}
	return pawns
}

// AtBase reports whether the pawn is still in its base.
func (p *Pawn) AtBase() bool { return p.State == PawnAtBase }

// Finished reports whether the pawn reached its final home slot.
func (p *Pawn) Finished() bool { return p.State == PawnFinished }

// OnOuter reports whether the pawn occupies a shared outer-track slot.
func (p *Pawn) OnOuter(b *Board) bool {
	return p.State == PawnOnTrack && p.Index < b.RouteLen
}

// InHomeLane reports whether the pawn is inside its private home lane.
func (p *Pawn) InHomeLane(b *Board) bool {
	return p.State == PawnOnTrack && p.Index >= b.RouteLen
}

// NormalizedSlot is the pawn's shared board slot, or -1 while at base, in a
// home lane or finished. Cross-owner occupancy is compared on this value.
func (p *Pawn) NormalizedSlot(b *Board) int {
	if p.State != PawnOnTrack {
		return -1
	}
	return b.AbsSlot(p.Owner, p.Index)
}

// SendToBase returns the pawn to its base.
func (p *Pawn) SendToBase() {
	p.Index = -1
	p.State = PawnAtBase
}

// PlaceAt puts the pawn on a seat-local index, flipping to Finished when the
// index is the board's final home slot.
func (p *Pawn) PlaceAt(b *Board, index int) {
	p.Index = index
	if index == b.FinalIndex() {
		p.State = PawnFinished
	} else {
		p.State = PawnOnTrack
	}
}

func (p *Pawn) String() string {
	switch p.State {
	case PawnAtBase:
		return fmt.Sprintf("pawn %d (seat %d) at base", p.ID, p.Owner)
	case PawnFinished:
		return fmt.Sprintf("pawn %d (seat %d) finished", p.ID, p.Owner)
	default:
		return fmt.Sprintf("pawn %d (seat %d) at %d", p.ID, p.Owner, p.Index)
	}
}

// PawnByID finds a pawn by identity.
func PawnByID(pawns []*Pawn, id int) *Pawn {
	for _, p := range pawns {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// SeatPawns returns the pawns owned by one seat.
func SeatPawns(pawns []*Pawn, seat int) []*Pawn {
	out := make([]*Pawn, 0, 4)
	for _, p := range pawns {
		if p.Owner == seat {
			out = append(out, p)
		}
	}
	return out
}

// SeatFinished reports whether every pawn of a seat reached home.
func SeatFinished(pawns []*Pawn, seat int) bool {
	any := false
	for _, p := range pawns {
		if p.Owner != seat {
			continue
		}
		any = true
		if !p.Finished() {
			return false
		}
	}
	return any
}
