package domain

// Slide is a run of outer-track squares that carries a pawn forward when it
// lands on Start. Pawns of the owning seat pass over their own slides.
type Slide struct {
	Start  int // absolute outer-track slot of the slide trigger
	Length int // squares travelled beyond Start
	Owner  int // seat that owns the slide colour
}

// Board describes one track layout: a shared outer loop plus a private home
// lane per seat. All pawn indices are seat-local; index 0 is the slot a pawn
// lands on when it leaves its base, [0..RouteLen-1] is the outer loop and
// [RouteLen..PathLen-1] is that seat's home lane.
type Board struct {
	Name     string
	Seats    int
	RouteLen int   // outer loop length
	HomeLen  int   // home lane length, final slot included
	Offsets  []int // absolute slot of each seat's local index 0
	Slides   []Slide
}

// FourPlayerBoard is the standard layout: 60 outer slots, 6 home-lane slots,
// seats a quarter turn apart, two slides per board side.
func FourPlayerBoard() *Board {
	return boardFor("standard4", []int{0, 15, 30, 45})
}

// TwoPlayerBoard reuses the standard track with seats on opposite sides.
func TwoPlayerBoard() *Board {
	return boardFor("standard2", []int{0, 30})
}

// BoardForPlayers returns the default layout for a player count.
func BoardForPlayers(players int) *Board {
	if players == 2 {
		return TwoPlayerBoard()
	}
	return FourPlayerBoard()
}

func boardFor(name string, offsets []int) *Board {
	slides := make([]Slide, 0, 8)
	for side := 0; side < 4; side++ {
		owner := -1
		for seat, off := range offsets {
			if off == side*15 {
				owner = seat
			}
		}
		slides = append(slides,
			Slide{Start: side*15 + 1, Length: 4, Owner: owner},
			Slide{Start: side*15 + 9, Length: 5, Owner: owner},
		)
	}
	return &Board{
		Name:     name,
		Seats:    len(offsets),
		RouteLen: 60,
		HomeLen:  6,
		Offsets:  offsets,
		Slides:   slides,
	}
}

// PathLen is the length of one seat's complete path, home lane included.
func (b *Board) PathLen() int { return b.RouteLen + b.HomeLen }

// FinalIndex is the exact final home slot; reaching it finishes the pawn.
func (b *Board) FinalIndex() int { return b.PathLen() - 1 }

// EntryGate is the last outer-track index before the home lane turnoff.
func (b *Board) EntryGate() int { return b.RouteLen - 2 }

// LastOuter is the final outer-track index. Forward moves never enter the
// home lane from here; they wrap to the start of the loop instead.
func (b *Board) LastOuter() int { return b.RouteLen - 1 }

// AbsSlot converts a seat-local outer-track index to its shared absolute
// slot. Home-lane indices are private and return -1.
func (b *Board) AbsSlot(seat, index int) int {
	if index < 0 || index >= b.RouteLen {
		return -1
	}
	return (b.Offsets[seat] + index) % b.RouteLen
}

// LocalIndex converts an absolute outer-track slot to a seat-local index.
func (b *Board) LocalIndex(seat, abs int) int {
	return ((abs-b.Offsets[seat])%b.RouteLen + b.RouteLen) % b.RouteLen
}

// SlideAt returns the slide starting at the given absolute slot, if any.
func (b *Board) SlideAt(abs int) (Slide, bool) {
	for _, s := range b.Slides {
		if s.Start == abs {
			return s, true
		}
	}
	return Slide{}, false
}
