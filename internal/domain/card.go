package domain

// LabelSorry marks the attack card; its fallback value lives in Secondary.
const LabelSorry = "SORRY"

// Card is one drawn card. Primary is the main step value (negative for the
// backward-only card), Secondary the alternate value of dual-power cards.
type Card struct {
	ID        int
	Primary   int
	Secondary int
	Dual      bool
	Label     string
}

// IsSorry reports whether this is the attack card.
func (c Card) IsSorry() bool { return c.Label == LabelSorry }

// IsSplit reports whether the card may be divided between two pawns.
func (c Card) IsSplit() bool { return c.Primary == 7 }

// IsSwap reports whether the card's alternate option is a position swap.
func (c Card) IsSwap() bool { return c.Dual && c.Primary == 11 }

// IsCapture reports whether the card's alternate option is a capture.
func (c Card) IsCapture() bool { return c.Primary == 12 }
