package engine

import "slidepursuit/internal/domain"

// ModeKind is the interaction mode a drawn card resolves to. Exactly one
// mode is active at a time; the zero value means no card is pending.
type ModeKind int

const (
	ModeNone ModeKind = iota
	// ModePlain applies the card value directly to one selected pawn.
	ModePlain
	// ModeSplit divides the 7 between two different pawns.
	ModeSplit
	// ModeDual10 offers +10 forward or -1 backward.
	ModeDual10
	// ModeDual11 offers +11 forward or a position swap with an opponent.
	ModeDual11
	// ModeCapture12 offers +12 forward or capturing an opposing pawn's slot.
	ModeCapture12
	// ModeAttack is the SORRY card: a base pawn strikes an opposing pawn.
	ModeAttack
)

func (k ModeKind) String() string {
	switch k {
	case ModeNone:
		return "none"
	case ModePlain:
		return "plain"
	case ModeSplit:
		return "split"
	case ModeDual10:
		return "dual10"
	case ModeDual11:
		return "dual11"
	case ModeCapture12:
		return "capture12"
	case ModeAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Mode tracks the active interaction mode and any partial split progress.
type Mode struct {
	Kind      ModeKind
	Remaining int // split steps still owed
	FirstPawn int // pawn that used the first split half, -1 before
}

// Session is the mutable state spanning one seat's turn.
type Session struct {
	Seat          int
	Card          *domain.Card
	Mode          Mode
	MoveLockHeld  bool
	PendingSwitch bool // a turn switch arrived while the lock was held
	PendingSeat   int
	ExtraTurn     bool // a pawn reached its exact final home slot this turn
}

// ActionKind classifies a playable action within the active mode.
type ActionKind int

const (
	ActForward ActionKind = iota
	ActBackward
	ActSwap
	ActCapture
	ActAttack
)

func (k ActionKind) String() string {
	switch k {
	case ActForward:
		return "forward"
	case ActBackward:
		return "backward"
	case ActSwap:
		return "swap"
	case ActCapture:
		return "capture"
	case ActAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Action is one concrete legal play: a pawn, a step count for track moves,
// and a target pawn for swap/capture/attack. Target is -1 when unused.
type Action struct {
	Kind   ActionKind
	PawnID int
	Steps  int
	Target int
}
