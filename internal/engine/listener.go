package engine

import "slidepursuit/internal/domain"

// Listener receives the engine's outputs for the presentation layer.
//
// Callbacks run while the engine lock is held: implementations must return
// quickly and must not call back into the engine synchronously. A
// MoveRequested callback is answered later by calling Engine.MoveFinished
// once the pawn's animation has settled.
type Listener interface {
	// MoveRequested commands the presentation layer to move a pawn. from is
	// -1 when the pawn leaves its base; steps is 0 for teleports.
	MoveRequested(pawnID, from, to, steps int)
	// PawnSnapped reports a silent position update from the server.
	PawnSnapped(pawnID, index int)
	PawnBumped(pawnID int)
	PawnSlid(pawnID, from, to int)
	CardRevealed(seat int, card domain.Card)
	// CardReturned reports a card put back on top of the draw pile by
	// auto-skip or forced recovery.
	CardReturned(card domain.Card)
	TurnChanged(seat int)
	TurnSkipped(seat int)
	ExtraTurnGranted(seat int)
	MatchWon(seat int)
}

// NopListener discards every notification.
type NopListener struct{}

func (NopListener) MoveRequested(int, int, int, int) {}
func (NopListener) PawnSnapped(int, int)             {}
func (NopListener) PawnBumped(int)                   {}
func (NopListener) PawnSlid(int, int, int)           {}
func (NopListener) CardRevealed(int, domain.Card)    {}
func (NopListener) CardReturned(domain.Card)         {}
func (NopListener) TurnChanged(int)                  {}
func (NopListener) TurnSkipped(int)                  {}
func (NopListener) ExtraTurnGranted(int)             {}
func (NopListener) MatchWon(int)                     {}
