package engine

import "slidepursuit/internal/domain"

// resolveMode decides the interaction mode for a freshly drawn card,
// applying the documented degradations: a 7 without a genuine two-pawn
// partition is a plain 7, an 11 without a possible swap is a plain 11, and
// a SORRY without a base pawn or a target is a plain +4.
func (e *Engine) resolveMode(card domain.Card) Mode {
	none := -1
	switch {
	case card.IsSorry():
		if len(e.attackActions()) > 0 {
			return Mode{Kind: ModeAttack, FirstPawn: none}
		}
		return Mode{Kind: ModePlain, FirstPawn: none}
	case card.IsSplit():
		if e.splitPartitionExists() {
			return Mode{Kind: ModeSplit, Remaining: 7, FirstPawn: none}
		}
		return Mode{Kind: ModePlain, FirstPawn: none}
	case card.IsSwap():
		if len(e.swapActions()) > 0 {
			return Mode{Kind: ModeDual11, FirstPawn: none}
		}
		return Mode{Kind: ModePlain, FirstPawn: none}
	case card.Dual:
		return Mode{Kind: ModeDual10, FirstPawn: none}
	case card.IsCapture():
		return Mode{Kind: ModeCapture12, FirstPawn: none}
	default:
		return Mode{Kind: ModePlain, FirstPawn: none}
	}
}

// plainSteps is the step value a card applies in plain mode, including the
// SORRY fallback value.
func plainSteps(card domain.Card) int {
	if card.IsSorry() {
		return card.Secondary
	}
	return card.Primary
}

// legalActionsLocked enumerates every playable action for the active mode.
// Callers hold e.mu.
func (e *Engine) legalActionsLocked() []Action {
	if e.session.Card == nil {
		return nil
	}
	card := *e.session.Card

	switch e.session.Mode.Kind {
	case ModePlain:
		return e.stepActions(plainSteps(card))
	case ModeSplit:
		if e.session.Mode.FirstPawn < 0 {
			var acts []Action
			for s := 1; s <= 7; s++ {
				acts = append(acts, e.stepActions(s)...)
			}
			return acts
		}
		rem := e.session.Mode.Remaining
		var acts []Action
		for _, a := range e.stepActions(rem) {
			if a.PawnID != e.session.Mode.FirstPawn {
				acts = append(acts, a)
			}
		}
		return acts
	case ModeDual10:
		return append(e.stepActions(card.Primary), e.stepActions(card.Secondary)...)
	case ModeDual11:
		return append(e.stepActions(card.Primary), e.swapActions()...)
	case ModeCapture12:
		return append(e.stepActions(card.Primary), e.captureActions()...)
	case ModeAttack:
		return e.attackActions()
	default:
		return nil
	}
}

func (e *Engine) stepActions(steps int) []Action {
	if steps == 0 {
		return nil
	}
	kind := ActForward
	if steps < 0 {
		kind = ActBackward
	}
	var acts []Action
	for _, p := range domain.SeatPawns(e.pawns, e.session.Seat) {
		if e.board.CanMove(e.pawns, p, steps) {
			acts = append(acts, Action{Kind: kind, PawnID: p.ID, Steps: steps, Target: -1})
		}
	}
	return acts
}

// swapActions pairs each of the mover's outer-track pawns with each opposing
// outer-track pawn. Pawns at base, in a home lane or finished cannot swap.
func (e *Engine) swapActions() []Action {
	var acts []Action
	for _, mine := range domain.SeatPawns(e.pawns, e.session.Seat) {
		if !mine.OnOuter(e.board) {
			continue
		}
		for _, opp := range e.pawns {
			if opp.Owner == e.session.Seat || !opp.OnOuter(e.board) {
				continue
			}
			acts = append(acts, Action{Kind: ActSwap, PawnID: mine.ID, Target: opp.ID})
		}
	}
	return acts
}

// captureActions lets any unfinished pawn of the mover teleport onto an
// opposing outer-track pawn, evicting it.
func (e *Engine) captureActions() []Action {
	var acts []Action
	for _, mine := range domain.SeatPawns(e.pawns, e.session.Seat) {
		if mine.Finished() {
			continue
		}
		for _, opp := range e.pawns {
			if opp.Owner == e.session.Seat || !opp.OnOuter(e.board) {
				continue
			}
			acts = append(acts, Action{Kind: ActCapture, PawnID: mine.ID, Target: opp.ID})
		}
	}
	return acts
}

// attackActions pairs each of the mover's base pawns with each opposing
// outer-track pawn; the base pawn lands on the victim's slot.
func (e *Engine) attackActions() []Action {
	var acts []Action
	for _, mine := range domain.SeatPawns(e.pawns, e.session.Seat) {
		if !mine.AtBase() {
			continue
		}
		for _, opp := range e.pawns {
			if opp.Owner == e.session.Seat || !opp.OnOuter(e.board) {
				continue
			}
			acts = append(acts, Action{Kind: ActAttack, PawnID: mine.ID, Target: opp.ID})
		}
	}
	return acts
}

// splitPartitionExists reports whether some s in 1..6 has two different
// pawns able to move s and 7-s respectively. Only then is split mode worth
// entering; otherwise the 7 behaves as a plain card.
func (e *Engine) splitPartitionExists() bool {
	mine := domain.SeatPawns(e.pawns, e.session.Seat)
	for s := 1; s <= 6; s++ {
		for _, a := range mine {
			if !e.board.CanMove(e.pawns, a, s) {
				continue
			}
			for _, b := range mine {
				if b.ID != a.ID && e.board.CanMove(e.pawns, b, 7-s) {
					return true
				}
			}
		}
	}
	return false
}

// matchesLegal reports whether the action is among the currently legal ones.
func (e *Engine) matchesLegal(a Action) bool {
	for _, legal := range e.legalActionsLocked() {
		if legal == a {
			return true
		}
	}
	return false
}
