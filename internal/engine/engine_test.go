package engine

import (
	"math/rand"
	"testing"
	"time"

	"slidepursuit/internal/domain"
)

// recordListener captures engine outputs so tests can settle moves after
// the triggering call returns.
type recordListener struct {
	NopListener
	moves    []moveReq
	bumped   []int
	turns    []int
	skipped  []int
	extra    []int
	returned []domain.Card
	won      int
}

type moveReq struct{ pawnID, from, to, steps int }

func (r *recordListener) MoveRequested(pawnID, from, to, steps int) {
	r.moves = append(r.moves, moveReq{pawnID, from, to, steps})
}
func (r *recordListener) PawnBumped(id int)          { r.bumped = append(r.bumped, id) }
func (r *recordListener) TurnChanged(seat int)       { r.turns = append(r.turns, seat) }
func (r *recordListener) TurnSkipped(seat int)       { r.skipped = append(r.skipped, seat) }
func (r *recordListener) ExtraTurnGranted(seat int)  { r.extra = append(r.extra, seat) }
func (r *recordListener) CardReturned(c domain.Card) { r.returned = append(r.returned, c) }
func (r *recordListener) MatchWon(seat int)          { r.won = seat }

func newTestEngine(t *testing.T) (*Engine, *recordListener) {
	t.Helper()
	rec := &recordListener{won: -1}
	e := New(domain.FourPlayerBoard(), rand.New(rand.NewSource(42)),
		WithListener(rec),
		WithTiming(Timing{MoveWatchdog: 40 * time.Millisecond, AutoSkipGrace: 10 * time.Millisecond}),
	)
	e.NotifyDeckReady()
	return e, rec
}

// forceCard makes the next draw deterministic.
func forceCard(e *Engine, c domain.Card) {
	e.deck.ReturnToFront(c)
}

// settle drains pending move requests, answering each with its settle
// signal, including chained auto-moves.
func settle(t *testing.T, e *Engine, rec *recordListener) {
	t.Helper()
	for i := 0; i < len(rec.moves); i++ {
		m := rec.moves[i]
		if err := e.MoveFinished(m.pawnID); err != nil && err != ErrNoMoveInFlight {
			t.Fatalf("MoveFinished(%d) error = %v", m.pawnID, err)
		}
	}
}

func plainCard(v int) domain.Card {
	return domain.Card{ID: 900, Primary: v, Label: "test"}
}

func TestPlainCardMovesAndEndsTurn(t *testing.T) {
	e, rec := newTestEngine(t)
	forceCard(e, plainCard(5))

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if got := e.ModeKind(); got != ModePlain {
		t.Fatalf("mode = %v, want plain", got)
	}

	// Pawn 0 starts at base: +5 lands on index 4.
	dest, err := e.LegalDestination(0, 5)
	if err != nil {
		t.Fatalf("LegalDestination() error = %v", err)
	}
	if dest != 4 {
		t.Fatalf("destination = %d, want 4", dest)
	}

	if err := e.SelectDestination(0, 5); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}
	if !e.MoveLocked() {
		t.Fatalf("move lock not held after dispatch")
	}
	settle(t, e, rec)

	p, _ := e.PawnView(0)
	if p.Index != 4 || p.State != domain.PawnOnTrack {
		t.Fatalf("pawn = %v, want on track at 4", p)
	}
	if e.MoveLocked() {
		t.Fatalf("move lock still held after settle")
	}
	if len(rec.turns) != 1 || rec.turns[0] != 1 {
		t.Fatalf("turns = %v, want [1]", rec.turns)
	}
}

func TestDrawWhileMoveInFlightRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	forceCard(e, plainCard(5))
	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if err := e.SelectDestination(0, 5); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}
	if _, err := e.DrawCard(); err != ErrCardAlreadyDrawn {
		t.Fatalf("DrawCard() error = %v, want ErrCardAlreadyDrawn", err)
	}
	if err := e.SelectDestination(1, 5); err != ErrMoveInFlight {
		t.Fatalf("second dispatch error = %v, want ErrMoveInFlight", err)
	}
}

func TestSplitConservation(t *testing.T) {
	e, rec := newTestEngine(t)
	// Two pawns on track so a 3/4 partition exists; landings avoid slides.
	e.pawns[0].PlaceAt(e.board, 10)
	e.pawns[1].PlaceAt(e.board, 21)
	forceCard(e, domain.Card{ID: 901, Primary: 7, Label: "7"})

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if got := e.ModeKind(); got != ModeSplit {
		t.Fatalf("mode = %v, want split", got)
	}

	if err := e.SelectDestination(0, 3); err != nil {
		t.Fatalf("first sub-move error = %v", err)
	}
	settle(t, e, rec)

	if got := e.RemainingSplitSteps(); got != 4 {
		t.Fatalf("remaining = %d, want 4", got)
	}
	// The second half is only offered to a different pawn.
	for _, a := range e.LegalActions() {
		if a.PawnID == 0 {
			t.Fatalf("first pawn offered the second half: %+v", a)
		}
		if a.Steps != 4 {
			t.Fatalf("second half steps = %d, want 4", a.Steps)
		}
	}

	if err := e.SelectDestination(1, 4); err != nil {
		t.Fatalf("second sub-move error = %v", err)
	}
	settle(t, e, rec)

	p0, _ := e.PawnView(0)
	p1, _ := e.PawnView(1)
	if (p0.Index-10)+(p1.Index-21) != 7 {
		t.Fatalf("split moved %d+%d steps, want 7", p0.Index-10, p1.Index-21)
	}
	if e.CardPicked() {
		t.Fatalf("card still pending after full split")
	}
}

func TestSplitAutoFinishesWithFirstPawn(t *testing.T) {
	e, rec := newTestEngine(t)
	b := e.board
	// Pawn 1 sits three short of home so it can take at most 3 of the 7;
	// pawns 2 and 3 are already finished. A 3/4 partition exists at draw
	// time, but once pawn 0 takes 3 nobody else can use the remaining 4.
	e.pawns[0].PlaceAt(b, 10)
	e.pawns[1].PlaceAt(b, b.FinalIndex()-3)
	e.pawns[2].PlaceAt(b, b.FinalIndex())
	e.pawns[3].PlaceAt(b, b.FinalIndex())
	forceCard(e, domain.Card{ID: 901, Primary: 7, Label: "7"})

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if got := e.ModeKind(); got != ModeSplit {
		t.Fatalf("mode = %v, want split", got)
	}

	if err := e.SelectDestination(0, 3); err != nil {
		t.Fatalf("first sub-move error = %v", err)
	}
	settle(t, e, rec)

	// No other pawn could use the remaining 4, so pawn 0 finished the card
	// itself: 10 +3 +4 = 17.
	p0, _ := e.PawnView(0)
	if p0.Index != 17 {
		t.Fatalf("pawn 0 at %d, want 17 after auto-finish", p0.Index)
	}
	if e.CardPicked() {
		t.Fatalf("card still pending after auto-finish")
	}
}

func TestDualTenDoOrDie(t *testing.T) {
	e, rec := newTestEngine(t)
	b := e.board
	// Pawn 0 one short of home and every teammate finished: +10 overshoots,
	// so the single legal action across both options is pawn 0 moving -1.
	e.pawns[0].PlaceAt(b, b.RouteLen+4)
	e.pawns[1].PlaceAt(b, b.FinalIndex())
	e.pawns[2].PlaceAt(b, b.FinalIndex())
	e.pawns[3].PlaceAt(b, b.FinalIndex())
	forceCard(e, domain.Card{ID: 902, Primary: 10, Secondary: -1, Dual: true, Label: "10"})

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if len(rec.moves) != 1 {
		t.Fatalf("expected auto-executed move, got %v", rec.moves)
	}
	if rec.moves[0].steps != -1 {
		t.Fatalf("auto move steps = %d, want -1", rec.moves[0].steps)
	}
	settle(t, e, rec)

	p0, _ := e.PawnView(0)
	if p0.Index != b.RouteLen+3 {
		t.Fatalf("pawn 0 at %d, want %d", p0.Index, b.RouteLen+3)
	}
}

func TestDeadCardAutoSkips(t *testing.T) {
	e, rec := newTestEngine(t)
	// Backward-only card with every pawn at base: zero legal actions.
	forceCard(e, domain.Card{ID: 903, Primary: -4, Label: "4"})

	card, err := e.DrawCard()
	if err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}

	deadline := time.After(time.Second)
	for e.CurrentSeat() == 0 {
		select {
		case <-deadline:
			t.Fatalf("turn never advanced after dead card")
		case <-time.After(2 * time.Millisecond):
		}
	}
	if len(rec.skipped) != 1 || rec.skipped[0] != 0 {
		t.Fatalf("skipped = %v, want [0]", rec.skipped)
	}
	if len(rec.returned) != 1 || rec.returned[0].ID != card.ID {
		t.Fatalf("card not returned: %v", rec.returned)
	}
	// The returned card sits on top of the pile again.
	forcedNext := e.deck.Draw()
	if forcedNext.ID != card.ID {
		t.Fatalf("returned card not on top: got %d, want %d", forcedNext.ID, card.ID)
	}
}

func TestWatchdogRecoversUnsettledMove(t *testing.T) {
	e, rec := newTestEngine(t)
	forceCard(e, plainCard(5))
	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if err := e.SelectDestination(0, 5); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}

	// Never send the settle signal; the watchdog must reach the next seat.
	deadline := time.After(time.Second)
	for e.CurrentSeat() == 0 {
		select {
		case <-deadline:
			t.Fatalf("watchdog never recovered the stuck move")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if e.MoveLocked() {
		t.Fatalf("move lock survived forced recovery")
	}
	if e.CardPicked() {
		t.Fatalf("card survived forced recovery")
	}
	if len(rec.returned) != 1 {
		t.Fatalf("pending card not returned on recovery: %v", rec.returned)
	}
	// The pawn was never committed.
	p0, _ := e.PawnView(0)
	if !p0.AtBase() {
		t.Fatalf("uncommitted move leaked into pawn state: %v", p0)
	}
}

func TestStaleWatchdogIsIgnored(t *testing.T) {
	e, rec := newTestEngine(t)
	forceCard(e, plainCard(5))
	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if err := e.SelectDestination(0, 5); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}
	settle(t, e, rec)

	seat := e.CurrentSeat()
	// Wait past the original watchdog window; the settled move's timer must
	// have been superseded and fire as a no-op.
	time.Sleep(80 * time.Millisecond)
	if got := e.CurrentSeat(); got != seat {
		t.Fatalf("stale watchdog advanced the turn: %d -> %d", seat, got)
	}
}

func TestExtraTurnOnExactFinish(t *testing.T) {
	e, rec := newTestEngine(t)
	b := e.board
	e.pawns[0].PlaceAt(b, b.FinalIndex()-2)
	forceCard(e, plainCard(2))

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if err := e.SelectDestination(0, 2); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}
	settle(t, e, rec)

	p0, _ := e.PawnView(0)
	if !p0.Finished() {
		t.Fatalf("pawn not finished: %v", p0)
	}
	if e.CurrentSeat() != 0 {
		t.Fatalf("finishing pawn did not grant an extra turn")
	}
	if len(rec.extra) != 1 {
		t.Fatalf("extra turns = %v, want one", rec.extra)
	}

	// The finished pawn never moves again.
	forceCard(e, plainCard(1))
	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if _, err := e.LegalDestination(0, 1); err != domain.ErrAlreadyFinished {
		t.Fatalf("finished pawn offered a move: %v", err)
	}
}

func TestDeferredTurnSwitchWaitsForLock(t *testing.T) {
	e, rec := newTestEngine(t)
	forceCard(e, plainCard(5))
	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if err := e.SelectDestination(0, 5); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}

	// Authoritative switch while the lock is held: buffered, not applied.
	e.SetTurn(3)
	if got := e.CurrentSeat(); got != 0 {
		t.Fatalf("turn flipped mid-move to %d", got)
	}

	settle(t, e, rec)
	if got := e.CurrentSeat(); got != 3 {
		t.Fatalf("deferred switch not applied: seat = %d, want 3", got)
	}
}

func TestAttackFallsBackToPlainFour(t *testing.T) {
	e, _ := newTestEngine(t)
	// No opposing pawn on the outer track: SORRY degrades to a plain +4.
	forceCard(e, domain.Card{ID: 904, Primary: 0, Secondary: 4, Label: domain.LabelSorry})

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if got := e.ModeKind(); got != ModePlain {
		t.Fatalf("mode = %v, want plain fallback", got)
	}
	acts := e.LegalActions()
	if len(acts) == 0 {
		t.Fatalf("no fallback actions offered")
	}
	for _, a := range acts {
		if a.Steps != 4 {
			t.Fatalf("fallback steps = %d, want 4", a.Steps)
		}
	}
}

func TestAttackEvictsVictim(t *testing.T) {
	e, rec := newTestEngine(t)
	b := e.board
	victim := e.pawns[4] // seat 1
	victim.PlaceAt(b, b.LocalIndex(1, 25))
	forceCard(e, domain.Card{ID: 905, Primary: 0, Secondary: 4, Label: domain.LabelSorry})

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if got := e.ModeKind(); got != ModeAttack {
		t.Fatalf("mode = %v, want attack", got)
	}

	if err := e.Apply(Action{Kind: ActAttack, PawnID: 0, Steps: 0, Target: victim.ID}); err != nil {
		t.Fatalf("Apply(attack) error = %v", err)
	}
	settle(t, e, rec)

	if !victim.AtBase() {
		t.Fatalf("victim survived the attack: %v", victim)
	}
	p0, _ := e.PawnView(0)
	if p0.NormalizedSlot(b) != 25 {
		t.Fatalf("attacker at slot %d, want 25", p0.NormalizedSlot(b))
	}
}

func TestSwapExchangesPositions(t *testing.T) {
	e, rec := newTestEngine(t)
	b := e.board
	mine := e.pawns[0]
	mine.PlaceAt(b, 5)
	opp := e.pawns[4]
	opp.PlaceAt(b, b.LocalIndex(1, 40))
	forceCard(e, domain.Card{ID: 906, Primary: 11, Dual: true, Label: "11"})

	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if got := e.ModeKind(); got != ModeDual11 {
		t.Fatalf("mode = %v, want dual11", got)
	}

	if err := e.Apply(Action{Kind: ActSwap, PawnID: 0, Steps: 0, Target: opp.ID}); err != nil {
		t.Fatalf("Apply(swap) error = %v", err)
	}
	settle(t, e, rec)

	if got := mine.NormalizedSlot(b); got != 40 {
		t.Fatalf("mover slot = %d, want 40", got)
	}
	if got := opp.NormalizedSlot(b); got != 5 {
		t.Fatalf("opponent slot = %d, want 5", got)
	}
}

func TestSnapPawnRejectedWhileSamePawnInFlight(t *testing.T) {
	e, rec := newTestEngine(t)
	forceCard(e, plainCard(5))
	if _, err := e.DrawCard(); err != nil {
		t.Fatalf("DrawCard() error = %v", err)
	}
	if err := e.SelectDestination(0, 5); err != nil {
		t.Fatalf("SelectDestination() error = %v", err)
	}

	if err := e.SnapPawn(0, 9, false); err != ErrMoveInFlight {
		t.Fatalf("same-pawn snap error = %v, want ErrMoveInFlight", err)
	}
	// A different pawn's snapshot applies immediately.
	if err := e.SnapPawn(5, 3, false); err != nil {
		t.Fatalf("unrelated snap error = %v", err)
	}
	settle(t, e, rec)
}
