package engine

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slidepursuit/internal/domain"
)

// PawnsPerSeat is the number of pawns each seat races around the track.
const PawnsPerSeat = 4

var (
	ErrDeckNotReady     = errors.New("deck not ready")
	ErrMatchOver        = errors.New("match already won")
	ErrNoCardDrawn      = errors.New("no card drawn")
	ErrCardAlreadyDrawn = errors.New("card already drawn this turn")
	ErrMoveInFlight     = errors.New("a move is already in flight")
	ErrNoMoveInFlight   = errors.New("no move in flight for that pawn")
	ErrUnknownPawn      = errors.New("unknown pawn id")
	ErrIllegalAction    = errors.New("action is not legal in the current mode")
)

// Timing configures the controller recovery timers.
type Timing struct {
	// MoveWatchdog bounds how long a dispatched move may stay unsettled
	// before the turn is force-recovered.
	MoveWatchdog time.Duration
	// AutoSkipGrace is the pause before a dead card is returned and the
	// turn passes on.
	AutoSkipGrace time.Duration
}

// DefaultTiming matches local play: a 10s move watchdog and a short skip grace.
func DefaultTiming() Timing {
	return Timing{MoveWatchdog: 10 * time.Second, AutoSkipGrace: 1200 * time.Millisecond}
}

// inFlight is the single move currently awaiting its settle signal.
type inFlight struct {
	pawnID   int
	steps    int
	dest     int
	swapWith int  // pawn exchanging positions with the mover, -1 none
	toBase   int  // pawn evicted on commit (capture/attack), -1 none
	remote   bool // server-driven move: commit only, no local resolution
}

// Engine owns the turn session and all pawn state for one match. Every
// external trigger (card click, destination click, settle signal, network
// event, timer expiry) is serialized through its lock; there is no other
// mutation path, which keeps local and remote-driven play consistent.
type Engine struct {
	mu       sync.Mutex
	log      zerolog.Logger
	listener Listener
	timing   Timing

	board *domain.Board
	pawns []*domain.Pawn
	deck  *domain.Deck

	seats     int
	session   Session
	flight    *inFlight
	deckReady bool
	winner    int

	// Watchdog generation token. Every legitimate transition bumps it so a
	// stale timer can detect it describes superseded state and no-op.
	gen   uint64
	timer *time.Timer
}

// Option customizes a new Engine.
type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }
func WithListener(l Listener) Option     { return func(e *Engine) { e.listener = l } }
func WithTiming(t Timing) Option         { return func(e *Engine) { e.timing = t } }

// New builds an engine for the given layout with all pawns at base and a
// freshly shuffled deck. Seat 0 opens once NotifyDeckReady is called.
func New(board *domain.Board, rng *rand.Rand, opts ...Option) *Engine {
	e := &Engine{
		log:      zerolog.Nop(),
		listener: NopListener{},
		timing:   DefaultTiming(),
		board:    board,
		pawns:    domain.NewPawnSet(board.Seats, PawnsPerSeat),
		deck:     domain.NewShuffledDeck(rng),
		seats:    board.Seats,
		winner:   -1,
	}
	e.session = Session{Seat: 0, PendingSeat: -1, Mode: Mode{FirstPawn: -1}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NotifyDeckReady signals the deck presentation finished building; turns
// may not start before this.
func (e *Engine) NotifyDeckReady() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deckReady = true
}

// CurrentSeat returns the seat whose turn it is.
func (e *Engine) CurrentSeat() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Seat
}

// ModeKind returns the active interaction mode.
func (e *Engine) ModeKind() ModeKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Mode.Kind
}

// CardPicked reports whether a card is pending resolution.
func (e *Engine) CardPicked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Card != nil
}

// DrawnCard returns the pending card, if any.
func (e *Engine) DrawnCard() (domain.Card, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Card == nil {
		return domain.Card{}, false
	}
	return *e.session.Card, true
}

// RemainingSplitSteps returns the split steps still owed, or 0.
func (e *Engine) RemainingSplitSteps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Mode.Kind != ModeSplit {
		return 0
	}
	return e.session.Mode.Remaining
}

// MoveLocked reports whether a pawn move is in flight.
func (e *Engine) MoveLocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.MoveLockHeld
}

// Winner returns the winning seat, or -1 while the match runs.
func (e *Engine) Winner() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner
}

// Board returns the immutable track layout.
func (e *Engine) Board() *domain.Board { return e.board }

// PawnView returns a copy of one pawn's state.
func (e *Engine) PawnView(pawnID int) (domain.Pawn, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := domain.PawnByID(e.pawns, pawnID)
	if p == nil {
		return domain.Pawn{}, false
	}
	return *p, true
}

// Pawns returns a snapshot copy of every pawn.
func (e *Engine) Pawns() []domain.Pawn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Pawn, len(e.pawns))
	for i, p := range e.pawns {
		out[i] = *p
	}
	return out
}

// LegalDestination answers a preview query for highlighting: the destination
// index a pawn would reach with the given steps, or the rejection reason.
func (e *Engine) LegalDestination(pawnID, steps int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := domain.PawnByID(e.pawns, pawnID)
	if p == nil {
		return 0, ErrUnknownPawn
	}
	return e.board.Resolve(e.pawns, p, steps)
}

// LegalActions enumerates every playable action for the pending card.
func (e *Engine) LegalActions() []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.legalActionsLocked()
}

// DrawCard draws the next card for the current seat, resolves its mode and
// reveals it. A mode with zero legal actions schedules an auto-skip after
// the grace delay; a dual-10 with exactly one legal action across both
// options executes it immediately without waiting for input.
func (e *Engine) DrawCard() (domain.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.winner >= 0 {
		return domain.Card{}, ErrMatchOver
	}
	if !e.deckReady {
		return domain.Card{}, ErrDeckNotReady
	}
	if e.session.Card != nil {
		return domain.Card{}, ErrCardAlreadyDrawn
	}
	if e.flight != nil {
		return domain.Card{}, ErrMoveInFlight
	}

	card := e.deck.Draw()
	e.session.Card = &card
	e.session.Mode = e.resolveMode(card)
	e.log.Debug().Int("seat", e.session.Seat).Str("card", card.Label).
		Stringer("mode", e.session.Mode.Kind).Msg("card drawn")
	e.listener.CardRevealed(e.session.Seat, card)

	acts := e.legalActionsLocked()
	if len(acts) == 0 {
		e.armLocked(e.timing.AutoSkipGrace, e.autoSkipFired)
		return card, nil
	}
	if e.session.Mode.Kind == ModeDual10 && len(acts) == 1 {
		// Do-or-die: the only legal action plays itself.
		e.applyLocked(acts[0])
	}
	return card, nil
}

// SelectDestination is the destination-click entry point: move a pawn by the
// given signed step count within the active mode.
func (e *Engine) SelectDestination(pawnID, steps int) error {
	kind := ActForward
	if steps < 0 {
		kind = ActBackward
	}
	return e.Apply(Action{Kind: kind, PawnID: pawnID, Steps: steps, Target: -1})
}

// Apply validates an action against the active mode and dispatches it. The
// resulting pawn move stays uncommitted until MoveFinished reports the
// settle signal.
func (e *Engine) Apply(a Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.winner >= 0 {
		return ErrMatchOver
	}
	if e.session.Card == nil {
		return ErrNoCardDrawn
	}
	if e.flight != nil {
		return ErrMoveInFlight
	}
	if !e.matchesLegal(a) {
		return ErrIllegalAction
	}
	e.applyLocked(a)
	return nil
}

// applyLocked dispatches a pre-validated action: takes the move lock, emits
// the move command and arms the watchdog.
func (e *Engine) applyLocked(a Action) {
	p := domain.PawnByID(e.pawns, a.PawnID)
	f := &inFlight{pawnID: a.PawnID, steps: a.Steps, swapWith: -1, toBase: -1}

	switch a.Kind {
	case ActForward, ActBackward:
		dest, err := e.board.Resolve(e.pawns, p, a.Steps)
		if err != nil {
			// Validated actions cannot fail here; guard anyway.
			e.log.Error().Err(err).Int("pawn", a.PawnID).Msg("dispatch of validated action failed")
			return
		}
		f.dest = dest
	case ActSwap:
		opp := domain.PawnByID(e.pawns, a.Target)
		f.dest = e.board.LocalIndex(p.Owner, opp.NormalizedSlot(e.board))
		f.swapWith = a.Target
	case ActCapture, ActAttack:
		opp := domain.PawnByID(e.pawns, a.Target)
		f.dest = e.board.LocalIndex(p.Owner, opp.NormalizedSlot(e.board))
		f.toBase = a.Target
	}

	e.flight = f
	e.session.MoveLockHeld = true
	from := p.Index
	if p.AtBase() {
		from = -1
	}
	e.armLocked(e.timing.MoveWatchdog, e.watchdogFired)
	e.log.Debug().Int("pawn", a.PawnID).Int("from", from).Int("to", f.dest).
		Stringer("action", a.Kind).Msg("move dispatched")
	e.listener.MoveRequested(a.PawnID, from, f.dest, a.Steps)
}

// MoveFinished is the settle signal from the presentation layer: the
// commanded move's animation completed. It commits the destination, runs
// slide and bump resolution, advances the card mode and, when the mode is
// fully resolved, the turn.
func (e *Engine) MoveFinished(pawnID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flight == nil || e.flight.pawnID != pawnID {
		return ErrNoMoveInFlight
	}
	f := e.flight
	e.flight = nil
	e.session.MoveLockHeld = false
	e.disarmLocked()

	p := domain.PawnByID(e.pawns, pawnID)

	if f.remote {
		// Authoritative position: commit verbatim, the server already
		// resolved bumps and slides and will snapshot the victims.
		p.PlaceAt(e.board, f.dest)
		e.applyDeferredSwitchLocked()
		return nil
	}

	if f.swapWith >= 0 {
		opp := domain.PawnByID(e.pawns, f.swapWith)
		oppDest := e.board.LocalIndex(opp.Owner, p.NormalizedSlot(e.board))
		p.PlaceAt(e.board, f.dest)
		opp.PlaceAt(e.board, oppDest)
		e.listener.PawnSnapped(opp.ID, oppDest)
	} else {
		if f.toBase >= 0 {
			victim := domain.PawnByID(e.pawns, f.toBase)
			victim.SendToBase()
			e.listener.PawnBumped(victim.ID)
		}
		p.PlaceAt(e.board, f.dest)
	}

	e.resolveLandingLocked(p)

	if p.Finished() {
		e.session.ExtraTurn = true
	}
	if domain.SeatFinished(e.pawns, p.Owner) {
		e.winner = p.Owner
		e.log.Info().Int("seat", p.Owner).Msg("match won")
		e.clearCardLocked(true)
		e.listener.MatchWon(p.Owner)
		return nil
	}

	e.advanceModeLocked(f, p)
	return nil
}

// resolveLandingLocked evicts opposing pawns on the landing slot, then
// applies any slide chain, evicting along the crossed squares.
func (e *Engine) resolveLandingLocked(p *domain.Pawn) {
	if !p.OnOuter(e.board) {
		return
	}
	for _, v := range domain.AfterMove(e.board, e.pawns, p, p.Index) {
		e.listener.PawnBumped(v.ID)
	}
	from := p.Index
	final, evicted := domain.AfterSlide(e.board, e.pawns, p, p.Index)
	if final != from {
		p.PlaceAt(e.board, final)
		e.listener.PawnSlid(p.ID, from, final)
		for _, v := range evicted {
			e.listener.PawnBumped(v.ID)
		}
	}
}

// advanceModeLocked moves the card-effect state machine forward after a
// committed sub-move.
func (e *Engine) advanceModeLocked(f *inFlight, p *domain.Pawn) {
	if e.session.Mode.Kind == ModeSplit && e.session.Mode.FirstPawn < 0 {
		e.session.Mode.FirstPawn = p.ID
		e.session.Mode.Remaining -= f.steps
		if e.session.Mode.Remaining > 0 {
			rem := e.session.Mode.Remaining
			if len(e.legalActionsLocked()) > 0 {
				// Wait for the second sub-move from a different pawn.
				return
			}
			// Nobody else can use the remainder: auto-resolve with the
			// first pawn itself, equivalent to a direct 7.
			if e.board.CanMove(e.pawns, p, rem) {
				e.session.Mode.Remaining = 0
				e.applyLocked(Action{Kind: ActForward, PawnID: p.ID, Steps: rem, Target: -1})
				return
			}
		}
		e.session.Mode.Remaining = 0
	}
	e.finishTurnLocked()
}

// finishTurnLocked discards the resolved card and re-enters Idle: with the
// same seat when an extra turn is pending, with a deferred remote seat when
// one was buffered, and with the next seat otherwise.
func (e *Engine) finishTurnLocked() {
	e.disarmLocked()
	e.clearCardLocked(true)

	extra := e.session.ExtraTurn
	e.session.ExtraTurn = false

	next := (e.session.Seat + 1) % e.seats
	switch {
	case e.session.PendingSwitch:
		next = e.session.PendingSeat
		e.session.PendingSwitch = false
		e.session.PendingSeat = -1
	case extra:
		next = e.session.Seat
		e.listener.ExtraTurnGranted(next)
	}
	e.session.Seat = next
	e.listener.TurnChanged(next)
}

// clearCardLocked drops the pending card, discarding it when resolved or
// returning it to the front of the pile otherwise.
func (e *Engine) clearCardLocked(resolved bool) {
	if e.session.Card != nil {
		if resolved {
			e.deck.Discard(*e.session.Card)
		} else {
			e.deck.ReturnToFront(*e.session.Card)
			e.listener.CardReturned(*e.session.Card)
		}
	}
	e.session.Card = nil
	e.session.Mode = Mode{Kind: ModeNone, FirstPawn: -1}
}

// ForceRecover is the watchdog path: unconditionally aborts the current
// mode, returns the pending card, clears every lock and advances the turn.
// It is the only cancellation mechanism and is always reachable.
func (e *Engine) ForceRecover() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forceRecoverLocked()
}

func (e *Engine) forceRecoverLocked() {
	e.log.Warn().Int("seat", e.session.Seat).Msg("forced recovery: resetting turn state")
	e.disarmLocked()
	e.flight = nil
	e.session.MoveLockHeld = false
	e.session.ExtraTurn = false
	e.clearCardLocked(false)

	next := (e.session.Seat + 1) % e.seats
	if e.session.PendingSwitch {
		next = e.session.PendingSeat
		e.session.PendingSwitch = false
		e.session.PendingSeat = -1
	}
	e.session.Seat = next
	e.listener.TurnChanged(next)
}

// SetTurn applies an authoritative turn change. While a local move lock is
// held the change is buffered and executes once the lock clears; only the
// latest pending switch is kept.
func (e *Engine) SetTurn(seat int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.MoveLockHeld || e.flight != nil {
		e.session.PendingSwitch = true
		e.session.PendingSeat = seat
		e.log.Debug().Int("seat", seat).Msg("turn change deferred behind move lock")
		return
	}
	if seat == e.session.Seat {
		return
	}
	e.clearCardLocked(false)
	e.session.ExtraTurn = false
	e.session.Seat = seat
	e.listener.TurnChanged(seat)
}

// applyDeferredSwitchLocked executes a buffered turn change after a remote
// move settles.
func (e *Engine) applyDeferredSwitchLocked() {
	if !e.session.PendingSwitch {
		return
	}
	seat := e.session.PendingSeat
	e.session.PendingSwitch = false
	e.session.PendingSeat = -1
	e.clearCardLocked(false)
	e.session.Seat = seat
	e.listener.TurnChanged(seat)
}

// SnapPawn silently commits an authoritative pawn position. Updates for a
// pawn that is mid-move locally are rejected so a settling move is never
// double-applied; callers hold the update until the lock clears.
func (e *Engine) SnapPawn(pawnID, index int, toBase bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flight != nil && e.flight.pawnID == pawnID {
		return ErrMoveInFlight
	}
	p := domain.PawnByID(e.pawns, pawnID)
	if p == nil {
		return ErrUnknownPawn
	}
	if toBase {
		p.SendToBase()
		e.listener.PawnSnapped(pawnID, -1)
		return nil
	}
	p.PlaceAt(e.board, index)
	e.listener.PawnSnapped(pawnID, index)
	return nil
}

// RemoteMove dispatches an authoritative animated transition for a pawn.
// The presentation layer settles it through MoveFinished like any local
// move, but no local rule resolution runs on commit.
func (e *Engine) RemoteMove(pawnID, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flight != nil {
		return ErrMoveInFlight
	}
	p := domain.PawnByID(e.pawns, pawnID)
	if p == nil {
		return ErrUnknownPawn
	}
	e.flight = &inFlight{pawnID: pawnID, dest: index, swapWith: -1, toBase: -1, remote: true}
	e.session.MoveLockHeld = true
	from := p.Index
	if p.AtBase() {
		from = -1
	}
	e.armLocked(e.timing.MoveWatchdog, e.watchdogFired)
	e.listener.MoveRequested(pawnID, from, index, 0)
	return nil
}
