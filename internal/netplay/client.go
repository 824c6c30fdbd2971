package netplay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slidepursuit/internal/config"
	"slidepursuit/internal/engine"
)

// Transport delivers outbound messages to the game server.
type Transport interface {
	Send(ctx context.Context, data []byte) error
}

// Reconciler replays authoritative server events onto the local engine. It
// owns the seat mapping, holds back updates that would collide with a local
// in-flight move, and watchdogs every outbound action.
type Reconciler struct {
	mu   sync.Mutex
	log  zerolog.Logger
	eng  *engine.Engine
	tr   Transport
	seat *SeatMap

	roomID    string
	watchdog  time.Duration
	held      map[int]PawnUpdate // engine pawn id -> latest deferred update
	remain    int                // split steps still owed over the network
	splitCard int                // card id the remainder belongs to

	pendingCard int
	gen         uint64
	timer       *time.Timer
}

// ReconcilerOption customizes a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithLogger(l zerolog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.log = l }
}

func WithNetworkWatchdog(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) { r.watchdog = d }
}

// NewReconciler binds an engine to a server identity and transport.
func NewReconciler(eng *engine.Engine, localUserID string, tr Transport, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		log:         zerolog.Nop(),
		eng:         eng,
		tr:          tr,
		seat:        NewSeatMap(localUserID),
		watchdog:    config.NetworkWatchdog(),
		held:        make(map[int]PawnUpdate),
		pendingCard: -1,
		splitCard:   -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeatMap exposes the identity mapping for outbound target resolution.
func (r *Reconciler) SeatMap() *SeatMap { return r.seat }

// HandleMessage routes one inbound transport frame.
func (r *Reconciler) HandleMessage(raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Warn().Err(err).Msg("dropping unparseable frame")
		return ErrMalformedUpdate
	}
	switch env.Op {
	case OpRoomState:
		return r.ApplySnapshot(env.Payload)
	case OpAck:
		var ack Ack
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			r.log.Warn().Err(err).Msg("dropping unparseable ack")
			return ErrMalformedUpdate
		}
		r.HandleAck(ack)
		return nil
	default:
		r.log.Debug().Str("op", env.Op).Msg("ignoring unknown op")
		return nil
	}
}

// ApplySnapshot validates and replays one authoritative room snapshot.
// Malformed snapshots are dropped whole and never partially applied.
func (r *Reconciler) ApplySnapshot(raw []byte) error {
	var snap RoomSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		r.log.Warn().Err(err).Msg("dropping unparseable room snapshot")
		return ErrMalformedUpdate
	}
	if err := snap.Validate(); err != nil {
		r.log.Warn().Err(err).Msg("dropping invalid room snapshot")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.roomID = snap.RoomID
	r.seat.Assign(snap.Players)

	// A room push also confirms any outstanding action.
	r.disarmLocked()

	for _, player := range snap.Players {
		seat, ok := r.seat.SeatFor(player.UserID)
		if !ok {
			continue
		}
		for _, u := range player.Pawns {
			r.applyPawnLocked(seat, u)
		}
	}

	if snap.TurnIndicator != "" {
		if seat, ok := r.seat.SeatFor(snap.TurnIndicator); ok {
			r.eng.SetTurn(seat - 1)
		} else {
			r.log.Warn().Str("user", snap.TurnIndicator).Msg("turn indicator names unknown user")
		}
	}
	return nil
}

// applyPawnLocked commits one pawn update, holding it back when the same
// pawn is mid-move locally.
func (r *Reconciler) applyPawnLocked(seat int, u PawnUpdate) {
	id := (seat-1)*engine.PawnsPerSeat + u.PawnID

	toBase := u.Status == StatusBase || u.Position < 0
	var err error
	switch {
	case toBase:
		err = r.eng.SnapPawn(id, -1, true)
	case u.IsMove:
		err = r.eng.RemoteMove(id, u.Position)
		if errors.Is(err, engine.ErrMoveInFlight) {
			// Another pawn's move owns the animation slot: commit silently
			// instead of animating.
			err = r.eng.SnapPawn(id, u.Position, false)
		}
	default:
		err = r.eng.SnapPawn(id, u.Position, false)
	}

	if errors.Is(err, engine.ErrMoveInFlight) {
		// Same pawn is settling locally; keep only the latest update.
		r.held[id] = u
		return
	}
	if err != nil {
		r.log.Warn().Err(err).Int("pawn", id).Msg("pawn update not applied")
	}
}

// MoveSettled is the presentation layer's settle signal in network mode: it
// commits the move and flushes any updates held back behind its lock.
func (r *Reconciler) MoveSettled(pawnID int) error {
	if err := r.eng.MoveFinished(pawnID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.held {
		delete(r.held, id)
		toBase := u.Status == StatusBase || u.Position < 0
		pos := u.Position
		if toBase {
			pos = -1
		}
		if err := r.eng.SnapPawn(id, pos, toBase); err != nil {
			r.log.Warn().Err(err).Int("pawn", id).Msg("held update still not applicable")
			r.held[id] = u
		}
	}
	return nil
}

// SendPlayCard transmits an action and arms the network watchdog: if neither
// an ack nor a room push arrives in time, the local turn is force-recovered.
func (r *Reconciler) SendPlayCard(ctx context.Context, req PlayCardRequest) error {
	r.mu.Lock()
	if req.RoomID == "" {
		req.RoomID = r.roomID
	}
	if req.ChosenMoveType == MoveSplit {
		// The remainder is cumulative across the card's parts: it starts at
		// the full 7 when a new split card goes out and each part burns its
		// own steps, exactly mirroring the local split mode.
		if req.CardID != r.splitCard {
			r.splitCard = req.CardID
			r.remain = 7
		}
		for _, part := range req.Splits {
			r.remain -= part.Steps
		}
		if r.remain < 0 {
			r.remain = 0
		}
	} else {
		r.splitCard = -1
		r.remain = 0
	}
	payload, err := json.Marshal(req)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	data, err := json.Marshal(Envelope{Op: OpPlayCard, Payload: payload})
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.pendingCard = req.CardID
	r.armLocked()
	r.mu.Unlock()

	if err := r.tr.Send(ctx, data); err != nil {
		r.mu.Lock()
		r.disarmLocked()
		r.mu.Unlock()
		return err
	}
	return nil
}

// RemainingSplitSteps reports the split steps still unconfirmed by the
// server; the pending card must not be finalized while this is positive.
func (r *Reconciler) RemainingSplitSteps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remain
}

// HandleAck confirms the pending action and disarms its watchdog.
func (r *Reconciler) HandleAck(ack Ack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingCard < 0 || ack.CardID != r.pendingCard {
		return
	}
	if r.remain > 0 {
		// A split part acknowledged with steps still owed: the card stays
		// live until the rest is sent, under a fresh watchdog window.
		r.armLocked()
		return
	}
	r.disarmLocked()
}

func (r *Reconciler) armLocked() {
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.watchdog, func() { r.watchdogFired(gen) })
}

func (r *Reconciler) disarmLocked() {
	r.gen++
	r.pendingCard = -1
	if r.remain == 0 {
		r.splitCard = -1
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Reconciler) watchdogFired(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	card := r.pendingCard
	r.pendingCard = -1
	r.remain = 0
	r.splitCard = -1
	r.mu.Unlock()

	r.log.Warn().Int("card", card).Msg("network watchdog fired, forcing recovery")
	r.eng.ForceRecover()
}
