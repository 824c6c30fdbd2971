package engine

import "time"

// armLocked schedules a single recovery timer, superseding any previous
// one. The fired callback receives the generation it was armed with and
// must compare it against the current generation under the engine lock.
func (e *Engine) armLocked(d time.Duration, fired func(gen uint64)) {
	e.gen++
	gen := e.gen
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(d, func() { fired(gen) })
}

// disarmLocked invalidates any armed timer. Bumping the generation is what
// actually neutralizes it; Stop is best-effort.
func (e *Engine) disarmLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// watchdogFired is the move watchdog: no settle signal arrived in time, so
// the turn is force-recovered rather than left hanging.
func (e *Engine) watchdogFired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return
	}
	e.log.Warn().Int("seat", e.session.Seat).Msg("move watchdog fired")
	e.forceRecoverLocked()
}

// autoSkipFired returns a dead card after the grace delay and advances the
// turn: a drawn card with zero legal actions must never stall the game.
func (e *Engine) autoSkipFired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return
	}
	if e.session.Card == nil {
		return
	}
	seat := e.session.Seat
	e.log.Debug().Int("seat", seat).Str("card", e.session.Card.Label).Msg("no legal action, skipping turn")
	e.clearCardLocked(false)
	e.listener.TurnSkipped(seat)

	next := (seat + 1) % e.seats
	if e.session.PendingSwitch {
		next = e.session.PendingSeat
		e.session.PendingSwitch = false
		e.session.PendingSeat = -1
	}
	e.session.Seat = next
	e.listener.TurnChanged(next)
}
