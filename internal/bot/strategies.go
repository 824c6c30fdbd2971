package bot

import (
	"slidepursuit/internal/domain"
	"slidepursuit/internal/engine"
)

// outcome is the simulated effect of one action, the raw material every
// strategy scores from.
type outcome struct {
	dest     int  // mover's destination index, -1 when unchanged
	progress int  // path indices gained by the mover
	setback  int  // path indices lost by opposing pawns
	entered  bool // mover left its base
	finished bool // mover reached the final home slot
	homeLane bool // mover ends inside its home lane
	danger   int  // opposing outer pawns within striking distance of the landing slot
}

// dangerReach is how far behind a landing slot an opposing pawn still
// threatens it. Twelve is the largest forward card value.
const dangerReach = 12

// evaluate simulates an action against a copy of the position. It mirrors
// the resolver's landing rules, including slides, without mutating anything.
func evaluate(pos Position, a engine.Action) outcome {
	pawns := make([]*domain.Pawn, len(pos.Pawns))
	for i := range pos.Pawns {
		p := pos.Pawns[i]
		pawns[i] = &p
	}
	b := pos.Board
	mover := domain.PawnByID(pawns, a.PawnID)
	if mover == nil {
		return outcome{dest: -1}
	}
	cur := mover.Index
	if mover.AtBase() {
		cur = -1
	}

	var o outcome
	switch a.Kind {
	case engine.ActForward, engine.ActBackward:
		dest, err := b.Resolve(pawns, mover, a.Steps)
		if err != nil {
			return outcome{dest: -1}
		}
		o.dest = dest
	case engine.ActSwap:
		opp := domain.PawnByID(pawns, a.Target)
		o.dest = b.LocalIndex(mover.Owner, opp.NormalizedSlot(b))
		theirs := b.LocalIndex(opp.Owner, b.AbsSlot(mover.Owner, cur))
		o.setback = opp.Index - theirs
	case engine.ActCapture, engine.ActAttack:
		opp := domain.PawnByID(pawns, a.Target)
		o.dest = b.LocalIndex(mover.Owner, opp.NormalizedSlot(b))
		o.setback = opp.Index + 1 // back to base
		opp.SendToBase()
	}

	// Eviction resets a victim's index, so setbacks are read from the
	// pre-move snapshot.
	indexBefore := make(map[int]int, len(pos.Pawns))
	for i := range pos.Pawns {
		indexBefore[pos.Pawns[i].ID] = pos.Pawns[i].Index
	}

	o.entered = mover.AtBase()
	mover.PlaceAt(b, o.dest)

	if mover.OnOuter(b) {
		for _, v := range domain.AfterMove(b, pawns, mover, mover.Index) {
			o.setback += indexBefore[v.ID] + 1
		}
		final, evicted := domain.AfterSlide(b, pawns, mover, mover.Index)
		if final != mover.Index {
			mover.PlaceAt(b, final)
			o.dest = final
			for _, v := range evicted {
				o.setback += indexBefore[v.ID] + 1
			}
		}
	}

	o.progress = o.dest - cur
	o.finished = mover.Finished()
	o.homeLane = mover.InHomeLane(b)
	if mover.OnOuter(b) {
		o.danger = dangerAt(b, pawns, mover)
	}
	return o
}

// dangerAt counts opposing outer-track pawns that sit within card reach
// behind the mover's slot.
func dangerAt(b *domain.Board, pawns []*domain.Pawn, mover *domain.Pawn) int {
	slot := mover.NormalizedSlot(b)
	n := 0
	for _, p := range pawns {
		if p.Owner == mover.Owner || !p.OnOuter(b) {
			continue
		}
		gap := ((slot-p.NormalizedSlot(b))%b.RouteLen + b.RouteLen) % b.RouteLen
		if gap > 0 && gap <= dangerReach {
			n++
		}
	}
	return n
}

// GoodBot plays greedily: finish when possible, otherwise knock opponents
// back, otherwise make the biggest forward progress. It ignores danger.
type GoodBot struct{}

func (b *GoodBot) ChooseAction(pos Position, actions []engine.Action) (engine.Action, error) {
	if len(actions) == 0 {
		return engine.Action{}, ErrNoActions
	}
	best := actions[0]
	bestScore := -1e9
	for _, a := range actions {
		o := evaluate(pos, a)
		if o.dest < 0 {
			continue
		}
		score := float64(o.progress) + 2*float64(o.setback)
		if o.finished {
			score += 100
		}
		if o.entered {
			score += 5
		}
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return best, nil
}

// SmartBot weighs progress against exposure using phase-aware tuning: it
// values safety early and raw speed once its pawns are closing in.
type SmartBot struct {
	Tuning Tuning
}

func (b *SmartBot) ChooseAction(pos Position, actions []engine.Action) (engine.Action, error) {
	if len(actions) == 0 {
		return engine.Action{}, ErrNoActions
	}
	w := b.Tuning.Early
	if finishedCount(pos) >= b.Tuning.LateThreshold {
		w = b.Tuning.Late
	}

	best := actions[0]
	bestScore := -1e9
	for _, a := range actions {
		o := evaluate(pos, a)
		if o.dest < 0 {
			continue
		}
		score := w.Progress*float64(o.progress) + w.Setback*float64(o.setback)
		if o.finished {
			score += w.FinishBonus
		}
		if o.entered {
			score += w.EnterBonus
		}
		if o.homeLane {
			score += w.HomeLaneBonus
		}
		score -= w.DangerPenalty * float64(o.danger)
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return best, nil
}

func finishedCount(pos Position) int {
	n := 0
	for i := range pos.Pawns {
		if pos.Pawns[i].Owner == pos.Seat && pos.Pawns[i].State == domain.PawnFinished {
			n++
		}
	}
	return n
}
