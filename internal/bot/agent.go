package bot

import (
	"slidepursuit/internal/engine"
)

// Agent binds an identity and a brain to one seat of a running match.
type Agent struct {
	UserID      string
	DisplayName string
	Seat        int
	Strategy    Brain
}

// NewAgent builds an agent for a seat from an identity's difficulty.
func NewAgent(identity BotIdentity, seat int) (*Agent, error) {
	brain, err := NewBrain(ParseLevel(identity.Difficulty))
	if err != nil {
		return nil, err
	}
	return &Agent{
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		Seat:        seat,
		Strategy:    brain,
	}, nil
}

// Act plays the agent's pending card on the engine: it snapshots the
// position, asks the brain for an action and applies it. ErrNoActions means
// the card is dead and the engine will auto-skip on its own.
func (a *Agent) Act(e *engine.Engine) (engine.Action, error) {
	actions := e.LegalActions()
	if len(actions) == 0 {
		return engine.Action{}, ErrNoActions
	}
	card, _ := e.DrawnCard()
	pos := Position{
		Board: e.Board(),
		Pawns: e.Pawns(),
		Seat:  a.Seat,
		Card:  card,
	}
	chosen, err := a.Strategy.ChooseAction(pos, actions)
	if err != nil {
		return engine.Action{}, err
	}
	if err := e.Apply(chosen); err != nil {
		return engine.Action{}, err
	}
	return chosen, nil
}
