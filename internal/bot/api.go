package bot

import (
	"slidepursuit/internal/domain"
	"slidepursuit/internal/engine"
)

// BotLevel selects a decision strategy.
type BotLevel int

const (
	BotLevelGood BotLevel = iota
	BotLevelSmart
)

// ParseLevel maps an identity difficulty string to a level. Unknown values
// fall back to the weakest bot.
func ParseLevel(s string) BotLevel {
	switch s {
	case "smart", "hard":
		return BotLevelSmart
	default:
		return BotLevelGood
	}
}

// Position is the read-only game state a brain decides over.
type Position struct {
	Board *domain.Board
	Pawns []domain.Pawn
	Seat  int
	Card  domain.Card
}

// Brain picks one action from the legal set. It is a pure function of the
// position; implementations keep no per-match state.
type Brain interface {
	ChooseAction(pos Position, actions []engine.Action) (engine.Action, error)
}
