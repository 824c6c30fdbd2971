package bot

import (
	"errors"
	"fmt"
)

// ErrNoActions is returned when a brain is asked to choose from an empty
// legal set; the caller should skip the turn instead.
var ErrNoActions = errors.New("no legal actions to choose from")

// NewBrain creates a decision strategy for the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelGood:
		return &GoodBot{}, nil
	case BotLevelSmart:
		return &SmartBot{Tuning: DefaultTuning}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
