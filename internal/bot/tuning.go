package bot

const finishBonus = 1000.0

// Weights scores one simulated action outcome.
type Weights struct {
	Progress      float64
	Setback       float64
	EnterBonus    float64
	HomeLaneBonus float64
	DangerPenalty float64
	FinishBonus   float64
}

// Tuning holds the phase-dependent weights: Early applies while fewer than
// LateThreshold of the bot's pawns are home, Late afterwards.
type Tuning struct {
	Early         Weights
	Late          Weights
	LateThreshold int
}

// DefaultTuning balances board position against raw speed. The late phase
// stops caring about exposure and races the remaining pawns home.
var DefaultTuning = Tuning{
	Early: Weights{
		Progress:      1.0,
		Setback:       1.8,
		EnterBonus:    6.0,
		HomeLaneBonus: 10.0,
		DangerPenalty: 2.5,
		FinishBonus:   finishBonus,
	},
	Late: Weights{
		Progress:      1.4,
		Setback:       1.0,
		EnterBonus:    4.0,
		HomeLaneBonus: 14.0,
		DangerPenalty: 0.8,
		FinishBonus:   finishBonus,
	},
	LateThreshold: 2,
}
