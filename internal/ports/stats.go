package ports

import "context"

// MatchResult is one finished match from a single player's perspective.
type MatchResult struct {
	UserID  string
	MatchID string
	Won     bool
	Seats   int
}

// PlayerStats is the running tally kept per player.
type PlayerStats struct {
	MatchesPlayed int `json:"matches_played"`
	MatchesWon    int `json:"matches_won"`
}

// StatsPort records match outcomes and serves player tallies.
type StatsPort interface {
	// RecordResult folds one match result into the player's tally.
	RecordResult(ctx context.Context, result MatchResult) error

	// GetStats retrieves the current tally for a user, zero-valued when the
	// user has no recorded matches yet.
	GetStats(ctx context.Context, userID string) (PlayerStats, error)
}
