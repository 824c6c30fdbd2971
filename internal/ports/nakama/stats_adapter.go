package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"slidepursuit/internal/ports"
)

const (
	statsCollection = "player_stats"
	statsKey        = "match_tally"
)

// NakamaStatsAdapter implements ports.StatsPort on Nakama's storage engine.
type NakamaStatsAdapter struct {
	nk runtime.NakamaModule
}

func NewNakamaStatsAdapter(nk runtime.NakamaModule) *NakamaStatsAdapter {
	return &NakamaStatsAdapter{nk: nk}
}

// GetStats retrieves the stored tally, zero-valued when absent.
func (a *NakamaStatsAdapter) GetStats(ctx context.Context, userID string) (ports.PlayerStats, error) {
	var stats ports.PlayerStats
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: statsCollection,
		Key:        statsKey,
		UserID:     userID,
	}})
	if err != nil {
		return stats, fmt.Errorf("failed to read player stats: %w", err)
	}
	if len(objects) == 0 {
		return stats, nil
	}
	if err := json.Unmarshal([]byte(objects[0].Value), &stats); err != nil {
		return stats, fmt.Errorf("failed to unmarshal player stats: %w", err)
	}
	return stats, nil
}

// EnsureStats writes a zero-valued tally for users that have none yet.
func (a *NakamaStatsAdapter) EnsureStats(ctx context.Context, userID string) error {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: statsCollection,
		Key:        statsKey,
		UserID:     userID,
	}})
	if err != nil {
		return fmt.Errorf("failed to read player stats: %w", err)
	}
	if len(objects) > 0 {
		return nil
	}
	return a.writeStats(ctx, userID, ports.PlayerStats{})
}

// RecordResult folds a result into the stored tally.
func (a *NakamaStatsAdapter) RecordResult(ctx context.Context, result ports.MatchResult) error {
	stats, err := a.GetStats(ctx, result.UserID)
	if err != nil {
		return err
	}
	stats.MatchesPlayed++
	if result.Won {
		stats.MatchesWon++
	}
	return a.writeStats(ctx, result.UserID, stats)
}

func (a *NakamaStatsAdapter) writeStats(ctx context.Context, userID string, stats ports.PlayerStats) error {
	value, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal player stats: %w", err)
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      statsCollection,
		Key:             statsKey,
		UserID:          userID,
		Value:           string(value),
		PermissionRead:  1,
		PermissionWrite: 0,
	}})
	if err != nil {
		return fmt.Errorf("failed to write player stats: %w", err)
	}
	return nil
}
