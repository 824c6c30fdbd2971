package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// GameConfig is the match setup configuration loaded once at module init.
type GameConfig struct {
	// Players is the default seat count for quickmatch rooms (2 or 4).
	Players int `json:"players"`
	// BoardLayout selects the track layout ("standard4" or "standard2").
	BoardLayout         string `json:"board_layout"`
	TurnDurationSeconds int    `json:"turn_duration_seconds"`
	// MoveWatchdogMillis bounds an unsettled pawn move before forced recovery.
	MoveWatchdogMillis int `json:"move_watchdog_millis"`
	// NetworkWatchdogMillis bounds an unacked outbound action.
	NetworkWatchdogMillis int `json:"network_watchdog_millis"`
	// AutoSkipGraceMillis is the pause before a dead card skips the turn.
	AutoSkipGraceMillis int `json:"auto_skip_grace_millis"`
	// BotAutoFillDelaySeconds is how long a solo human lobby waits before
	// bots fill the remaining seats.
	BotAutoFillDelaySeconds int    `json:"bot_auto_fill_delay_seconds"`
	BotIdentitiesPath       string `json:"bot_identities_path"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// Players returns the configured seat count, defaulting to a full table.
// When the seat count is unset, the board layout decides.
func Players() int {
	if cfg == nil {
		return 4
	}
	if cfg.Players == 2 || cfg.Players == 4 {
		return cfg.Players
	}
	if cfg.BoardLayout == "standard2" {
		return 2
	}
	return 4
}

// BoardLayout names the track layout, kept consistent with Players().
func BoardLayout() string {
	if Players() == 2 {
		return "standard2"
	}
	return "standard4"
}

// TurnDuration is the per-turn countdown shown to players.
func TurnDuration() time.Duration {
	if cfg == nil || cfg.TurnDurationSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.TurnDurationSeconds) * time.Second
}

// MoveWatchdog bounds how long a dispatched move may stay unsettled.
func MoveWatchdog() time.Duration {
	if cfg == nil || cfg.MoveWatchdogMillis <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.MoveWatchdogMillis) * time.Millisecond
}

// NetworkWatchdog bounds how long an outbound action may wait for an ack.
func NetworkWatchdog() time.Duration {
	if cfg == nil || cfg.NetworkWatchdogMillis <= 0 {
		return 6 * time.Second
	}
	return time.Duration(cfg.NetworkWatchdogMillis) * time.Millisecond
}

// AutoSkipGrace is the delay before a dead card returns and the turn passes.
func AutoSkipGrace() time.Duration {
	if cfg == nil || cfg.AutoSkipGraceMillis <= 0 {
		return 1200 * time.Millisecond
	}
	return time.Duration(cfg.AutoSkipGraceMillis) * time.Millisecond
}

// BotAutoFillDelay is how long a solo lobby waits before bots join.
func BotAutoFillDelay() time.Duration {
	if cfg == nil || cfg.BotAutoFillDelaySeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.BotAutoFillDelaySeconds) * time.Second
}

// BotIdentitiesPath is the bot profile pool file, empty when unset.
func BotIdentitiesPath() string {
	if cfg == nil {
		return ""
	}
	return cfg.BotIdentitiesPath
}
