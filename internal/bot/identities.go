package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
)

// BotIdentity is one entry of the bot account pool.
type BotIdentity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "good" or "smart"
	AvatarIndex int    `json:"avatar_index"`
}

var (
	botIdentities []BotIdentity
	botPool       map[string]BotIdentity
	loadOnce      sync.Once
	provisionOnce sync.Once
	loadErr       error
)

// LoadIdentities loads the bot profile pool from a JSON file.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("read bot identities: %w", err)
			return
		}
		if err := json.Unmarshal(data, &botIdentities); err != nil {
			loadErr = fmt.Errorf("unmarshal bot identities: %w", err)
			return
		}
		botPool = make(map[string]BotIdentity, len(botIdentities))
		for _, identity := range botIdentities {
			if identity.UserID != "" {
				botPool[identity.UserID] = identity
			}
		}
	})
	return loadErr
}

// ProvisionBots ensures every pool entry has a Nakama account carrying the
// is_bot metadata, creating accounts on first run.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) error {
	provisionOnce.Do(func() {
		for i := range botIdentities {
			identity := &botIdentities[i]
			if identity.DeviceID == "" {
				continue
			}

			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: authenticate %s failed: %v", identity.Username, err)
				continue
			}
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot":       true,
				"difficulty":   identity.Difficulty,
				"avatar_index": identity.AvatarIndex,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: update account %s failed: %v", userID, err)
			}

			botPool[identity.UserID] = *identity
			logger.Info("ProvisionBots: %s (%s) ready, difficulty %s", identity.DisplayName, userID, identity.Difficulty)
		}
	})
	return nil
}

// GetBotConfig returns the identity for a provisioned bot user ID.
func GetBotConfig(userID string) (BotIdentity, bool) {
	identity, ok := botPool[userID]
	return identity, ok
}

// GetBotDisplayName returns the display name for a bot ID, falling back to
// the username, or an empty string for non-bots.
func GetBotDisplayName(userID string) string {
	identity, ok := botPool[userID]
	if !ok {
		return ""
	}
	if identity.DisplayName == "" {
		return identity.Username
	}
	return identity.DisplayName
}

// GetBotIdentity returns a pool identity by index (mod pool size), with a
// synthetic fallback when no pool was loaded or the entry was never
// provisioned with an account.
func GetBotIdentity(index int) BotIdentity {
	if len(botIdentities) > 0 {
		identity := botIdentities[index%len(botIdentities)]
		if identity.UserID != "" {
			return identity
		}
	}
	return BotIdentity{
		UserID:      fmt.Sprintf("bot-%d", index),
		DisplayName: fmt.Sprintf("AI Player %d", index),
		Difficulty:  "good",
	}
}

// IsBot reports whether the user ID belongs to the bot pool.
func IsBot(userID string) bool {
	_, ok := botPool[userID]
	return ok
}
