package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"slidepursuit/internal/bot"
	"slidepursuit/internal/config"
)

// InitModule wires RPCs, hooks and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	configPath := env["slidepursuit_game_config"]
	if configPath == "" {
		configPath = "data/game_config.json"
	}
	if err := config.LoadGameConfig(configPath); err != nil {
		logger.Warn("InitModule: game config not loaded, using defaults: %v", err)
	}

	identitiesPath := config.BotIdentitiesPath()
	if identitiesPath == "" {
		identitiesPath = "data/bot_identities.json"
	}
	if err := bot.LoadIdentities(identitiesPath); err != nil {
		logger.Warn("InitModule: bot identities not loaded, using synthetic bots: %v", err)
	} else if err := bot.ProvisionBots(ctx, nk, logger); err != nil {
		logger.Warn("InitModule: bot provisioning incomplete: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchName, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(), nil
	}); err != nil {
		return err
	}

	logger.Info("Slide Pursuit Go module loaded.")
	return nil
}
