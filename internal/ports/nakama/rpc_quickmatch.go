package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"slidepursuit/internal/config"
)

// QuickMatchRequest optionally asks for a fresh private room instead of
// joining an open lobby.
type QuickMatchRequest struct {
	Private bool `json:"private"`
}

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcRoomTokenMint, rpcRoomTokenMint)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req QuickMatchRequest
	if payload != "" {
		_ = json.Unmarshal([]byte(payload), &req)
	}

	// Private rooms are never listed; create one directly. Guests join with
	// an invite token minted by the room token RPC.
	if req.Private {
		matchID, err := nk.MatchCreate(ctx, MatchName, map[string]interface{}{"private": true})
		if err != nil {
			logger.Error("MatchCreate error: %v", err)
			return "", err
		}
		b, _ := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: true})
		return string(b), nil
	}

	// Find any public lobby of our game with an open seat.
	query := "+label.open:>0 +label.game:slidepursuit +label.state:lobby"

	limit := 10
	authoritative := true

	minSize := 1
	maxSize := config.Players() - 1 // at least one seat still free

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; seat/owner assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchName, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
