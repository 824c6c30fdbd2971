package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"slidepursuit/internal/app/roomtoken"
)

const roomTokenIssuer = "slidepursuit"

var (
	roomTokenSvc  *roomtoken.Service
	roomTokenOnce sync.Once
)

// roomTokenService lazily builds the mint service from the runtime env.
func roomTokenService(ctx context.Context) (*roomtoken.Service, error) {
	roomTokenOnce.Do(func() {
		env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
		secret := env["slidepursuit_room_token_secret"]
		if secret == "" {
			return
		}
		roomTokenSvc = roomtoken.NewService(secret, roomTokenIssuer, 0)
	})
	if roomTokenSvc == nil {
		return nil, fmt.Errorf("room token secret is not configured")
	}
	return roomTokenSvc, nil
}

// RoomTokenMintRequest asks for an invite token to a private room.
type RoomTokenMintRequest struct {
	RoomID string `json:"room_id"`
}

// RoomTokenMintResponse carries the signed invite token.
type RoomTokenMintResponse struct {
	Token string `json:"token"`
}

func rpcRoomTokenMint(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", fmt.Errorf("user id not found in context")
	}

	var req RoomTokenMintRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}

	svc, err := roomTokenService(ctx)
	if err != nil {
		logger.Error("rpcRoomTokenMint: %v", err)
		return "", err
	}

	token, err := svc.Mint(userID, req.RoomID)
	if err != nil {
		logger.Error("rpcRoomTokenMint [User:%s]: mint failed: %v", userID, err)
		return "", err
	}

	b, _ := json.Marshal(RoomTokenMintResponse{Token: token})
	return string(b), nil
}
