package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a
	// lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcRoomTokenMint is the RPC id for minting a private room invite.
	RpcRoomTokenMint = "room_token_mint"

	// MatchName is the authoritative match handler name registered with Nakama.
	MatchName = "slidepursuit_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame int64 = 1
	OpDrawCard  int64 = 2
	OpPlayCard  int64 = 3

	// Server -> Client events
	OpPlayerJoined int64 = 101
	OpPlayerLeft   int64 = 102
	OpRoomState    int64 = 103
	OpCardRevealed int64 = 104
	OpTurnSkipped  int64 = 105
	OpMatchEnded   int64 = 106
	OpGameError    int64 = 107
	OpAck          int64 = 108
)
