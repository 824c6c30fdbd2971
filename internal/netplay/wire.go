package netplay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Pawn status values carried by room snapshots.
const (
	StatusBase     = "BASE"
	StatusTrack    = "TRACK"
	StatusFinished = "FINISHED"
)

// Chosen move types carried by play-card requests.
const (
	MoveForward  = "FORWARD"
	MoveBackward = "BACKWARD"
	MoveSplit    = "SPLIT"
	MoveSwap     = "SWAP"
	MoveBump     = "BUMP"
)

// Envelope is the transport framing: an operation name plus its payload.
type Envelope struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope operations.
const (
	OpRoomState = "room_state"
	OpPlayCard  = "play_card"
	OpAck       = "ack"
)

// PawnUpdate is one pawn's authoritative state inside a room snapshot. The
// pawn id is local to its owning player (0..3).
type PawnUpdate struct {
	PawnID   int    `json:"pawnId"`
	Position int    `json:"position"`
	Status   string `json:"status"`
	IsMove   bool   `json:"isMove"`
}

// PlayerState is one player's entry in a room snapshot.
type PlayerState struct {
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name,omitempty"`
	Pawns       []PawnUpdate `json:"pawns"`
}

// RoomSnapshot is the authoritative room state pushed by the server.
type RoomSnapshot struct {
	RoomID        string        `json:"roomId"`
	TurnIndicator string        `json:"turnIndicator"`
	Players       []PlayerState `json:"players"`
}

// ErrMalformedUpdate marks a snapshot that must be dropped whole; a
// half-applied snapshot is worse than a skipped one.
var ErrMalformedUpdate = errors.New("malformed room update")

// Validate rejects snapshots missing the fields reconciliation depends on.
func (s *RoomSnapshot) Validate() error {
	if s.RoomID == "" {
		return fmt.Errorf("%w: missing roomId", ErrMalformedUpdate)
	}
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrMalformedUpdate)
	}
	for i, p := range s.Players {
		if p.UserID == "" {
			return fmt.Errorf("%w: player %d missing user_id", ErrMalformedUpdate, i)
		}
	}
	return nil
}

// SplitPart is one half of a split card played over the network.
type SplitPart struct {
	PawnID int `json:"pawnId"`
	Steps  int `json:"steps"`
}

// PlayCardRequest is the outbound action message. Target fields are set for
// swap/capture/attack plays, Splits for split cards.
type PlayCardRequest struct {
	CardID         int         `json:"cardId"`
	ChosenMoveType string      `json:"chosenMoveType"`
	PawnID         int         `json:"pawnId"`
	RoomID         string      `json:"roomId"`
	TargetPawnID   int         `json:"targetPawnId,omitempty"`
	TargetUserID   string      `json:"targetUserId,omitempty"`
	Splits         []SplitPart `json:"splits,omitempty"`
}

// Ack confirms a play-card request was accepted by the server.
type Ack struct {
	CardID int    `json:"cardId"`
	RoomID string `json:"roomId"`
}
