package nakama

import (
	"fmt"

	"slidepursuit/internal/domain"
	"slidepursuit/internal/engine"
	"slidepursuit/internal/netplay"
)

// cardMessage is the card-revealed event payload.
type cardMessage struct {
	UserID string   `json:"user_id"`
	Card   cardJSON `json:"card"`
}

type cardJSON struct {
	ID        int    `json:"id"`
	Primary   int    `json:"primary"`
	Secondary int    `json:"secondary"`
	Dual      bool   `json:"dual"`
	Label     string `json:"label"`
}

func toCardJSON(c domain.Card) cardJSON {
	return cardJSON{ID: c.ID, Primary: c.Primary, Secondary: c.Secondary, Dual: c.Dual, Label: c.Label}
}

// seatEventMessage announces a seat occupant change.
type seatEventMessage struct {
	UserID      string `json:"user_id"`
	Seat        int    `json:"seat"`
	DisplayName string `json:"display_name,omitempty"`
}

// matchEndedMessage is the match-ended event payload.
type matchEndedMessage struct {
	WinnerUserID string `json:"winner_user_id"`
	WinnerSeat   int    `json:"winner_seat"`
}

// errorMessage is sent privately to the offending client.
type errorMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// buildRoomSnapshot converts the engine's authoritative state to the wire
// snapshot clients reconcile against. names maps user ids to display names
// and may be nil.
func buildRoomSnapshot(roomID string, seats []string, names map[string]string, eng *engine.Engine) netplay.RoomSnapshot {
	snap := netplay.RoomSnapshot{RoomID: roomID}
	if eng == nil {
		for _, userID := range seats {
			if userID == "" {
				continue
			}
			snap.Players = append(snap.Players, netplay.PlayerState{UserID: userID, DisplayName: names[userID]})
		}
		return snap
	}

	pawns := eng.Pawns()
	for seat, userID := range seats {
		if userID == "" {
			continue
		}
		player := netplay.PlayerState{UserID: userID, DisplayName: names[userID]}
		for local := 0; local < engine.PawnsPerSeat; local++ {
			p := pawns[seat*engine.PawnsPerSeat+local]
			u := netplay.PawnUpdate{PawnID: local, Position: p.Index}
			switch p.State {
			case domain.PawnAtBase:
				u.Status = netplay.StatusBase
				u.Position = -1
			case domain.PawnFinished:
				u.Status = netplay.StatusFinished
			default:
				u.Status = netplay.StatusTrack
			}
			player.Pawns = append(player.Pawns, u)
		}
		snap.Players = append(snap.Players, player)
	}

	if turn := eng.CurrentSeat(); turn >= 0 && turn < len(seats) {
		snap.TurnIndicator = seats[turn]
	}
	return snap
}

// actionFromRequest translates a play-card request into the matching legal
// engine action, rejecting anything the current mode does not offer.
func actionFromRequest(eng *engine.Engine, seats []string, req netplay.PlayCardRequest) (engine.Action, error) {
	seat := eng.CurrentSeat()
	moverID := seat*engine.PawnsPerSeat + req.PawnID
	if req.PawnID < 0 || req.PawnID >= engine.PawnsPerSeat {
		return engine.Action{}, fmt.Errorf("pawn id %d out of range", req.PawnID)
	}

	targetID := -1
	if req.TargetUserID != "" {
		targetSeat := -1
		for i, userID := range seats {
			if userID == req.TargetUserID {
				targetSeat = i
				break
			}
		}
		if targetSeat < 0 {
			return engine.Action{}, fmt.Errorf("target user %q not seated", req.TargetUserID)
		}
		if req.TargetPawnID < 0 || req.TargetPawnID >= engine.PawnsPerSeat {
			return engine.Action{}, fmt.Errorf("target pawn id %d out of range", req.TargetPawnID)
		}
		targetID = targetSeat*engine.PawnsPerSeat + req.TargetPawnID
	}

	splitSteps := 0
	if len(req.Splits) > 0 {
		splitSteps = req.Splits[0].Steps
	}

	for _, legal := range eng.LegalActions() {
		if legal.PawnID != moverID {
			continue
		}
		switch req.ChosenMoveType {
		case netplay.MoveForward:
			if legal.Kind == engine.ActForward {
				return legal, nil
			}
		case netplay.MoveBackward:
			if legal.Kind == engine.ActBackward {
				return legal, nil
			}
		case netplay.MoveSplit:
			if legal.Kind == engine.ActForward && legal.Steps == splitSteps {
				return legal, nil
			}
		case netplay.MoveSwap:
			if legal.Kind == engine.ActSwap && legal.Target == targetID {
				return legal, nil
			}
		case netplay.MoveBump:
			if (legal.Kind == engine.ActCapture || legal.Kind == engine.ActAttack) && legal.Target == targetID {
				return legal, nil
			}
		}
	}
	return engine.Action{}, fmt.Errorf("no legal %s action for pawn %d", req.ChosenMoveType, req.PawnID)
}
