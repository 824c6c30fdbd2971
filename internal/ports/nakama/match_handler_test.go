package nakama

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"slidepursuit/internal/app/roomtoken"
	"slidepursuit/internal/bot"
	"slidepursuit/internal/ports"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcastCount int
	labelUpdates   int
	lastOpCode     int64
	lastData       []byte
	opCodes        []int64
	allData        [][]byte
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcastCount++
	md.lastOpCode = opCode
	md.lastData = append([]byte(nil), data...)
	md.opCodes = append(md.opCodes, opCode)
	md.allData = append(md.allData, append([]byte(nil), data...))
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	return nil
}

func (md *mockDispatcher) sawOpCode(op int64) bool {
	for _, code := range md.opCodes {
		if code == op {
			return true
		}
	}
	return false
}

// mockStats records results instead of touching storage.
type mockStats struct {
	results []ports.MatchResult
}

func (ms *mockStats) RecordResult(ctx context.Context, result ports.MatchResult) error {
	ms.results = append(ms.results, result)
	return nil
}

func (ms *mockStats) GetStats(ctx context.Context, userID string) (ports.PlayerStats, error) {
	return ports.PlayerStats{}, nil
}

// mockMatchData is a client message addressed to the match loop.
type mockMatchData struct {
	userID string
	opCode int64
	data   []byte
}

func (m *mockMatchData) GetUserId() string                 { return m.userID }
func (m *mockMatchData) GetSessionId() string              { return "session-" + m.userID }
func (m *mockMatchData) GetNodeId() string                 { return "node" }
func (m *mockMatchData) GetHidden() bool                   { return false }
func (m *mockMatchData) GetPersistence() bool              { return true }
func (m *mockMatchData) GetUsername() string               { return m.userID }
func (m *mockMatchData) GetStatus() string                 { return "" }
func (m *mockMatchData) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (m *mockMatchData) GetOpCode() int64                  { return m.opCode }
func (m *mockMatchData) GetData() []byte                   { return m.data }
func (m *mockMatchData) GetReliable() bool                 { return true }
func (m *mockMatchData) GetReceiveTime() int64             { return 0 }

func newTestState(seats ...string) *MatchState {
	s := make([]string, 4)
	copy(s, seats)
	return &MatchState{
		Seats:          s,
		OwnerSeat:      findFirstHumanSeat(s),
		LastWinnerSeat: -1,
		Presences:      make(map[string]runtime.Presence),
		Sink:           newEventSink(),
		Bots:           make(map[string]*bot.Agent),
		RoomID:         "room-test",
		BotsEnabled:    true,
		BotMinDelay:    1,
		BotMaxDelay:    1,
		rng:            rand.New(rand.NewSource(11)),
	}
}

func TestFindFirstHumanSeat(t *testing.T) {
	tests := []struct {
		name  string
		seats []string
		want  int
	}{
		{
			name:  "FirstHumanAfterBot",
			seats: []string{"bot-0", "user-1", "", ""},
			want:  1,
		},
		{
			name:  "AllBots",
			seats: []string{"bot-0", "bot-1", "", ""},
			want:  -1,
		},
		{
			name:  "AllEmpty",
			seats: []string{"", "", "", ""},
			want:  -1,
		},
		{
			name:  "FirstHumanIsSeatZero",
			seats: []string{"user-1", "bot-0", "user-2", ""},
			want:  0,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := findFirstHumanSeat(test.seats); got != test.want {
				t.Fatalf("findFirstHumanSeat() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestShouldTerminateNoHumans(t *testing.T) {
	tests := []struct {
		name  string
		seats []string
		want  bool
	}{
		{
			name:  "BotsOnly",
			seats: []string{"bot-0", "bot-1", "bot-2", "bot-3"},
			want:  true,
		},
		{
			name:  "BotsAndEmpty",
			seats: []string{"bot-0", "", "bot-2", ""},
			want:  true,
		},
		{
			name:  "HumansPresent",
			seats: []string{"bot-0", "user-1", "", ""},
			want:  false,
		},
		{
			name:  "AllEmpty",
			seats: []string{"", "", "", ""},
			want:  true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := shouldTerminateNoHumans(test.seats); got != test.want {
				t.Fatalf("shouldTerminateNoHumans() = %t, want %t", got, test.want)
			}
		})
	}
}

func TestMatchLabelMarshal(t *testing.T) {
	tests := []struct {
		name     string
		label    matchLabel
		expected string
	}{
		{
			name:     "LobbyState",
			label:    matchLabel{Open: 3, State: "lobby", Game: "slidepursuit"},
			expected: `{"open":3,"state":"lobby","game":"slidepursuit"}`,
		},
		{
			name:     "PlayingState",
			label:    matchLabel{Open: 0, State: "playing", Game: "slidepursuit"},
			expected: `{"open":0,"state":"playing","game":"slidepursuit"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			payload, err := json.Marshal(test.label)
			if err != nil {
				t.Fatalf("Failed to marshal label: %v", err)
			}
			if string(payload) != test.expected {
				t.Errorf("Got %s, want %s", payload, test.expected)
			}
		})
	}
}

func TestProcessBotsFillsSoloHumanLobby(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState("user-1")
	state.BotAutoFillDelay = 2
	state.LastSinglePlayerTick = 8
	state.Tick = 10

	handler.processBots(context.Background(), state, dispatcher, noopLogger{})

	botCount := 0
	for _, seat := range state.Seats {
		if isBotUserId(seat) {
			botCount++
		}
	}
	if botCount != 3 {
		t.Fatalf("Expected 3 bots, got %d", botCount)
	}
	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("Expected no open seats after auto-fill, got %d", state.GetOpenSeatsCount())
	}
	if state.LastSinglePlayerTick != 0 {
		t.Fatalf("Expected auto-fill timer reset, got %d", state.LastSinglePlayerTick)
	}
	if dispatcher.broadcastCount == 0 || dispatcher.labelUpdates == 0 {
		t.Fatalf("Expected room state broadcast and label update after auto-fill")
	}
}

func TestProcessBotsWaitsOutAutoFillDelay(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState("user-1")
	state.BotAutoFillDelay = 5
	state.Tick = 10

	handler.processBots(context.Background(), state, dispatcher, noopLogger{})

	if state.LastSinglePlayerTick != 10 {
		t.Fatalf("Expected timer armed at tick 10, got %d", state.LastSinglePlayerTick)
	}
	if state.GetOpenSeatsCount() != 3 {
		t.Fatalf("Expected lobby untouched before delay, got %d open seats", state.GetOpenSeatsCount())
	}
}

func TestHandleStartGameRequiresOwner(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState("user-1", "user-2")

	msg := &mockMatchData{userID: "user-2", opCode: OpStartGame}
	handler.handleStartGame(context.Background(), state, dispatcher, noopLogger{}, msg)

	if state.Started {
		t.Fatal("Expected non-owner start to be rejected")
	}

	msg = &mockMatchData{userID: "user-1", opCode: OpStartGame}
	handler.handleStartGame(context.Background(), state, dispatcher, noopLogger{}, msg)

	if !state.Started {
		t.Fatal("Expected owner start to succeed")
	}
	if state.Engine == nil {
		t.Fatal("Expected engine to be created on start")
	}
	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("Expected bots to fill empty seats, got %d open", state.GetOpenSeatsCount())
	}
	if state.TurnSecondsRemaining <= 0 {
		t.Fatal("Expected turn timer armed on start")
	}
}

func TestDrawCardRevealsAndBroadcasts(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState("user-1")
	handler.handleStartGame(context.Background(), state, dispatcher, noopLogger{}, &mockMatchData{userID: "user-1", opCode: OpStartGame})
	if !state.Started {
		t.Fatal("Expected game to start")
	}

	if seat := state.Engine.CurrentSeat(); seat != 0 {
		t.Fatalf("Expected seat 0 to open the match, got %d", seat)
	}

	handler.handleDrawCard(context.Background(), state, dispatcher, noopLogger{}, &mockMatchData{userID: "user-1", opCode: OpDrawCard})
	handler.flush(context.Background(), state, dispatcher, noopLogger{})

	if !dispatcher.sawOpCode(OpCardRevealed) {
		t.Fatal("Expected a card reveal broadcast after drawing")
	}
	if !state.Engine.CardPicked() {
		t.Fatal("Expected the drawn card to stay pending until played")
	}
}

func TestDrawCardRejectsWrongSeat(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState("user-1", "user-2")
	handler.handleStartGame(context.Background(), state, dispatcher, noopLogger{}, &mockMatchData{userID: "user-1", opCode: OpStartGame})

	before := dispatcher.broadcastCount
	handler.handleDrawCard(context.Background(), state, dispatcher, noopLogger{}, &mockMatchData{userID: "user-2", opCode: OpDrawCard})

	if state.Engine.CardPicked() {
		t.Fatal("Expected out-of-turn draw to be rejected")
	}
	// The rejection only goes to the sender's presence; none registered
	// here, so no broadcast should have happened either.
	if dispatcher.broadcastCount != before {
		t.Fatalf("Expected no broadcast on rejected draw, got %d new", dispatcher.broadcastCount-before)
	}
}

func TestFinishMatchRecordsHumanStats(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	stats := &mockStats{}
	state := newTestState("user-1", "bot-1", "bot-2", "bot-3")
	state.Started = true
	state.Stats = stats

	handler.finishMatch(context.Background(), state, dispatcher, noopLogger{}, 0)

	if len(stats.results) != 1 {
		t.Fatalf("Expected one human result recorded, got %d", len(stats.results))
	}
	if got := stats.results[0]; got.UserID != "user-1" || !got.Won {
		t.Fatalf("Unexpected result %+v", got)
	}
	if state.Started {
		t.Fatal("Expected match back in lobby after finish")
	}
	if state.Engine != nil {
		t.Fatal("Expected engine discarded after finish")
	}
	if state.LastWinnerSeat != 0 {
		t.Fatalf("Expected winner seat 0 recorded, got %d", state.LastWinnerSeat)
	}
	if !dispatcher.sawOpCode(OpMatchEnded) {
		t.Fatal("Expected match ended broadcast")
	}
	if dispatcher.labelUpdates == 0 {
		t.Fatal("Expected label update back to lobby")
	}
}

func TestTickTurnTimerForcesRecovery(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState("user-1", "user-2")
	handler.handleStartGame(context.Background(), state, dispatcher, noopLogger{}, &mockMatchData{userID: "user-1", opCode: OpStartGame})

	seatBefore := state.Engine.CurrentSeat()
	state.TurnSecondsRemaining = 1
	handler.tickTurnTimer(state, noopLogger{})

	if got := state.Engine.CurrentSeat(); got == seatBefore {
		t.Fatalf("Expected forced recovery to advance the turn from seat %d", seatBefore)
	}
	if state.TurnSecondsRemaining <= 0 {
		t.Fatal("Expected turn timer re-armed after recovery")
	}
}

func TestJoinAndLeaveBroadcastSeatEvents(t *testing.T) {
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	state := newTestState()

	joiner := &mockMatchData{userID: "user-1"}
	result := handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 0, state, []runtime.Presence{joiner})
	state = result.(*MatchState)

	if !dispatcher.sawOpCode(OpPlayerJoined) {
		t.Fatal("Expected a player joined broadcast")
	}
	var joined seatEventMessage
	for i, code := range dispatcher.opCodes {
		if code == OpPlayerJoined {
			_ = json.Unmarshal(dispatcher.allData[i], &joined)
			break
		}
	}
	if joined.UserID != "user-1" || joined.Seat != 0 {
		t.Fatalf("Joined event = %+v, want user-1 in seat 0", joined)
	}

	second := &mockMatchData{userID: "user-2"}
	result = handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{second})
	state = result.(*MatchState)

	result = handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.Presence{second})
	if result == nil {
		t.Fatal("Expected match to keep running with a human left")
	}
	state = result.(*MatchState)

	if !dispatcher.sawOpCode(OpPlayerLeft) {
		t.Fatal("Expected a player left broadcast")
	}
	var left seatEventMessage
	for i, code := range dispatcher.opCodes {
		if code == OpPlayerLeft {
			_ = json.Unmarshal(dispatcher.allData[i], &left)
			break
		}
	}
	if left.UserID != "user-2" || left.Seat != 1 {
		t.Fatalf("Left event = %+v, want user-2 in seat 1", left)
	}
	if state.Seats[1] != "" {
		t.Fatalf("Expected seat 1 freed, got %q", state.Seats[1])
	}
}

func TestPrivateRoomJoinRequiresInvite(t *testing.T) {
	handler := newMatchHandler()
	state := newTestState()
	state.Private = true
	state.RoomID = "room-private"

	secret := "test-room-secret"
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, map[string]string{
		"slidepursuit_room_token_secret": secret,
	})
	joiner := &mockMatchData{userID: "user-1"}

	_, allowed, _ := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, nil, 0, state, joiner, map[string]string{})
	if allowed {
		t.Fatal("Expected join without invite to be rejected")
	}

	token, err := roomtoken.NewService(secret, roomTokenIssuer, 0).Mint("user-1", "room-private")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	_, allowed, reason := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, nil, 0, state, joiner, map[string]string{"invite_token": token})
	if !allowed {
		t.Fatalf("Expected valid invite to be accepted, got %q", reason)
	}

	_, allowed, _ = handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, nil, 0, state, &mockMatchData{userID: "user-2"}, map[string]string{"invite_token": token})
	if allowed {
		t.Fatal("Expected another user's invite to be rejected")
	}
}

func TestBuildRoomSnapshotLobby(t *testing.T) {
	snap := buildRoomSnapshot("room-1", []string{"user-1", "", "bot-0", ""}, map[string]string{"user-1": "Avery"}, nil)

	if snap.RoomID != "room-1" {
		t.Fatalf("RoomID = %q", snap.RoomID)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("Expected 2 seated players, got %d", len(snap.Players))
	}
	if snap.Players[0].DisplayName != "Avery" {
		t.Fatalf("DisplayName = %q, want Avery", snap.Players[0].DisplayName)
	}
	if snap.TurnIndicator != "" {
		t.Fatalf("Expected no turn indicator pre-game, got %q", snap.TurnIndicator)
	}
}
