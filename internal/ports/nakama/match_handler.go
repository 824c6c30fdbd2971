package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"slidepursuit/internal/bot"
	"slidepursuit/internal/config"
	"slidepursuit/internal/domain"
	"slidepursuit/internal/engine"
	"slidepursuit/internal/netplay"
	"slidepursuit/internal/ports"
)

// matchLabel is the JSON label queried by matchmaking.
type matchLabel struct {
	Open  int    `json:"open"`
	State string `json:"state"`
	Game  string `json:"game"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats          []string                    `json:"seats"` // user ids, empty string means seat is empty
	OwnerSeat      int                         `json:"owner_seat"`
	LastWinnerSeat int                         `json:"last_winner_seat"`
	Tick           int64                       `json:"tick"`
	Presences      map[string]runtime.Presence `json:"-"`
	Engine         *engine.Engine              `json:"-"`
	Sink           *eventSink                  `json:"-"`
	Started        bool                        `json:"started"`
	RoomID         string                      `json:"room_id"`
	Private        bool                        `json:"private"`

	BotsEnabled          bool                  `json:"bots_enabled"`
	BotMinDelay          int                   `json:"bot_min_delay"`
	BotMaxDelay          int                   `json:"bot_max_delay"`
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`
	BotWaitUntil         int64                 `json:"bot_wait_until"`
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"`
	Bots                 map[string]*bot.Agent `json:"-"`

	TurnSecondsRemaining int64           `json:"turn_seconds_remaining"`
	Stats                ports.StatsPort `json:"-"`

	rng *rand.Rand
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !isBotUserId(seat) {
			count++
		}
	}
	return count
}

// isBotUserId reports whether the given user id represents a bot seat.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId) || strings.HasPrefix(userId, "bot-")
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userId := seats[seatIndex]
	return userId != "" && !isBotUserId(userId)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1.
func findFirstHumanSeat(seats []string) int {
	for i, userId := range seats {
		if userId != "" && !isBotUserId(userId) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when there are no humans in the match.
func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}

// eventSink collects engine outputs for dispatch after the triggering call
// returns. Engine callbacks run under the engine lock and timer goroutines,
// so every field is guarded.
type eventSink struct {
	mu      sync.Mutex
	moves   []int
	reveals []revealRecord
	skips   []int
	turns   []int
	winner  int
	dirty   bool
}

type revealRecord struct {
	seat int
	card domain.Card
}

func newEventSink() *eventSink {
	return &eventSink{winner: -1}
}

func (s *eventSink) MoveRequested(pawnID, from, to, steps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, pawnID)
	s.dirty = true
}

func (s *eventSink) PawnSnapped(pawnID, index int) { s.markDirty() }
func (s *eventSink) PawnBumped(pawnID int)         { s.markDirty() }
func (s *eventSink) PawnSlid(pawnID, from, to int) { s.markDirty() }
func (s *eventSink) CardReturned(card domain.Card) { s.markDirty() }
func (s *eventSink) ExtraTurnGranted(seat int)     { s.markDirty() }

func (s *eventSink) CardRevealed(seat int, card domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveals = append(s.reveals, revealRecord{seat: seat, card: card})
}

func (s *eventSink) TurnChanged(seat int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, seat)
	s.dirty = true
}

func (s *eventSink) TurnSkipped(seat int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skips = append(s.skips, seat)
}

func (s *eventSink) MatchWon(seat int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winner = seat
}

func (s *eventSink) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// nextMove pops the oldest unsettled move request, if any.
func (s *eventSink) nextMove() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.moves) == 0 {
		return 0, false
	}
	id := s.moves[0]
	s.moves = s.moves[1:]
	return id, true
}

// collected is one flush worth of sink output.
type collected struct {
	reveals []revealRecord
	skips   []int
	turns   []int
	winner  int
	dirty   bool
}

// take drains everything except unsettled moves.
func (s *eventSink) take() collected {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := collected{reveals: s.reveals, skips: s.skips, turns: s.turns, winner: s.winner, dirty: s.dirty}
	s.reveals, s.skips, s.turns = nil, nil, nil
	s.winner = -1
	s.dirty = false
	return out
}

type matchHandler struct{}

func newMatchHandler() *matchHandler { return &matchHandler{} }

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	identitiesPath := config.BotIdentitiesPath()
	if identitiesPath == "" {
		identitiesPath = "data/bot_identities.json"
	}
	if err := bot.LoadIdentities(identitiesPath); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}

	state := &MatchState{
		Seats:          make([]string, config.Players()),
		OwnerSeat:      -1,
		LastWinnerSeat: -1,
		Tick:           time.Now().Unix(),
		Presences:      make(map[string]runtime.Presence),
		Sink:           newEventSink(),
		Bots:           make(map[string]*bot.Agent),
		Stats:          NewNakamaStatsAdapter(nk),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if matchID, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok {
		state.RoomID = matchID
	}
	if private, ok := params["private"].(bool); ok {
		state.Private = private
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["slidepursuit_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["slidepursuit_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["slidepursuit_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["slidepursuit_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}

	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = int(config.BotAutoFillDelay().Seconds())
	}

	labelBytes, err := json.Marshal(matchLabel{Open: state.GetOpenSeatsCount(), State: lobbyPhase(state), Game: "slidepursuit"})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Private rooms require a valid invite token bound to this user and room.
	if matchState.Private {
		svc, err := roomTokenService(ctx)
		if err != nil {
			logger.Error("MatchJoinAttempt: %v", err)
			return state, false, "private rooms unavailable"
		}
		userID, roomID, err := svc.Verify(metadata["invite_token"])
		if err != nil {
			logger.Warn("MatchJoinAttempt: Invite rejected for %s: %v", presence.GetUserId(), err)
			return state, false, "invalid invite"
		}
		if userID != presence.GetUserId() || roomID != matchState.RoomID {
			return state, false, "invite does not match this room"
		}
	}

	// Allow join if there is an empty seat OR a bot to replace pre-game.
	if matchState.GetOpenSeatsCount() <= 0 {
		hasBot := false
		if !matchState.Started {
			for _, seat := range matchState.Seats {
				if isBotUserId(seat) {
					hasBot = true
					break
				}
			}
		}
		if !hasBot {
			return state, false, "Match full"
		}
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		assigned := false
		for i, seatUserId := range matchState.Seats {
			if seatUserId == "" {
				matchState.Seats[i] = p.GetUserId()
				assigned = true
				break
			}
		}

		if !assigned && !matchState.Started {
			for i, seatUserId := range matchState.Seats {
				if isBotUserId(seatUserId) {
					logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seatUserId, p.GetUserId(), i)
					delete(matchState.Bots, seatUserId)
					matchState.Seats[i] = p.GetUserId()
					assigned = true
					break
				}
			}
		}

		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
			continue
		}
		mh.broadcastSeatEvent(matchState, dispatcher, logger, OpPlayerJoined, p.GetUserId(), seatOf(matchState.Seats, p.GetUserId()))
	}

	if !isHumanSeat(matchState.Seats, matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoomState(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		for i, seatUserId := range matchState.Seats {
			if seatUserId == p.GetUserId() {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)

				// A leaver holding the turn must not stall the match.
				if matchState.Started && matchState.Engine != nil && matchState.Engine.CurrentSeat() == i {
					matchState.Engine.ForceRecover()
				}
				mh.broadcastSeatEvent(matchState, dispatcher, logger, OpPlayerLeft, p.GetUserId(), i)
				break
			}
		}
	}

	if newOwnerSeat := findFirstHumanSeat(matchState.Seats); newOwnerSeat != matchState.OwnerSeat {
		matchState.OwnerSeat = newOwnerSeat
	}

	if shouldTerminateNoHumans(matchState.Seats) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.flush(ctx, matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpDrawCard:
			mh.handleDrawCard(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handlePlayCard(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	mh.tickTurnTimer(matchState, logger)
	mh.flush(ctx, matchState, dispatcher, logger)

	return matchState
}

// tickTurnTimer force-recovers a turn whose seat never acted.
func (mh *matchHandler) tickTurnTimer(state *MatchState, logger runtime.Logger) {
	if !state.Started || state.Engine == nil {
		return
	}
	state.TurnSecondsRemaining--
	if state.TurnSecondsRemaining > 0 {
		return
	}
	logger.Info("MatchLoop: Turn timer expired for seat %d, forcing recovery.", state.Engine.CurrentSeat())
	state.Engine.ForceRecover()
	mh.resetTurnTimer(state)
}

func (mh *matchHandler) resetTurnTimer(state *MatchState) {
	state.TurnSecondsRemaining = int64(config.TurnDuration().Seconds())
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderSeat := seatOf(state.Seats, msg.GetUserId())

	if state.Started {
		logger.Warn("StartGame: Game already running.")
		return
	}
	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start but is not owner (owner_seat=%d)", msg.GetUserId(), state.OwnerSeat)
		return
	}
	if state.GetHumanPlayerCount() == 0 {
		return
	}

	// Fill the remaining seats with bots so the board is complete.
	for i, seatUserId := range state.Seats {
		if seatUserId != "" {
			continue
		}
		identity := bot.GetBotIdentity(i)
		agent, err := bot.NewAgent(identity, i)
		if err != nil {
			logger.Error("StartGame: Failed to create bot agent: %v", err)
			continue
		}
		state.Seats[i] = identity.UserID
		state.Bots[identity.UserID] = agent
	}
	for i, seatUserId := range state.Seats {
		if isBotUserId(seatUserId) && state.Bots[seatUserId] == nil {
			identity, ok := bot.GetBotConfig(seatUserId)
			if !ok {
				identity = bot.GetBotIdentity(i)
			}
			agent, err := bot.NewAgent(identity, i)
			if err == nil {
				agent.UserID = seatUserId
				state.Bots[seatUserId] = agent
			}
		}
	}

	// The seat array was sized from the same config, so layout and seat
	// count always agree.
	board := domain.FourPlayerBoard()
	if config.BoardLayout() == "standard2" {
		board = domain.TwoPlayerBoard()
	}
	state.Engine = engine.New(board, state.rng,
		engine.WithListener(state.Sink),
		engine.WithTiming(engine.Timing{
			MoveWatchdog:  config.MoveWatchdog(),
			AutoSkipGrace: config.AutoSkipGrace(),
		}),
	)
	state.Engine.NotifyDeckReady()
	state.Started = true
	mh.resetTurnTimer(state)

	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastRoomState(state, dispatcher, logger)

	logger.Info("StartGame: Game started with %d seats.", len(state.Seats))
}

func (mh *matchHandler) handleDrawCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if !state.Started || state.Engine == nil {
		logger.Warn("handleDrawCard: Game not started.")
		return
	}
	senderSeat := seatOf(state.Seats, msg.GetUserId())
	if senderSeat != state.Engine.CurrentSeat() {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 403, "not your turn")
		return
	}

	if _, err := state.Engine.DrawCard(); err != nil {
		logger.Warn("handleDrawCard: User %s draw rejected: %v", msg.GetUserId(), err)
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 400, err.Error())
		return
	}
}

func (mh *matchHandler) handlePlayCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if !state.Started || state.Engine == nil {
		logger.Warn("handlePlayCard: Game not started.")
		return
	}
	senderID := msg.GetUserId()
	senderSeat := seatOf(state.Seats, senderID)
	if senderSeat != state.Engine.CurrentSeat() {
		mh.sendError(state, dispatcher, logger, senderID, 403, "not your turn")
		return
	}

	var req netplay.PlayCardRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handlePlayCard: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed request")
		return
	}

	action, err := actionFromRequest(state.Engine, state.Seats, req)
	if err != nil {
		logger.Warn("handlePlayCard: User %s (seat %d) rejected: %v", senderID, senderSeat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	if err := state.Engine.Apply(action); err != nil {
		logger.Warn("handlePlayCard: User %s (seat %d) apply failed: %v", senderID, senderSeat, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	mh.sendAck(state, dispatcher, logger, senderID, netplay.Ack{CardID: req.CardID, RoomID: state.RoomID})
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// Auto-fill the lobby when a single human has waited long enough.
	if !state.Started {
		if state.GetHumanPlayerCount() == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				added := false
				for i, seat := range state.Seats {
					if seat != "" {
						continue
					}
					identity := bot.GetBotIdentity(i)
					agent, err := bot.NewAgent(identity, i)
					if err != nil {
						logger.Error("processBots: Failed to create bot agent for %s: %v", identity.UserID, err)
						continue
					}
					state.Seats[i] = identity.UserID
					state.Bots[identity.UserID] = agent
					logger.Info("processBots: Added bot %s (%s) to seat %d", identity.DisplayName, identity.UserID, i)
					added = true
				}
				if added {
					mh.updateLabel(state, dispatcher, logger)
					mh.broadcastRoomState(state, dispatcher, logger)
				}
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	// In-game bot turns, paced by a random tick delay.
	if state.Engine == nil || state.Engine.Winner() >= 0 {
		return
	}
	currentSeat := state.Engine.CurrentSeat()
	currentUserID := state.Seats[currentSeat]
	if !isBotUserId(currentUserID) {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := state.rng.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	agent, exists := state.Bots[currentUserID]
	if !exists {
		identity, ok := bot.GetBotConfig(currentUserID)
		if !ok {
			identity = bot.GetBotIdentity(currentSeat)
		}
		var err error
		agent, err = bot.NewAgent(identity, currentSeat)
		if err != nil {
			logger.Error("processBots: Failed to create fallback agent: %v", err)
			return
		}
		agent.UserID = currentUserID
		state.Bots[currentUserID] = agent
	}
	agent.Seat = currentSeat

	if !state.Engine.CardPicked() {
		if _, err := state.Engine.DrawCard(); err != nil {
			logger.Warn("processBots: Bot %s draw rejected: %v", currentUserID, err)
		}
		// Acting on the card waits for the next tick; the engine's grace
		// timer skips dead cards on its own.
		return
	}

	if _, err := agent.Act(state.Engine); err != nil && err != bot.ErrNoActions {
		logger.Error("processBots: Bot %s failed to act: %v", currentUserID, err)
	}
}

// flush settles engine-driven moves and broadcasts accumulated events.
// Server-side there is no animation, so every requested move settles
// immediately; chained auto-moves settle in the same pass.
func (mh *matchHandler) flush(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Engine == nil {
		return
	}
	for {
		id, ok := state.Sink.nextMove()
		if !ok {
			break
		}
		if err := state.Engine.MoveFinished(id); err != nil {
			logger.Warn("flush: settle of pawn %d failed: %v", id, err)
		}
	}

	out := state.Sink.take()

	for _, rec := range out.reveals {
		payload := cardMessage{UserID: state.Seats[rec.seat], Card: toCardJSON(rec.card)}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error("flush: marshal card message: %v", err)
			continue
		}
		dispatcher.BroadcastMessage(OpCardRevealed, data, nil, nil, true)
	}
	for _, seat := range out.skips {
		data, _ := json.Marshal(map[string]string{"user_id": state.Seats[seat]})
		dispatcher.BroadcastMessage(OpTurnSkipped, data, nil, nil, true)
	}

	if len(out.turns) > 0 {
		mh.resetTurnTimer(state)
	}
	if out.dirty {
		mh.broadcastRoomState(state, dispatcher, logger)
	}

	if out.winner >= 0 {
		mh.finishMatch(ctx, state, dispatcher, logger, out.winner)
	}
}

func (mh *matchHandler) finishMatch(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, winnerSeat int) {
	winnerID := state.Seats[winnerSeat]
	logger.Info("Match finished: seat %d (%s) won.", winnerSeat, winnerID)

	data, err := json.Marshal(matchEndedMessage{WinnerUserID: winnerID, WinnerSeat: winnerSeat})
	if err == nil {
		dispatcher.BroadcastMessage(OpMatchEnded, data, nil, nil, true)
	}

	if state.Stats != nil {
		for seat, userID := range state.Seats {
			if userID == "" || isBotUserId(userID) {
				continue
			}
			result := ports.MatchResult{
				UserID:  userID,
				MatchID: state.RoomID,
				Won:     seat == winnerSeat,
				Seats:   len(state.Seats),
			}
			if err := state.Stats.RecordResult(ctx, result); err != nil {
				logger.Error("finishMatch: Failed to record stats for %s: %v", userID, err)
			}
		}
	}

	state.LastWinnerSeat = winnerSeat
	state.Started = false
	state.Engine = nil
	state.BotWaitUntil = 0
	mh.updateLabel(state, dispatcher, logger)
}

// displayNameFor resolves a seat occupant's display name from the bot pool
// or the live presence.
func displayNameFor(state *MatchState, userID string) string {
	if agent, ok := state.Bots[userID]; ok && agent.DisplayName != "" {
		return agent.DisplayName
	}
	if name := bot.GetBotDisplayName(userID); name != "" {
		return name
	}
	if p, ok := state.Presences[userID]; ok {
		return p.GetUsername()
	}
	return ""
}

func (mh *matchHandler) displayNames(state *MatchState) map[string]string {
	names := make(map[string]string, len(state.Seats))
	for _, userID := range state.Seats {
		if userID == "" {
			continue
		}
		if name := displayNameFor(state, userID); name != "" {
			names[userID] = name
		}
	}
	return names
}

// broadcastSeatEvent announces one seat occupant joining or leaving.
func (mh *matchHandler) broadcastSeatEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, op int64, userID string, seat int) {
	msg := seatEventMessage{UserID: userID, Seat: seat, DisplayName: displayNameFor(state, userID)}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("broadcastSeatEvent: Failed to marshal: %v", err)
		return
	}
	dispatcher.BroadcastMessage(op, data, nil, nil, true)
}

// broadcastRoomState pushes the authoritative snapshot to every presence.
func (mh *matchHandler) broadcastRoomState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	snap := buildRoomSnapshot(state.RoomID, state.Seats, mh.displayNames(state), state.Engine)
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Error("broadcastRoomState: Failed to marshal snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpRoomState, data, nil, nil, true)
}

// sendError sends an error payload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := json.Marshal(errorMessage{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal error message: %v", err)
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true)
}

// sendAck confirms an accepted action to its sender.
func (mh *matchHandler) sendAck(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, ack netplay.Ack) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		// Bots have no presence; nothing to confirm.
		return
	}
	dispatcher.BroadcastMessage(OpAck, data, []runtime.Presence{presence}, nil, true)
}

func seatOf(seats []string, userID string) int {
	for i, seatUserId := range seats {
		if seatUserId == userID {
			return i
		}
	}
	return -1
}

// lobbyPhase is the label state for a not-yet-started match. Private rooms
// carry their own state so the public quickmatch query never returns them.
func lobbyPhase(state *MatchState) string {
	if state.Private {
		return "private"
	}
	return "lobby"
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := lobbyPhase(state)
	if state.Started {
		phase = "playing"
	}
	labelBytes, err := json.Marshal(matchLabel{Open: state.GetOpenSeatsCount(), State: phase, Game: "slidepursuit"})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
