package main

import (
	"errors"
	"flag"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"slidepursuit/internal/bot"
	"slidepursuit/internal/domain"
	"slidepursuit/internal/engine"
)

// simListener settles requested moves instantly and tracks the winner.
type simListener struct {
	mu     sync.Mutex
	moves  []int
	winner int
}

func newSimListener() *simListener { return &simListener{winner: -1} }

func (s *simListener) MoveRequested(pawnID, from, to, steps int) {
	s.mu.Lock()
	s.moves = append(s.moves, pawnID)
	s.mu.Unlock()
}

func (s *simListener) MatchWon(seat int) {
	s.mu.Lock()
	s.winner = seat
	s.mu.Unlock()
}

func (s *simListener) nextMove() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.moves) == 0 {
		return 0, false
	}
	id := s.moves[0]
	s.moves = s.moves[1:]
	return id, true
}

func (s *simListener) PawnSnapped(pawnID, index int) {}
func (s *simListener) PawnBumped(pawnID int)         {}
func (s *simListener) PawnSlid(pawnID, from, to int) {}
func (s *simListener) CardRevealed(int, domain.Card) {}
func (s *simListener) CardReturned(domain.Card)      {}
func (s *simListener) TurnChanged(int)               {}
func (s *simListener) TurnSkipped(int)               {}
func (s *simListener) ExtraTurnGranted(int)          {}

func main() {
	_ = godotenv.Load()

	games := flag.Int("games", 1, "number of games to play")
	players := flag.Int("players", 4, "seats on the board (2 or 4)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	levels := flag.String("levels", "good,smart,good,smart", "comma list of bot levels per seat")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	wins := make([]int, *players)
	for g := 0; g < *games; g++ {
		winner, err := playOne(log, *players, *seed+int64(g), *levels)
		if err != nil {
			log.Fatal().Err(err).Msg("simulation failed")
		}
		wins[winner]++
	}

	for seat, w := range wins {
		log.Info().Int("seat", seat).Int("wins", w).Int("games", *games).Msg("result")
	}
}

const grace = 20 * time.Millisecond

func playOne(log zerolog.Logger, players int, seed int64, levels string) (int, error) {
	rng := rand.New(rand.NewSource(seed))
	board := domain.BoardForPlayers(players)
	sink := newSimListener()
	eng := engine.New(board, rng,
		engine.WithLogger(log.Level(zerolog.WarnLevel)),
		engine.WithListener(sink),
		engine.WithTiming(engine.Timing{MoveWatchdog: 2 * time.Second, AutoSkipGrace: grace}),
	)

	levelList := strings.Split(levels, ",")
	agents := make([]*bot.Agent, players)
	for seat := 0; seat < players; seat++ {
		identity := bot.GetBotIdentity(seat)
		if seat < len(levelList) && levelList[seat] != "" {
			identity.Difficulty = levelList[seat]
		}
		agent, err := bot.NewAgent(identity, seat)
		if err != nil {
			return 0, err
		}
		agents[seat] = agent
	}
	eng.NotifyDeckReady()

	settle := func() {
		for {
			id, ok := sink.nextMove()
			if !ok {
				return
			}
			if err := eng.MoveFinished(id); err != nil && !errors.Is(err, engine.ErrNoMoveInFlight) {
				log.Warn().Err(err).Int("pawn", id).Msg("settle failed")
			}
		}
	}

	const maxIterations = 200000
	for i := 0; i < maxIterations; i++ {
		settle()
		if w := eng.Winner(); w >= 0 {
			log.Info().Int("seat", w).Int64("seed", seed).Msg("match won")
			return w, nil
		}

		if !eng.CardPicked() {
			if _, err := eng.DrawCard(); err != nil {
				// A returned dead card or pending skip clears shortly.
				time.Sleep(grace)
				continue
			}
		}

		seat := eng.CurrentSeat()
		if _, err := agents[seat].Act(eng); err != nil {
			if errors.Is(err, bot.ErrNoActions) {
				// Dead card; the grace timer skips the turn.
				time.Sleep(grace + 5*time.Millisecond)
				continue
			}
			time.Sleep(grace)
		}
	}
	return 0, errors.New("match did not finish within the iteration limit")
}
