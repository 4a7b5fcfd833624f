package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/pkg/lock"
)

// GameRecorder is told about every settled instant game.
type GameRecorder interface {
	InstantGamePlayed(name string, payout int64)
}

// AllInGame marks games that always stake the player's whole balance.
type AllInGame interface {
	AllIn() bool
}

type cooldowner interface {
	Cooldown() int
}

// InstantPlay is a settled instant game.
type InstantPlay struct {
	Game    game.Game
	Bet     int64
	Result  *game.GameResult
	Balance int64 // after settlement
}

// GameService plays the registry's instant games and settles them.
type GameService struct {
	registry *game.Registry
	accounts *AccountService
	userLock *lock.UserLock
	recorder GameRecorder
	now      func() time.Time

	mu       sync.Mutex
	lastPlay map[string]time.Time // command/user -> last play
}

// NewGameService creates a new GameService instance. recorder may be nil.
func NewGameService(registry *game.Registry, accounts *AccountService, userLock *lock.UserLock, recorder GameRecorder) *GameService {
	return &GameService{
		registry: registry,
		accounts: accounts,
		userLock: userLock,
		recorder: recorder,
		now:      time.Now,
		lastPlay: make(map[string]time.Time),
	}
}

// Commands returns the instant game commands.
func (s *GameService) Commands() []string {
	return s.registry.Commands()
}

// Lookup returns the game bound to command.
func (s *GameService) Lookup(command string) (game.Game, bool) {
	return s.registry.Get(command)
}

// Play runs one round of the game bound to command. bet is ignored by
// all-in games.
func (s *GameService) Play(ctx context.Context, userID int64, command string, bet int64) (*InstantPlay, error) {
	g, ok := s.registry.Get(command)
	if !ok {
		return nil, game.Invalid("Unknown game `%s`!", command)
	}

	if err := s.userLock.LockContext(ctx, userID); err != nil {
		return nil, err
	}
	defer s.userLock.Unlock(userID)

	if wait := s.cooldownLeft(g, userID); wait > 0 {
		return nil, game.Violation("Slow down! Try again in %d seconds.", int(wait.Seconds()+0.999))
	}

	balance, err := s.accounts.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a, ok := g.(AllInGame); ok && a.AllIn() {
		bet = balance
	}
	if err := g.ValidateBet(bet); err != nil {
		return nil, err
	}
	if bet > balance {
		return nil, game.Broke("You too poor!")
	}

	res, err := g.Play(ctx, userID, bet)
	if err != nil {
		return nil, fmt.Errorf("failed to play %s: %w", command, err)
	}

	txType := txTypeForGame(command)
	switch {
	case res.Payout > 0:
		err = s.accounts.Credit(ctx, userID, res.Payout, txType)
	case res.Payout < 0:
		err = s.accounts.Debit(ctx, userID, -res.Payout, txType)
	}
	if err != nil {
		return nil, err
	}
	s.markPlayed(g, userID)

	if s.recorder != nil {
		s.recorder.InstantGamePlayed(command, res.Payout)
	}
	log.Info().
		Int64("user_id", userID).
		Str("game", command).
		Int64("bet", bet).
		Int64("payout", res.Payout).
		Msg("Instant game played")

	return &InstantPlay{Game: g, Bet: bet, Result: res, Balance: balance + res.Payout}, nil
}

func (s *GameService) cooldownLeft(g game.Game, userID int64) time.Duration {
	c, ok := g.(cooldowner)
	if !ok || c.Cooldown() <= 0 {
		return 0
	}
	s.mu.Lock()
	last, played := s.lastPlay[cooldownKey(g, userID)]
	s.mu.Unlock()
	if !played {
		return 0
	}
	return time.Duration(c.Cooldown())*time.Second - s.now().Sub(last)
}

func (s *GameService) markPlayed(g game.Game, userID int64) {
	if _, ok := g.(cooldowner); !ok {
		return
	}
	s.mu.Lock()
	s.lastPlay[cooldownKey(g, userID)] = s.now()
	s.mu.Unlock()
}

func cooldownKey(g game.Game, userID int64) string {
	return fmt.Sprintf("%s/%d", g.Command(), userID)
}

func txTypeForGame(command string) string {
	switch command {
	case "slots":
		return model.TxTypeSlots
	case "fiftyfifty":
		return model.TxTypeFiftyFifty
	default:
		return command
	}
}
