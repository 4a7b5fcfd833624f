// Package slot implements the three-reel slot machine.
package slot

import (
	"context"
	"fmt"
	"sync"

	"banana-bot/internal/game"
)

const (
	// DefaultMinBet is the smallest accepted bet.
	DefaultMinBet = 100

	// DefaultWinChance is the probability that all three reels match.
	DefaultWinChance = 0.2

	// DefaultCooldown is the cooldown between spins in seconds.
	DefaultCooldown = 5
)

// Symbol is one reel face. Rarer symbols pay more.
type Symbol int

const (
	Cherry Symbol = iota
	Seven
	Lemon
	Orange
	Grapes
	Bell
	Bar
	Diamond
)

var symbols = []Symbol{Cherry, Seven, Lemon, Orange, Grapes, Bell, Bar, Diamond}

// Weight is how many faces of a reel show the symbol.
func (s Symbol) Weight() int {
	return int(s) + 1
}

// Multiplier is the winnings per banana bet when all three reels match.
func (s Symbol) Multiplier() float64 {
	switch s {
	case Cherry:
		return 10
	case Seven:
		return 3
	case Lemon:
		return 2.5
	case Orange:
		return 2
	case Grapes:
		return 1.75
	case Bell:
		return 1.5
	case Bar:
		return 1
	default:
		return 0.5
	}
}

func (s Symbol) String() string {
	switch s {
	case Cherry:
		return "🍒"
	case Seven:
		return "7️⃣"
	case Lemon:
		return "🍋"
	case Orange:
		return "🍊"
	case Grapes:
		return "🍇"
	case Bell:
		return "🔔"
	case Bar:
		return "🧱"
	default:
		return "💎"
	}
}

// Config holds configuration for the slot game.
type Config struct {
	MinBet    int64
	WinChance float64
	Cooldown  int
	RNG       game.RNG
}

// SlotGame implements game.Game.
type SlotGame struct {
	minBet    int64
	winChance float64
	cooldown  int

	mu  sync.Mutex // guards rng
	rng game.RNG
}

// New creates a new SlotGame with the given configuration.
func New(cfg *Config) *SlotGame {
	s := &SlotGame{
		minBet:    DefaultMinBet,
		winChance: DefaultWinChance,
		cooldown:  DefaultCooldown,
	}
	if cfg != nil {
		if cfg.MinBet > 0 {
			s.minBet = cfg.MinBet
		}
		if cfg.WinChance > 0 {
			s.winChance = cfg.WinChance
		}
		if cfg.Cooldown > 0 {
			s.cooldown = cfg.Cooldown
		}
		s.rng = cfg.RNG
	}
	if s.rng == nil {
		s.rng = game.NewRand()
	}
	return s
}

func (s *SlotGame) Name() string {
	return "Slots"
}

func (s *SlotGame) Command() string {
	return "slots"
}

func (s *SlotGame) Description() string {
	return "Spin three reels. Three of a kind pays by symbol, cherries pay 10x."
}

func (s *SlotGame) MinBet() int64 {
	return s.minBet
}

// Cooldown returns the cooldown duration in seconds.
func (s *SlotGame) Cooldown() int {
	return s.cooldown
}

// ValidateBet checks the bet against the minimum.
func (s *SlotGame) ValidateBet(bet int64) error {
	if bet < s.minBet {
		return game.Invalid("You must bet at least %d bananas", s.minBet)
	}
	return nil
}

// Play spins the reels. A win pays bet times the symbol multiplier on top
// of the stake; a loss takes the stake.
func (s *SlotGame) Play(_ context.Context, _ int64, bet int64) (*game.GameResult, error) {
	if err := s.ValidateBet(bet); err != nil {
		return nil, err
	}

	reels := s.spin()
	payout := CalculatePayout(reels, bet)

	display := fmt.Sprintf("%s | %s | %s", reels[0], reels[1], reels[2])
	var description string
	if payout > 0 {
		description = fmt.Sprintf("%s\nYou Win! %d bananas!", display, payout)
	} else {
		description = fmt.Sprintf("%s\nYou Lost! %d bananas", display, bet)
	}

	return &game.GameResult{
		Payout:      payout,
		Description: description,
		Details: map[string]any{
			"reels": reels,
			"bet":   bet,
		},
	}, nil
}

func (s *SlotGame) spin() [3]Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()

	if game.Chance(s.rng, s.winChance) {
		sym := Random(s.rng)
		return [3]Symbol{sym, sym, sym}
	}
	for {
		reels := [3]Symbol{Random(s.rng), Random(s.rng), Random(s.rng)}
		if !(reels[0] == reels[1] && reels[1] == reels[2]) {
			return reels
		}
	}
}

// Random draws a symbol weighted by Weight.
func Random(rng game.RNG) Symbol {
	total := 0
	for _, sym := range symbols {
		total += sym.Weight()
	}
	r := rng.IntN(total)
	for _, sym := range symbols {
		r -= sym.Weight()
		if r < 0 {
			return sym
		}
	}
	return Diamond
}

// CalculatePayout returns the net result of a spin: bet times the
// multiplier for three of a kind, otherwise -bet.
func CalculatePayout(reels [3]Symbol, bet int64) int64 {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		return int64(float64(bet) * reels[0].Multiplier())
	}
	return -bet
}
