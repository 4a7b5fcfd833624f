// Package allin implements the 50/50: bet every banana, double or lose it all.
package allin

import (
	"context"
	"fmt"
	"sync"

	"banana-bot/internal/game"
)

// WinChance is the probability of doubling.
const WinChance = 0.5

// FiftyFifty implements game.Game. The caller passes the user's whole
// balance as the bet.
type FiftyFifty struct {
	mu  sync.Mutex // guards rng
	rng game.RNG
}

// New creates the game. A nil rng means a freshly seeded one.
func New(rng game.RNG) *FiftyFifty {
	if rng == nil {
		rng = game.NewRand()
	}
	return &FiftyFifty{rng: rng}
}

func (g *FiftyFifty) Name() string    { return "50/50" }
func (g *FiftyFifty) Command() string { return "fiftyfifty" }
func (g *FiftyFifty) MinBet() int64   { return 1 }

// AllIn tells the caller to stake the whole balance.
func (g *FiftyFifty) AllIn() bool { return true }

func (g *FiftyFifty) Description() string {
	return "All in, 50% chance to double or lose all your bananas"
}

func (g *FiftyFifty) ValidateBet(bet int64) error {
	if bet <= 0 {
		return game.Invalid("You have no bananas to bet with!")
	}
	return nil
}

// Play flips the coin for bet.
func (g *FiftyFifty) Play(_ context.Context, _ int64, bet int64) (*game.GameResult, error) {
	if err := g.ValidateBet(bet); err != nil {
		return nil, err
	}

	g.mu.Lock()
	win := game.Chance(g.rng, WinChance)
	g.mu.Unlock()

	if win {
		return &game.GameResult{
			Payout:      bet,
			Description: fmt.Sprintf("Me no like when you win. You gain %d bananas!", bet),
		}, nil
	}
	return &game.GameResult{
		Payout:      -bet,
		Description: fmt.Sprintf("All your bananas are belong to me. You lost %d bananas", bet),
	}, nil
}
