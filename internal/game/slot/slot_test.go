package slot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"banana-bot/internal/game"
	"banana-bot/internal/game/gametest"
)

func TestRandomIsWeighted(t *testing.T) {
	tests := []struct {
		roll int
		want Symbol
	}{
		{0, Cherry},
		{1, Seven},
		{2, Seven},
		{3, Lemon},
		{27, Bar},
		{28, Diamond},
		{35, Diamond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Random(gametest.NewRNG(tt.roll)), "roll %d", tt.roll)
	}
}

func TestCalculatePayout(t *testing.T) {
	tests := []struct {
		name  string
		reels [3]Symbol
		bet   int64
		want  int64
	}{
		{"cherries", [3]Symbol{Cherry, Cherry, Cherry}, 100, 1000},
		{"grapes", [3]Symbol{Grapes, Grapes, Grapes}, 100, 175},
		{"diamonds", [3]Symbol{Diamond, Diamond, Diamond}, 100, 50},
		{"two of a kind loses", [3]Symbol{Bell, Bell, Bar}, 100, -100},
		{"no match", [3]Symbol{Cherry, Seven, Lemon}, 250, -250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePayout(tt.reels, tt.bet))
		})
	}
}

func TestPlayWin(t *testing.T) {
	rng := gametest.NewRNG(0).WithFloats(0.1)
	g := New(&Config{RNG: rng})

	res, err := g.Play(context.Background(), 1, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.Payout)
	assert.Contains(t, res.Description, "You Win!")
}

func TestPlayLossNeverShowsThreeOfAKind(t *testing.T) {
	// first losing spin lands three sevens and must be re-rolled
	rng := gametest.NewRNG(1, 1, 1, 0, 1, 3).WithFloats(0.9)
	g := New(&Config{RNG: rng})

	res, err := g.Play(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), res.Payout)
	assert.Equal(t, [3]Symbol{Cherry, Seven, Lemon}, res.Details["reels"])
}

func TestValidateBet(t *testing.T) {
	g := New(nil)
	assert.Equal(t, int64(DefaultMinBet), g.MinBet())
	err := g.ValidateBet(99)
	assert.True(t, errors.Is(err, game.ErrInvalidInput))
	assert.NoError(t, g.ValidateBet(100))

	_, err = g.Play(context.Background(), 1, 5)
	assert.Error(t, err)
}

func TestPayoutIsWinOrStake(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := New(nil)
		bet := rapid.Int64Range(100, 1_000_000).Draw(t, "bet")
		res, err := g.Play(context.Background(), 1, bet)
		if err != nil {
			t.Fatal(err)
		}
		reels := res.Details["reels"].([3]Symbol)
		if res.Payout < 0 {
			if res.Payout != -bet {
				t.Fatalf("loss %d for bet %d", res.Payout, bet)
			}
			if reels[0] == reels[1] && reels[1] == reels[2] {
				t.Fatalf("losing spin shows %v", reels)
			}
		} else if res.Payout != int64(float64(bet)*reels[0].Multiplier()) {
			t.Fatalf("win %d for %v", res.Payout, reels)
		}
	})
}
