package allin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/game"
	"banana-bot/internal/game/gametest"
)

func TestFiftyFifty(t *testing.T) {
	tests := []struct {
		name string
		roll float64
		bet  int64
		want int64
	}{
		{"win doubles", 0.49, 300, 300},
		{"loss takes everything", 0.5, 300, -300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(gametest.NewRNG().WithFloats(tt.roll))
			res, err := g.Play(context.Background(), 1, tt.bet)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Payout)
		})
	}
}

func TestFiftyFiftyRejectsEmptyWallet(t *testing.T) {
	g := New(nil)
	_, err := g.Play(context.Background(), 1, 0)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.Equal(t, "You have no bananas to bet with!", game.UserMessage(err))
}
