package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

func TestPay(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	s.store.put(model.User{ID: 1, Bananas: 100})
	s.store.put(model.User{ID: 2, Bananas: 5})

	from, to, err := s.transfers.Pay(ctx, 1, 2, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(60), from.Bananas)
	assert.Equal(t, int64(45), to.Bananas)

	_, _, err = s.transfers.Pay(ctx, 1, 2, 61)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	_, _, err = s.transfers.Pay(ctx, 1, 1, 10)
	assert.ErrorIs(t, err, game.ErrRuleViolation)
	_, _, err = s.transfers.Pay(ctx, 1, 2, 0)
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	assert.Equal(t, int64(60), s.store.user(1).Bananas)
	assert.Equal(t, int64(45), s.store.user(2).Bananas)
}

func TestPayCreatesReceiver(t *testing.T) {
	s := newServices()
	s.store.put(model.User{ID: 1, Bananas: 100})

	_, to, err := s.transfers.Pay(context.Background(), 1, 9, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(110), to.Bananas)
}

func TestPayConservesBananas(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newServices()
		a := rapid.Int64Range(0, 1000).Draw(t, "a")
		b := rapid.Int64Range(0, 1000).Draw(t, "b")
		s.store.put(model.User{ID: 1, Bananas: a})
		s.store.put(model.User{ID: 2, Bananas: b})

		for _, amt := range rapid.SliceOfN(rapid.Int64Range(-10, 500), 1, 10).Draw(t, "amounts") {
			_, _, _ = s.transfers.Pay(context.Background(), 1, 2, amt)
			_, _, _ = s.transfers.Pay(context.Background(), 2, 1, amt/2)
		}

		x, y := s.store.user(1).Bananas, s.store.user(2).Bananas
		if x < 0 || y < 0 || x+y != a+b {
			t.Fatalf("balances %d + %d, want total %d", x, y, a+b)
		}
	})
}
