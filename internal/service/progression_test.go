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

func TestLevelUpCost(t *testing.T) {
	assert.Equal(t, int64(225), LevelUpCost(1, 1))
	assert.Equal(t, int64(150+10*75*3), LevelUpCost(10, 3))
}

func TestLevelUp(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	s.store.put(model.User{ID: 1, Bananas: 300, Level: 1, Prestige: 1})

	u, cost, err := s.progression.LevelUp(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(225), cost)
	assert.Equal(t, 2, u.Level)
	assert.Equal(t, int64(75), u.Bananas)

	_, _, err = s.progression.LevelUp(ctx, 1)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	assert.Equal(t, 2, s.store.user(1).Level)

	rows := s.store.rows(1)
	require.Len(t, rows, 1)
	assert.Equal(t, ledgerRow{1, -225, model.CurrencyBananas, model.TxTypeLevelUp}, rows[0])
}

func TestLevelUpAtMax(t *testing.T) {
	s := newServices()
	s.store.put(model.User{ID: 1, Bananas: 1_000_000, Level: MaxLevel, Prestige: 1})

	_, _, err := s.progression.LevelUp(context.Background(), 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)
}

func TestPrestige(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	s.store.put(model.User{ID: 1, Level: 99, Prestige: 1})
	s.store.put(model.User{ID: 2, Level: MaxLevel, Prestige: 3})
	s.store.put(model.User{ID: 3, Level: MaxLevel, Prestige: MaxPrestige})

	_, err := s.progression.Prestige(ctx, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)

	u, err := s.progression.Prestige(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 4, u.Prestige)

	_, err = s.progression.Prestige(ctx, 3)
	assert.ErrorIs(t, err, game.ErrRuleViolation)
}

func TestAscend(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	s.store.put(model.User{ID: 1, Bananas: 2_000_000, Level: 50, Prestige: 9})
	s.store.put(model.User{ID: 2, Bananas: 999_999, Level: 50, Prestige: MaxPrestige})
	s.store.put(model.User{ID: 3, Bananas: 1_500_000, Level: 50, Prestige: MaxPrestige, Ascension: 2})

	_, err := s.progression.Ascend(ctx, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)
	_, err = s.progression.Ascend(ctx, 2)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)

	u, err := s.progression.Ascend(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, u.Ascension)
	assert.Equal(t, 1, u.Prestige)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, int64(500_000), u.Bananas)
}

func TestLevelUpNeverOverdraws(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newServices()
		level := rapid.IntRange(1, MaxLevel).Draw(t, "level")
		prestige := rapid.IntRange(1, MaxPrestige).Draw(t, "prestige")
		bananas := rapid.Int64Range(0, 200_000).Draw(t, "bananas")
		s.store.put(model.User{ID: 1, Bananas: bananas, Level: level, Prestige: prestige})

		_, cost, err := s.progression.LevelUp(context.Background(), 1)
		u := s.store.user(1)
		if err != nil {
			if u.Level != level || u.Bananas != bananas {
				t.Fatalf("failed level up changed the user: %+v", u)
			}
			return
		}
		if u.Level != level+1 || u.Bananas != bananas-cost || u.Bananas < 0 {
			t.Fatalf("level %d -> %d, bananas %d -> %d, cost %d", level, u.Level, bananas, u.Bananas, cost)
		}
	})
}
