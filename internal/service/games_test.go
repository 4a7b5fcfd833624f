package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/game"
	"banana-bot/internal/game/allin"
	"banana-bot/internal/game/gametest"
	"banana-bot/internal/game/slot"
	"banana-bot/internal/model"
	"banana-bot/internal/pkg/lock"
)

type recorder struct {
	games  map[string][]int64
	mining []string
}

func (r *recorder) InstantGamePlayed(name string, payout int64) {
	if r.games == nil {
		r.games = make(map[string][]int64)
	}
	r.games[name] = append(r.games[name], payout)
}

func (r *recorder) MiningFinished(outcome string) {
	r.mining = append(r.mining, outcome)
}

func newGames(t *testing.T, s *services, rng game.RNG, rec GameRecorder) *GameService {
	t.Helper()
	reg := game.NewRegistry()
	require.NoError(t, reg.Register(slot.New(&slot.Config{RNG: rng})))
	require.NoError(t, reg.Register(allin.New(rng)))
	return NewGameService(reg, s.accounts, lock.NewUserLock(), rec)
}

func TestFiftyFiftyBetsEverything(t *testing.T) {
	s := newServices()
	rec := &recorder{}
	g := newGames(t, s, gametest.NewRNG().WithFloats(0.1, 0.9), rec)
	ctx := context.Background()
	s.store.put(model.User{ID: 1, Bananas: 300})

	play, err := g.Play(ctx, 1, "fiftyfifty", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(300), play.Bet)
	assert.Equal(t, int64(600), play.Balance)
	assert.Equal(t, int64(600), s.store.user(1).Bananas)

	play, err = g.Play(ctx, 1, "fiftyfifty", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-600), play.Result.Payout)
	assert.Zero(t, s.store.user(1).Bananas)

	_, err = g.Play(ctx, 1, "fiftyfifty", 0)
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	assert.Equal(t, []int64{300, -600}, rec.games["fiftyfifty"])
	rows := s.store.rows(1)
	require.Len(t, rows, 2)
	assert.Equal(t, model.TxTypeFiftyFifty, rows[0].txType)
}

func TestSlotsBetChecks(t *testing.T) {
	s := newServices()
	g := newGames(t, s, gametest.NewRNG(), nil)
	ctx := context.Background()
	s.store.put(model.User{ID: 1, Bananas: 150})

	_, err := g.Play(ctx, 1, "slots", 50)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	_, err = g.Play(ctx, 1, "slots", 200)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	_, err = g.Play(ctx, 1, "poker", 200)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.Equal(t, int64(150), s.store.user(1).Bananas)
}

func TestSlotsCooldown(t *testing.T) {
	s := newServices()
	g := newGames(t, s, gametest.NewRNG(0, 0).WithFloats(0.1, 0.1), nil)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	s.store.put(model.User{ID: 1, Bananas: 1000})

	play, err := g.Play(ctx, 1, "slots", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), play.Result.Payout, "three cherries pay 10x")
	assert.Equal(t, int64(2000), s.store.user(1).Bananas)

	_, err = g.Play(ctx, 1, "slots", 100)
	assert.ErrorIs(t, err, game.ErrRuleViolation)

	now = now.Add(slot.DefaultCooldown * time.Second)
	_, err = g.Play(ctx, 1, "slots", 100)
	assert.NoError(t, err)
}
