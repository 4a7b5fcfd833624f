package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/game"
	"banana-bot/internal/game/battle"
	"banana-bot/internal/game/session"
	"banana-bot/internal/model"
	"banana-bot/internal/pkg/timer"
)

func testTiers() battle.Tiers {
	nanners := model.R(2, 2)
	return battle.Tiers{
		0: {
			Tier:              0,
			SludgeWorth:       100,
			SuperNannerChance: 1,
			Drops:             battle.DropTable{Sludge: model.R(5, 5), SuperNanners: &nanners},
			Creatures: []battle.Enemy{
				{Name: "Sludge Rat", Health: model.R(100, 100), Damage: model.R(0, 10)},
			},
		},
		1: {
			Tier:              1,
			RequiredDrillTier: 1,
			SludgeWorth:       400,
			Drops:             battle.DropTable{Sludge: model.R(1, 1)},
		},
	}
}

type miningFixture struct {
	*services
	sessions *session.Manager
	mining   *MiningService
	rec      *recorder
	done     chan MiningOutcome
}

func newMining(t *testing.T, encounter float64) *miningFixture {
	t.Helper()
	s := newServices()
	sched := timer.NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	f := &miningFixture{
		services: s,
		sessions: session.NewManager(session.Options{}),
		rec:      &recorder{},
		done:     make(chan MiningOutcome, 1),
	}
	f.mining = NewMiningService(sched, f.sessions, s.accounts, s.inventory, testTiers(), MiningOptions{
		Duration:        10 * time.Millisecond,
		EncounterChance: encounter,
		Recorder:        f.rec,
		Notify: func(_ context.Context, out MiningOutcome) {
			f.done <- out
		},
	})
	return f
}

func (f *miningFixture) wait(t *testing.T) MiningOutcome {
	t.Helper()
	select {
	case out := <-f.done:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("mining trip never finished")
		return MiningOutcome{}
	}
}

func TestMiningPaysOut(t *testing.T) {
	f := newMining(t, 0)
	f.store.put(model.User{ID: 1, Bananas: 0})

	job, err := f.mining.Start(context.Background(), 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, job.Tier)
	assert.NotEmpty(t, job.ID)
	assert.True(t, f.mining.IsMining(1))

	out := f.wait(t)
	require.NoError(t, out.Err)
	assert.Equal(t, 5, out.Sludge)
	assert.Equal(t, int64(500), out.Bananas)
	assert.Equal(t, int64(2), out.SuperNanners)
	assert.Nil(t, out.Enemy)

	u := f.store.user(1)
	assert.Equal(t, int64(500), u.Bananas)
	assert.Equal(t, int64(2), u.SuperNanners)
	assert.False(t, f.mining.IsMining(1))
	assert.Equal(t, []string{MiningPaid}, f.rec.mining)
}

func TestMiningEncounterStartsBattle(t *testing.T) {
	f := newMining(t, 1)
	f.store.put(model.User{ID: 1, Bananas: 0})

	_, err := f.mining.Start(context.Background(), 1, 0)
	require.NoError(t, err)

	out := f.wait(t)
	require.NoError(t, out.Err)
	require.NotNil(t, out.Enemy)
	assert.Equal(t, "Sludge Rat", out.Enemy.Name)

	code, ok := f.sessions.FindSessionForUser(1)
	require.True(t, ok)
	assert.Equal(t, out.SessionCode, code)
	info, err := f.sessions.Get(code)
	require.NoError(t, err)
	assert.Equal(t, game.KindMineBattle, info.Kind)
	assert.Zero(t, f.store.user(1).Bananas)
}

func TestMiningEncounterWhileBusyPaysOut(t *testing.T) {
	f := newMining(t, 1)
	f.store.put(model.User{ID: 1, Bananas: 0})
	_, err := f.sessions.Insert(1, battle.NewSludgeBattle(f.accounts, f.inventory, 1, battle.SludgeOptions{}))
	require.NoError(t, err)

	_, err = f.mining.Start(context.Background(), 1, 0)
	require.NoError(t, err)

	out := f.wait(t)
	require.NoError(t, out.Err)
	assert.Nil(t, out.Enemy)
	assert.Equal(t, int64(500), f.store.user(1).Bananas)
}

func TestMiningStartRejections(t *testing.T) {
	f := newMining(t, 0)
	ctx := context.Background()
	f.store.put(model.User{ID: 1})

	_, err := f.mining.Start(ctx, 1, 7)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	_, err = f.mining.Start(ctx, 1, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)

	require.NoError(t, f.inventory.AddItem(ctx, 1, model.SuperDrill(1)))
	f.mining.opts.Duration = time.Hour
	job, err := f.mining.Start(ctx, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Tier)

	_, err = f.mining.Start(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrAlreadyMining)

	assert.True(t, f.mining.Cancel(1))
	assert.False(t, f.mining.Cancel(1))
	assert.False(t, f.mining.IsMining(1))
	assert.Equal(t, []string{MiningCancelled}, f.rec.mining)
}
