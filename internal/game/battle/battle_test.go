package battle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"banana-bot/internal/game"
	"banana-bot/internal/game/gametest"
	"banana-bot/internal/model"
)

const player int64 = 7

func send(t *testing.T, v game.Variant, text string) *game.Result {
	t.Helper()
	res, err := v.HandleInput(context.Background(), game.Input{UserID: player, Text: text})
	require.NoError(t, err)
	return res
}

func golem(scaling bool) Enemy {
	return Enemy{
		Name:          "Golem",
		Health:        model.R(300, 399),
		Damage:        model.R(0, 0),
		RewardScaling: scaling,
		Drops:         DropTable{Sludge: model.R(1, 10), Items: []model.Item{model.SpellTome("Fireball", model.R(25, 40))}},
	}
}

func TestMineBattleScaledSludgeReward(t *testing.T) {
	econ := gametest.NewEconomy(map[int64]int64{player: 1000})
	inv := gametest.NewInventory(10)
	inv.Equip(player, model.Weapon("Hammer", "blunt", model.R(300, 300)))

	// health roll 350, currency branch, sludge roll 5
	b := NewMineBattle(econ, inv, player, golem(true), SludgeBananaWorth, gametest.NewRNG(50, 0, 4))
	enemy, hp := b.Health()
	require.Equal(t, 300, enemy)
	require.Equal(t, PlayerHealth, hp)

	res := send(t, b, "attack")
	require.True(t, res.Terminated)
	assert.Equal(t, "Victory!", res.Title)
	assert.Equal(t, int64(SludgeBananaWorth*(3*5)), econ.Get(player)-1000)
	assert.Equal(t, int64(3750), b.SludgeReward(5))
}

func TestMineBattleUnscaledReward(t *testing.T) {
	b := NewMineBattle(gametest.NewEconomy(nil), nil, player, golem(false), 400, gametest.NewRNG(99))
	assert.Equal(t, int64(2000), b.SludgeReward(5))
}

func TestMineBattleItemAndNannerRewards(t *testing.T) {
	t.Run("item drop", func(t *testing.T) {
		econ := gametest.NewEconomy(nil)
		inv := gametest.NewInventory(10)
		inv.Equip(player, model.Weapon("Hammer", "blunt", model.R(1000, 1000)))
		b := NewMineBattle(econ, inv, player, golem(true), SludgeBananaWorth, gametest.NewRNG(0, 1, 0))

		res := send(t, b, "attack")
		require.True(t, res.Terminated)
		items, _ := inv.Items(context.Background(), player)
		require.Len(t, items, 1)
		assert.Equal(t, "Fireball", items[0].Name)
	})

	t.Run("inventory full", func(t *testing.T) {
		inv := gametest.NewInventory(1)
		inv.Give(player, model.SuperDrill(1))
		inv.Equip(player, model.Weapon("Hammer", "blunt", model.R(1000, 1000)))
		b := NewMineBattle(gametest.NewEconomy(nil), inv, player, golem(true), SludgeBananaWorth, gametest.NewRNG(0, 1, 0))

		res := send(t, b, "attack")
		assert.Contains(t, res.Description, "inventory is full")
		items, _ := inv.Items(context.Background(), player)
		assert.Len(t, items, 1)
	})

	t.Run("super nanners", func(t *testing.T) {
		econ := gametest.NewEconomy(nil)
		inv := gametest.NewInventory(10)
		inv.Equip(player, model.Weapon("Hammer", "blunt", model.R(1000, 1000)))
		b := NewMineBattle(econ, inv, player, golem(true), SludgeBananaWorth, gametest.NewRNG(0, 2, 3))

		send(t, b, "attack")
		assert.Equal(t, int64(4), econ.Nanners(player))
		assert.Equal(t, int64(0), econ.Get(player))
	})
}

func TestMineBattleDefeatTakesFifthToHalf(t *testing.T) {
	econ := gametest.NewEconomy(map[int64]int64{player: 1000})
	enemy := Enemy{Name: "Brute", Health: model.R(100, 100), Damage: model.R(100, 100)}
	// fists roll 0, penalty roll 200+100
	b := NewMineBattle(econ, nil, player, enemy, SludgeBananaWorth, gametest.NewRNG(0, 100))

	res := send(t, b, "attack")
	require.True(t, res.Terminated)
	assert.Equal(t, "Defeat!", res.Title)
	assert.Equal(t, int64(700), econ.Get(player))
}

func TestMineBattleHealingIsUncapped(t *testing.T) {
	inv := gametest.NewInventory(10)
	inv.Give(player, model.HealingPotion(50), model.Weapon("Sword", "blade", model.R(1, 2)))
	b := NewMineBattle(gametest.NewEconomy(nil), inv, player, golem(true), SludgeBananaWorth, gametest.NewRNG(0))

	send(t, b, "item 1")
	_, hp := b.Health()
	assert.Equal(t, 150, hp)

	_, err := b.HandleInput(context.Background(), game.Input{UserID: player, Text: "item 1"})
	assert.ErrorIs(t, err, game.ErrRuleViolation, "weapons must be equipped")

	_, err = b.HandleInput(context.Background(), game.Input{UserID: player, Text: "item 5"})
	assert.ErrorIs(t, err, game.ErrInvalidInput)
}

func TestMineBattlePrayOnce(t *testing.T) {
	b := NewMineBattle(gametest.NewEconomy(nil), nil, player, golem(true), SludgeBananaWorth, gametest.NewRNG(0))

	res := send(t, b, "pray")
	assert.Contains(t, res.Description, "100hp")
	_, hp := b.Health()
	assert.Equal(t, PrayHealth, hp)

	res = send(t, b, "pray")
	assert.Contains(t, res.Description, "already prayed")
	_, hp = b.Health()
	assert.Equal(t, PrayHealth, hp)
}

func TestMineBattleRun(t *testing.T) {
	econ := gametest.NewEconomy(map[int64]int64{player: 500})
	b := NewMineBattle(econ, nil, player, golem(true), SludgeBananaWorth, gametest.NewRNG(0, 5, 0))

	res := send(t, b, "run")
	assert.False(t, res.Terminated, "1 in 100 chance failed")

	res = send(t, b, "run")
	assert.True(t, res.Terminated)
	assert.Equal(t, "Flee!", res.Title)
	assert.Equal(t, int64(500), econ.Get(player))
}

func TestMineBattleRejects(t *testing.T) {
	b := NewMineBattle(gametest.NewEconomy(nil), nil, player, golem(true), SludgeBananaWorth, nil)

	_, err := b.HandleInput(context.Background(), game.Input{UserID: player + 1, Text: "attack"})
	assert.ErrorIs(t, err, game.ErrRuleViolation)

	_, err = b.HandleInput(context.Background(), game.Input{UserID: player, Text: "dance"})
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	res := send(t, b, "surrender")
	assert.True(t, res.Terminated)
}

// Property: enemy health is a positive multiple of 100 inside the rolled range.
func TestMineBattleHealthRounding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(100, 5000).Draw(t, "min")
		hi := rapid.IntRange(lo, lo+5000).Draw(t, "max")
		seed := rapid.IntRange(0, hi-lo).Draw(t, "roll")

		b := NewMineBattle(nil, nil, player, Enemy{Health: model.R(lo, hi)}, 1, gametest.NewRNG(seed))
		health, _ := b.Health()
		if health%100 != 0 || health < 100 || health > hi {
			t.Fatalf("health %d out of shape for range %d-%d", health, lo, hi)
		}
	})
}

func TestSludgeBattleSpawn(t *testing.T) {
	s := NewSludgeBattle(nil, nil, player, SludgeOptions{RNG: gametest.NewRNG(4)})
	boss, hp := s.Health()
	assert.Equal(t, 500, boss)
	assert.Equal(t, PlayerHealth, hp)
	assert.Equal(t, "large_sludge.jpeg", s.thumbnail)

	s = NewSludgeBattle(nil, nil, player, SludgeOptions{RNG: gametest.NewRNG(1)})
	assert.Equal(t, "small_sludge.jpeg", s.thumbnail)
}

func TestRewardCeiling(t *testing.T) {
	for health, want := range map[int]int64{500: 100, 400: 75, 300: 50, 200: 25, 100: 10, 700: 10} {
		assert.Equal(t, want, RewardCeiling(health), health)
	}
}

func TestSludgeBattleWin(t *testing.T) {
	econ := gametest.NewEconomy(nil)
	s := NewSludgeBattle(econ, nil, player, SludgeOptions{
		BossHealth:   model.R(1, 1),
		PlayerDamage: model.R(100, 100),
		RNG:          gametest.NewRNG(3),
	})

	res := send(t, s, "attack")
	require.True(t, res.Terminated)
	assert.Equal(t, int64(5000), econ.Get(player))
}

func TestSludgeBattleHealingCapped(t *testing.T) {
	inv := gametest.NewInventory(10)
	inv.Give(player, model.HealingPotion(50), model.SpellTome("Fireball", model.R(25, 40)))
	s := NewSludgeBattle(gametest.NewEconomy(nil), inv, player, SludgeOptions{
		BossHealth:   model.R(5, 5),
		PlayerDamage: model.R(1, 1),
		BossDamage:   model.R(30, 30),
		RNG:          gametest.NewRNG(),
	})

	send(t, s, "attack")
	_, hp := s.Health()
	require.Equal(t, 70, hp)

	res := send(t, s, "item 1")
	assert.Contains(t, res.Description, "30hp")
	_, hp = s.Health()
	assert.Equal(t, PlayerHealth, hp)

	_, err := s.HandleInput(context.Background(), game.Input{UserID: player, Text: "item 1"})
	assert.ErrorIs(t, err, game.ErrRuleViolation)
}

func TestSludgeBattleDefeatClampedToBalance(t *testing.T) {
	econ := gametest.NewEconomy(map[int64]int64{player: 50})
	s := NewSludgeBattle(econ, nil, player, SludgeOptions{
		BossHealth:   model.R(1, 1),
		PlayerDamage: model.R(1, 1),
		BossDamage:   model.R(100, 100),
		RNG:          gametest.NewRNG(19),
	})

	res := send(t, s, "attack")
	require.True(t, res.Terminated)
	assert.Equal(t, int64(0), econ.Get(player))
	assert.Equal(t, "50🍌", res.Fields[0].Value)
}

func TestSludgeBattleSurrenderAndExpire(t *testing.T) {
	econ := gametest.NewEconomy(map[int64]int64{player: 10000})
	s := NewSludgeBattle(econ, nil, player, SludgeOptions{RNG: gametest.NewRNG(0, 9)})
	res := send(t, s, "surrender")
	assert.True(t, res.Terminated)
	assert.Equal(t, int64(9000), econ.Get(player))

	s = NewSludgeBattle(econ, nil, player, SludgeOptions{})
	res, err := s.Expire(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, int64(9000), econ.Get(player))
}

func TestLoadTiers(t *testing.T) {
	dir := t.TempDir()
	tier := `{
  "required_super_drill_tier": 3,
  "sludge_worth": 900,
  "super_nanner_chance": 0.2,
  "drop_table": {"sludge": {"min": 4, "max": 9}, "super_nanners": {"min": 1, "max": 2}},
  "creatures": [{
    "name": "Deep Thing",
    "health": {"min": 800, "max": 900},
    "damage": {"min": 5, "max": 30},
    "reward_scaling": true,
    "thumbnail": "deep.jpeg",
    "drops": {"sludge": {"min": 1, "max": 2}, "items": [{"kind": "spell_tome", "name": "Fireball", "damage": {"min": 25, "max": 40}}]}
  }]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.json"), []byte(tier), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	tiers, err := LoadTiers(dir)
	require.NoError(t, err)
	require.Equal(t, []int{3}, tiers.Numbers())

	got, ok := tiers.Get(3)
	require.True(t, ok)
	assert.Equal(t, 3, got.Tier)
	assert.Equal(t, int64(900), got.SludgeWorth)
	assert.InDelta(t, 0.2, got.SuperNannerChance, 1e-9)
	assert.Equal(t, model.R(4, 9), got.Drops.Sludge)
	require.NotNil(t, got.Drops.SuperNanners)
	assert.Equal(t, model.R(1, 2), *got.Drops.SuperNanners)
	require.Len(t, got.Creatures, 1)
	c := got.Creatures[0]
	assert.Equal(t, "Deep Thing", c.Name)
	assert.True(t, c.RewardScaling)
	require.Len(t, c.Drops.Items, 1)
	assert.Equal(t, model.ItemSpellTome, c.Drops.Items[0].Kind)
	assert.Equal(t, model.R(25, 40), c.Drops.Items[0].Damage)

	_, ok = tiers.Deepest(2)
	assert.False(t, ok)
	deepest, ok := tiers.Deepest(5)
	require.True(t, ok)
	assert.Equal(t, 3, deepest.Tier)
}

func TestLoadTiersFallsBackAndValidates(t *testing.T) {
	tiers, err := LoadTiers(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, tiers.Numbers())

	deepest, ok := tiers.Deepest(1)
	require.True(t, ok)
	assert.Equal(t, 1, deepest.Tier)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0.json"), []byte(`{"sludge_worth": 0}`), 0o600))
	_, err = LoadTiers(dir)
	assert.Error(t, err)
}

func TestDefaultTiersAreValid(t *testing.T) {
	for n, tier := range DefaultTiers() {
		assert.NoError(t, tier.validate(), n)
		assert.Equal(t, n, tier.Tier)
	}
	rng := gametest.NewRNG(0)
	tier, _ := DefaultTiers().Get(0)
	enemy, ok := tier.RandomEnemy(rng)
	require.True(t, ok)
	assert.Equal(t, "Sludge Rat", enemy.Name)
	assert.Equal(t, model.HealingPotion(10), DropTable{}.RandomItem(rng))
}
