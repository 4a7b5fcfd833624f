package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

func TestAddItemRespectsCapacity(t *testing.T) {
	s := newServices()
	ctx := context.Background()

	for range 3 {
		require.NoError(t, s.inventory.AddItem(ctx, 1, model.HealingPotion(10)))
	}
	assert.ErrorIs(t, s.inventory.AddItem(ctx, 1, model.HealingPotion(10)), game.ErrInventoryFull)
}

func TestEquipUnequip(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	s.store.put(model.User{ID: 1})

	require.NoError(t, s.inventory.AddItem(ctx, 1, model.HealingPotion(10)))
	require.NoError(t, s.inventory.AddItem(ctx, 1, model.Weapon("Sword", "sword", model.R(5, 10))))

	_, err := s.inventory.Equip(ctx, 1, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)
	_, err = s.inventory.Equip(ctx, 1, 3)
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	_, err = s.inventory.Unequip(ctx, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)

	sword, err := s.inventory.Equip(ctx, 1, 2)
	require.NoError(t, err)
	eq, err := s.inventory.Equipped(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, eq)
	assert.Equal(t, sword.ID, eq.ID)

	dmg, err := game.EquippedDamage(ctx, s.inventory, 1, model.R(0, 10))
	require.NoError(t, err)
	assert.Equal(t, model.R(5, 10), dmg)

	old, err := s.inventory.Unequip(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sword", old.Name)
	eq, err = s.inventory.Equipped(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, eq)
}

func TestDiscard(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	s.store.put(model.User{ID: 1})

	require.NoError(t, s.inventory.AddItem(ctx, 1, model.HealingPotion(10)))
	require.NoError(t, s.inventory.AddItem(ctx, 1, model.HealingPotion(25)))

	_, err := s.inventory.Discard(ctx, 1, 0)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	_, err = s.inventory.Discard(ctx, 1, 5)
	assert.ErrorIs(t, err, game.ErrItemNotFound)

	item, err := s.inventory.Discard(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Health)

	items, err := s.inventory.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 25, items[0].Health)

	assert.ErrorIs(t, s.inventory.RemoveItem(ctx, 1, 1), game.ErrItemNotFound)
	assert.NoError(t, s.inventory.RemoveItem(ctx, 1, 0))
}

func TestDrillTier(t *testing.T) {
	s := newServices()
	ctx := context.Background()

	tier, err := s.inventory.DrillTier(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, tier)

	require.NoError(t, s.inventory.AddItem(ctx, 1, model.SuperDrill(1)))
	require.NoError(t, s.inventory.AddItem(ctx, 1, model.SuperDrill(2)))
	tier, err = s.inventory.DrillTier(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, tier)

	has, err := s.inventory.HasSuperDrill(ctx, 1)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCollectMinions(t *testing.T) {
	s := newServices()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.inventory.now = func() time.Time { return now }
	s.store.put(model.User{ID: 1})

	_, _, err := s.inventory.CollectMinions(ctx, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)

	require.NoError(t, s.inventory.AddItem(ctx, 1, model.Minion(now.Add(-2*time.Hour))))
	require.NoError(t, s.inventory.AddItem(ctx, 1, model.Minion(now.Add(-100*time.Hour))))

	sludge, bananas, err := s.inventory.CollectMinions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 40+600, sludge)
	assert.Equal(t, int64(640*MinionSludgeWorth), bananas)
	assert.Equal(t, bananas, s.store.user(1).Bananas)

	sludge, _, err = s.inventory.CollectMinions(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, sludge, "clocks restart on collect")
}
