package shop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/model"
)

func TestCatalog(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		number int
		price  int64
		want   model.Item
	}{
		{1, 15, model.SuperDrill(1)},
		{2, 10, model.Minion(now)},
		{3, 5, model.SpellTome("Fireball", model.R(25, 40))},
		{4, 3, model.SpellTome("Mighty Winds", model.R(5, 25))},
		{5, 2, model.HealingPotion(25)},
		{6, 1, model.HealingPotion(10)},
	}
	for _, tt := range tests {
		l, ok := Get(tt.number)
		require.True(t, ok, "listing %d", tt.number)
		assert.Equal(t, tt.price, l.Price)
		assert.Equal(t, tt.want, l.Item(now))
		assert.Equal(t, tt.want.Kind, l.Kind)
	}

	_, ok := Get(7)
	assert.False(t, ok)
	assert.Len(t, Catalog(), 6)
}

func TestOnlyDrillIsUnique(t *testing.T) {
	for _, l := range Catalog() {
		assert.Equal(t, l.Kind == model.ItemSuperDrill, l.Unique, l.Name)
	}
}

func TestBuildShopPanel(t *testing.T) {
	markup := BuildShopPanel()
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "shop_buy:1", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "shop_buy:6", markup.InlineKeyboard[2][1].Unique)
}

func TestFormatInventory(t *testing.T) {
	assert.Equal(t, "🎒 Your inventory is empty.", FormatInventory(nil, nil, 10))

	sword := model.Weapon("Sword", "sword", model.R(5, 10))
	sword.ID = 42
	potion := model.HealingPotion(25)
	potion.ID = 43
	equipped := int64(42)

	got := FormatInventory([]model.Item{sword, potion}, &equipped, 10)
	assert.Equal(t, "🎒 Inventory (2/10)\n1. Sword [sword] (5-10 dmg) (equipped)\n2. Healing Potion (25hp)", got)
}
