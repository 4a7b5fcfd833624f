// Package shop lists what can be bought with super nanners.
package shop

import (
	"time"

	"banana-bot/internal/model"
)

// Listing is one entry of the shop catalog.
type Listing struct {
	Number      int // what users type after `buy`
	Name        string
	Emoji       string
	Price       int64 // super nanners
	Description string
	Unique      bool // at most one per user
	Kind        model.ItemKind
	build       func(now time.Time) model.Item
}

// Item builds the inventory item a purchase yields.
func (l Listing) Item(now time.Time) model.Item {
	return l.build(now)
}

var catalog = []Listing{
	{
		Number:      1,
		Name:        "Super Drill",
		Emoji:       "⛏️",
		Price:       15,
		Description: "Unlocks the deeper mine tiers",
		Unique:      true,
		Kind:        model.ItemSuperDrill,
		build:       func(time.Time) model.Item { return model.SuperDrill(1) },
	},
	{
		Number:      2,
		Name:        "Minion",
		Emoji:       "👾",
		Price:       10,
		Description: "Mines sludge for you, use `collect` to cash it in",
		Kind:        model.ItemMinion,
		build:       model.Minion,
	},
	{
		Number:      3,
		Name:        "Fireball Spell Tome",
		Emoji:       "🔥",
		Price:       5,
		Description: "Single use, 25-40 damage",
		Kind:        model.ItemSpellTome,
		build: func(time.Time) model.Item {
			return model.SpellTome("Fireball", model.R(25, 40))
		},
	},
	{
		Number:      4,
		Name:        "Mighty Winds Spell Tome",
		Emoji:       "🌪️",
		Price:       3,
		Description: "Single use, 5-25 damage",
		Kind:        model.ItemSpellTome,
		build: func(time.Time) model.Item {
			return model.SpellTome("Mighty Winds", model.R(5, 25))
		},
	},
	{
		Number:      5,
		Name:        "Healing Potion (25hp)",
		Emoji:       "🧪",
		Price:       2,
		Description: "Restores 25 health in battle",
		Kind:        model.ItemHealingPotion,
		build:       func(time.Time) model.Item { return model.HealingPotion(25) },
	},
	{
		Number:      6,
		Name:        "Healing Potion (10hp)",
		Emoji:       "💧",
		Price:       1,
		Description: "Restores 10 health in battle",
		Kind:        model.ItemHealingPotion,
		build:       func(time.Time) model.Item { return model.HealingPotion(10) },
	},
}

// Catalog returns every listing in display order.
func Catalog() []Listing {
	out := make([]Listing, len(catalog))
	copy(out, catalog)
	return out
}

// Get returns the listing with the given number.
func Get(number int) (Listing, bool) {
	for _, l := range catalog {
		if l.Number == number {
			return l, true
		}
	}
	return Listing{}, false
}
