package model

import (
	"fmt"
	"time"
)

// Range is an inclusive integer range, used for damage, health and drop rolls.
type Range struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

// R builds a Range.
func R(min, max int) Range {
	return Range{Min: min, Max: max}
}

// Valid reports whether Min <= Max.
func (r Range) Valid() bool {
	return r.Min <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// ItemKind identifies what an inventory item does.
type ItemKind string

const (
	ItemHealingPotion ItemKind = "healing_potion"
	ItemSpellTome     ItemKind = "spell_tome"
	ItemWeapon        ItemKind = "weapon"
	ItemMinion        ItemKind = "minion"
	ItemSuperDrill    ItemKind = "super_drill"
)

// Item is one inventory entry. Which fields matter depends on Kind:
// potions use Health, tomes and weapons use Damage, drills use Tier.
type Item struct {
	ID         int64    `json:"-" mapstructure:"-"`
	Kind       ItemKind `json:"kind" mapstructure:"kind"`
	Name       string   `json:"name,omitempty" mapstructure:"name"`
	Health     int      `json:"health,omitempty" mapstructure:"health"`
	Damage     Range    `json:"damage,omitempty" mapstructure:"damage"`
	WeaponType string   `json:"weapon_type,omitempty" mapstructure:"weapon_type"`
	Tier       int      `json:"tier,omitempty" mapstructure:"tier"`
	Level      int      `json:"level,omitempty" mapstructure:"level"`

	MiningStart time.Time `json:"mining_start,omitzero" mapstructure:"-"` // minions only
}

// HealingPotion returns a potion restoring the given health.
func HealingPotion(health int) Item {
	return Item{Kind: ItemHealingPotion, Name: "Healing Potion", Health: health}
}

// SpellTome returns a single-use damage tome.
func SpellTome(name string, damage Range) Item {
	return Item{Kind: ItemSpellTome, Name: name, Damage: damage}
}

// Weapon returns a reusable weapon.
func Weapon(name, weaponType string, damage Range) Item {
	return Item{Kind: ItemWeapon, Name: name, WeaponType: weaponType, Damage: damage}
}

// SuperDrill returns a drill unlocking mine tiers up to tier.
func SuperDrill(tier int) Item {
	return Item{Kind: ItemSuperDrill, Name: "Super Drill", Tier: tier}
}

// Minion returns a level 1 minion that starts mining at start.
func Minion(start time.Time) Item {
	return Item{Kind: ItemMinion, Name: "Minion", Level: 1, MiningStart: start}
}

// Minion output.
const (
	MinionSludgePerHour = 20
	MinionMaxSludge     = 600
)

// SludgeProduced returns the sludge a minion has mined since MiningStart,
// 20 per level per hour and never more than MinionMaxSludge.
func (i Item) SludgeProduced(now time.Time) int {
	if i.Kind != ItemMinion || i.MiningStart.IsZero() || now.Before(i.MiningStart) {
		return 0
	}
	hours := now.Sub(i.MiningStart).Hours()
	produced := int(float64(MinionSludgePerHour*max(i.Level, 1)) * hours)
	return min(produced, MinionMaxSludge)
}

// Label renders the item for inventory listings.
func (i Item) Label() string {
	switch i.Kind {
	case ItemHealingPotion:
		return fmt.Sprintf("%s (%dhp)", i.Name, i.Health)
	case ItemSpellTome:
		return fmt.Sprintf("%s Spell Tome (%s dmg)", i.Name, i.Damage)
	case ItemWeapon:
		return fmt.Sprintf("%s [%s] (%s dmg)", i.Name, i.WeaponType, i.Damage)
	case ItemSuperDrill:
		return fmt.Sprintf("%s (tier %d)", i.Name, i.Tier)
	case ItemMinion:
		return fmt.Sprintf("%s (lvl %d)", i.Name, i.Level)
	default:
		return i.Name
	}
}
