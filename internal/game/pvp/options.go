package pvp

import (
	"strconv"
	"strings"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

// Defaults for a new arena.
const (
	DefaultMaxPlayers = 2
	DefaultBaseHealth = 100
	DefaultMaxHealth  = 100
)

// DefaultDamage is the bare-handed damage roll.
var DefaultDamage = model.R(0, 10)

// Options holds the arena modifiers chosen by the host.
type Options struct {
	NoItems    bool
	MaxPlayers int
	BaseHealth int
	MaxHealth  int
	Damage     model.Range
	RNG        game.RNG
}

func (o Options) withDefaults() Options {
	if o.MaxPlayers < 2 {
		o.MaxPlayers = DefaultMaxPlayers
	}
	if o.BaseHealth <= 0 {
		o.BaseHealth = DefaultBaseHealth
	}
	if o.MaxHealth <= 0 {
		o.MaxHealth = DefaultMaxHealth
	}
	if o.BaseHealth > o.MaxHealth {
		o.MaxHealth = o.BaseHealth
	}
	if o.Damage == (model.Range{}) || !o.Damage.Valid() {
		o.Damage = DefaultDamage
	}
	if o.RNG == nil {
		o.RNG = game.NewRand()
	}
	return o
}

// ParseFlags reads arena modifiers typed after the pvp command:
// noitems, players=N, health=N, maxhealth=N, damage=MIN-MAX.
func ParseFlags(args []string) (Options, error) {
	var o Options
	for _, arg := range args {
		key, val, _ := strings.Cut(strings.ToLower(arg), "=")
		switch key {
		case "noitems", "noitem":
			o.NoItems = true
		case "players":
			n, err := strconv.Atoi(val)
			if err != nil || n < 2 {
				return o, game.Invalid("players must be a number of at least 2")
			}
			o.MaxPlayers = n
		case "health":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return o, game.Invalid("health must be a positive number")
			}
			o.BaseHealth = n
		case "maxhealth":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return o, game.Invalid("maxhealth must be a positive number")
			}
			o.MaxHealth = n
		case "damage":
			lo, hi, ok := strings.Cut(val, "-")
			min, err1 := strconv.Atoi(lo)
			max, err2 := strconv.Atoi(hi)
			if !ok || err1 != nil || err2 != nil || min < 0 || min > max {
				return o, game.Invalid("damage must look like damage=5-15")
			}
			o.Damage = model.R(min, max)
		default:
			return o, game.Invalid("Unknown arena option %q", arg)
		}
	}
	return o, nil
}
