package battle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

// SludgeBananaWorth is how many bananas one sludge is worth outside any tier.
const SludgeBananaWorth = 250

// DropTable is what a creature or a mining trip can yield.
type DropTable struct {
	Sludge       model.Range  `mapstructure:"sludge"`
	SuperNanners *model.Range `mapstructure:"super_nanners"`
	Items        []model.Item `mapstructure:"items"`
}

// RandomItem picks an item from the table, a small healing potion when
// the table lists none.
func (d DropTable) RandomItem(rng game.RNG) model.Item {
	if len(d.Items) == 0 {
		return model.HealingPotion(10)
	}
	return d.Items[rng.IntN(len(d.Items))]
}

// Enemy is a creature that can be met while mining.
type Enemy struct {
	Name          string      `mapstructure:"name"`
	Health        model.Range `mapstructure:"health"`
	Damage        model.Range `mapstructure:"damage"`
	RewardScaling bool        `mapstructure:"reward_scaling"`
	Thumbnail     string      `mapstructure:"thumbnail"`
	Drops         DropTable   `mapstructure:"drops"`
}

// MineTier describes one depth of the mine.
type MineTier struct {
	Tier              int       `mapstructure:"-"`
	RequiredDrillTier int       `mapstructure:"required_super_drill_tier"`
	SludgeWorth       int64     `mapstructure:"sludge_worth"`
	SuperNannerChance float64   `mapstructure:"super_nanner_chance"`
	Creatures         []Enemy   `mapstructure:"creatures"`
	Drops             DropTable `mapstructure:"drop_table"`
}

// RandomEnemy picks a creature living in the tier.
func (t *MineTier) RandomEnemy(rng game.RNG) (Enemy, bool) {
	if len(t.Creatures) == 0 {
		return Enemy{}, false
	}
	return t.Creatures[rng.IntN(len(t.Creatures))], true
}

// Tiers indexes mine tiers by number.
type Tiers map[int]*MineTier

// Get returns a tier.
func (t Tiers) Get(n int) (*MineTier, bool) {
	tier, ok := t[n]
	return tier, ok
}

// Numbers returns the tier numbers in ascending order.
func (t Tiers) Numbers() []int {
	nums := make([]int, 0, len(t))
	for n := range t {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Deepest returns the deepest tier a drill of the given tier unlocks.
func (t Tiers) Deepest(drillTier int) (*MineTier, bool) {
	var best *MineTier
	for _, n := range t.Numbers() {
		if tier := t[n]; tier.RequiredDrillTier <= drillTier {
			best = tier
		}
	}
	return best, best != nil
}

// LoadTiers reads one file per tier from dir, named <tier>.json (or any
// other format viper understands). The built-in tiers are used when dir
// is empty or does not exist.
func LoadTiers(dir string) (Tiers, error) {
	if dir == "" {
		return DefaultTiers(), nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultTiers(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mine tiers dir: %w", err)
	}

	tiers := make(Tiers)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		n, err := strconv.Atoi(stem)
		if err != nil {
			continue
		}

		v := viper.New()
		v.SetConfigFile(filepath.Join(dir, e.Name()))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read mine tier %d: %w", n, err)
		}
		var tier MineTier
		if err := v.Unmarshal(&tier); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mine tier %d: %w", n, err)
		}
		if err := tier.validate(); err != nil {
			return nil, fmt.Errorf("invalid mine tier %d: %w", n, err)
		}
		tier.Tier = n
		tiers[n] = &tier
	}
	if len(tiers) == 0 {
		return DefaultTiers(), nil
	}
	return tiers, nil
}

func (t *MineTier) validate() error {
	if t.SludgeWorth <= 0 {
		return errors.New("sludge_worth must be positive")
	}
	if !t.Drops.Sludge.Valid() {
		return errors.New("drop_table.sludge range is inverted")
	}
	for _, c := range t.Creatures {
		if !c.Health.Valid() || !c.Damage.Valid() || !c.Drops.Sludge.Valid() {
			return fmt.Errorf("creature %q has an inverted range", c.Name)
		}
	}
	return nil
}

// DefaultTiers is the mine layout used when no tier files are configured.
func DefaultTiers() Tiers {
	nanners := model.R(1, 3)
	return Tiers{
		0: {
			Tier:              0,
			RequiredDrillTier: 0,
			SludgeWorth:       SludgeBananaWorth,
			SuperNannerChance: 0.05,
			Drops:             DropTable{Sludge: model.R(1, 10), SuperNanners: &nanners},
			Creatures: []Enemy{
				{
					Name:      "Sludge Rat",
					Health:    model.R(100, 299),
					Damage:    model.R(0, 10),
					Thumbnail: "sludge_rat.jpeg",
					Drops:     DropTable{Sludge: model.R(1, 5), Items: []model.Item{model.HealingPotion(10)}},
				},
				{
					Name:          "Cave Sludge",
					Health:        model.R(200, 399),
					Damage:        model.R(0, 15),
					RewardScaling: true,
					Thumbnail:     "cave_sludge.jpeg",
					Drops:         DropTable{Sludge: model.R(1, 3), Items: []model.Item{model.HealingPotion(25)}},
				},
			},
		},
		1: {
			Tier:              1,
			RequiredDrillTier: 1,
			SludgeWorth:       400,
			SuperNannerChance: 0.1,
			Drops:             DropTable{Sludge: model.R(2, 12), SuperNanners: &nanners},
			Creatures: []Enemy{
				{
					Name:          "Rock Golem",
					Health:        model.R(300, 599),
					Damage:        model.R(5, 20),
					RewardScaling: true,
					Thumbnail:     "rock_golem.jpeg",
					Drops: DropTable{Sludge: model.R(2, 6), Items: []model.Item{
						model.HealingPotion(25),
						model.SpellTome("Mighty Winds", model.R(5, 25)),
					}},
				},
			},
		},
		2: {
			Tier:              2,
			RequiredDrillTier: 2,
			SludgeWorth:       600,
			SuperNannerChance: 0.15,
			Drops:             DropTable{Sludge: model.R(3, 15), SuperNanners: &nanners},
			Creatures: []Enemy{
				{
					Name:          "Sludge Wyrm",
					Health:        model.R(500, 999),
					Damage:        model.R(10, 25),
					RewardScaling: true,
					Thumbnail:     "sludge_wyrm.jpeg",
					Drops: DropTable{Sludge: model.R(3, 8), Items: []model.Item{
						model.SpellTome("Fireball", model.R(25, 40)),
						model.HealingPotion(25),
					}},
				},
			},
		},
	}
}
