package battle

import (
	"context"
	"fmt"
	"strconv"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

// SludgeOptions tunes the sludge monster battle.
type SludgeOptions struct {
	// BossHealth is rolled in hundreds: 1-5 gives 100..500.
	BossHealth   model.Range
	PlayerDamage model.Range
	BossDamage   model.Range
	RNG          game.RNG
}

// DefaultSludgeOptions returns the standard sludge monster.
func DefaultSludgeOptions() SludgeOptions {
	return SludgeOptions{
		BossHealth:   model.R(1, 5),
		PlayerDamage: model.R(0, 25),
		BossDamage:   model.R(0, 10),
	}
}

func (o SludgeOptions) withDefaults() SludgeOptions {
	d := DefaultSludgeOptions()
	if o.BossHealth == (model.Range{}) || !o.BossHealth.Valid() || o.BossHealth.Min < 1 {
		o.BossHealth = d.BossHealth
	}
	if o.PlayerDamage == (model.Range{}) || !o.PlayerDamage.Valid() {
		o.PlayerDamage = d.PlayerDamage
	}
	if o.BossDamage == (model.Range{}) || !o.BossDamage.Valid() {
		o.BossDamage = d.BossDamage
	}
	if o.RNG == nil {
		o.RNG = game.NewRand()
	}
	return o
}

var (
	sludgePenalty = model.R(1, 20)
	sludgeHelp    = "`attack`, `run`, `item {inventory slot #}` or `surrender`"
)

// SludgeBattle is the classic fight against the sludge monster. Player
// health never goes above PlayerHealth here.
type SludgeBattle struct {
	econ game.Economy
	inv  game.Inventory
	opts SludgeOptions

	player        int64
	bossHealth    int
	initialHealth int
	playerHealth  int
	thumbnail     string
}

// NewSludgeBattle spawns a sludge monster with 100 to 500 health.
func NewSludgeBattle(econ game.Economy, inv game.Inventory, player int64, opts SludgeOptions) *SludgeBattle {
	opts = opts.withDefaults()
	health := game.Roll(opts.RNG, opts.BossHealth) * 100

	thumbnail := "small_sludge.jpeg"
	switch {
	case health > 400:
		thumbnail = "large_sludge.jpeg"
	case health > 200:
		thumbnail = "medium_sludge.jpeg"
	}

	return &SludgeBattle{
		econ:          econ,
		inv:           inv,
		opts:          opts,
		player:        player,
		bossHealth:    health,
		initialHealth: health,
		playerHealth:  PlayerHealth,
		thumbnail:     thumbnail,
	}
}

// Kind implements game.Variant.
func (s *SludgeBattle) Kind() game.Kind {
	return game.KindSludgeBattle
}

// Health returns the boss's and the player's current health.
func (s *SludgeBattle) Health() (boss, player int) {
	return s.bossHealth, s.playerHealth
}

// HandleInput implements game.Variant.
func (s *SludgeBattle) HandleInput(ctx context.Context, in game.Input) (*game.Result, error) {
	if in.UserID != s.player {
		return nil, game.Violation("This isn't your battle!")
	}

	switch in.Command() {
	case "attack":
		dealt := game.Roll(s.opts.RNG, s.opts.PlayerDamage)
		s.bossHealth = hit(s.bossHealth, dealt)
		if s.bossHealth == 0 {
			return s.win(ctx)
		}
		taken := s.bossTurn()
		if s.playerHealth == 0 {
			return s.lose(ctx)
		}
		return s.status(fmt.Sprintf("You attacked the boss for %d damage, but it attacked you for %d!", dealt, taken)), nil

	case "item":
		return s.useItem(ctx, in)

	case "run":
		if fled(s.opts.RNG, s.playerHealth) {
			logOutcome(s.Kind(), s.player, "fled", 0)
			return &game.Result{
				Title:       "Flee!",
				Description: "You have successfully fled from the sludge monster.",
				Terminated:  true,
			}, nil
		}
		taken := s.bossTurn()
		if s.playerHealth == 0 {
			return s.lose(ctx)
		}
		return s.status(fmt.Sprintf("You failed to flee, and the sludge monster attacked you for %d damage!", taken)), nil

	case "surrender":
		return s.lose(ctx)

	default:
		return nil, game.Invalid("Me no understand! Options: %s", sludgeHelp)
	}
}

// useItem only accepts healing potions; the sludge monster shrugs off tomes.
func (s *SludgeBattle) useItem(ctx context.Context, in game.Input) (*game.Result, error) {
	args := in.Args()
	slot := 0
	if len(args) > 0 {
		slot, _ = strconv.Atoi(args[0])
	}
	if slot < 1 || s.inv == nil {
		return nil, game.Invalid("**INVALID ITEM** To use an item, type `item #`, where # is the slot in your inventory.")
	}
	item, idx, err := game.ItemAt(ctx, s.inv, s.player, slot)
	if err != nil {
		return nil, err
	}
	if item.Kind != model.ItemHealingPotion {
		return nil, game.Violation("You can not use that item here!")
	}
	if err := s.inv.RemoveItem(ctx, s.player, idx); err != nil {
		return nil, fmt.Errorf("failed to consume potion: %w", err)
	}
	before := s.playerHealth
	s.playerHealth = min(s.playerHealth+item.Health, PlayerHealth)
	return s.status(fmt.Sprintf("You healed for %dhp!", s.playerHealth-before)), nil
}

func (s *SludgeBattle) bossTurn() int {
	dealt := game.Roll(s.opts.RNG, s.opts.BossDamage)
	s.playerHealth = hit(s.playerHealth, dealt)
	return dealt
}

// RewardCeiling is the top reward, in thousands of bananas, for a boss
// that started with the given health. The floor is a fifth of it.
func RewardCeiling(initialHealth int) int64 {
	switch initialHealth {
	case 500:
		return 100
	case 400:
		return 75
	case 300:
		return 50
	case 200:
		return 25
	default:
		return 10
	}
}

func (s *SludgeBattle) win(ctx context.Context) (*game.Result, error) {
	high := RewardCeiling(s.initialHealth)
	reward := game.Roll64(s.opts.RNG, high/5, high) * 1000
	if err := s.econ.Credit(ctx, s.player, reward, model.TxTypeBattleReward); err != nil {
		return nil, fmt.Errorf("failed to credit sludge reward: %w", err)
	}
	logOutcome(s.Kind(), s.player, "bananas", reward)

	res := &game.Result{
		Title:       "Sludge Monster Defeated!",
		Description: "You have defeated the Sludge Monster!",
		Thumbnail:   s.thumbnail,
		Terminated:  true,
	}
	res.AddField("Reward:", strconv.FormatInt(reward, 10)+"🍌", false)
	return res, nil
}

func (s *SludgeBattle) lose(ctx context.Context) (*game.Result, error) {
	cost := int64(game.Roll(s.opts.RNG, sludgePenalty)) * 100
	lost, err := penalize(ctx, s.econ, s.player, cost)
	if err != nil {
		return nil, err
	}
	logOutcome(s.Kind(), s.player, "defeat", lost)
	return defeat("Defeat!", "The sludge monster defeated you and has stolen some bananas!", s.thumbnail, lost), nil
}

// Expire ends an abandoned battle without reward or penalty.
func (s *SludgeBattle) Expire(context.Context) (*game.Result, error) {
	logOutcome(s.Kind(), s.player, "expired", 0)
	return &game.Result{
		Title:       "The sludge monster oozed away.",
		Description: "You took too long and the sludge monster lost interest.",
		Terminated:  true,
	}, nil
}

// Opening implements game.Opener.
func (s *SludgeBattle) Opening() *game.Result {
	return s.status("A sludge monster appears!")
}

func (s *SludgeBattle) status(msg string) *game.Result {
	res := &game.Result{
		Title:       "Sludge Monster Battle",
		Description: msg,
		Thumbnail:   s.thumbnail,
	}
	res.AddField("Boss Health", strconv.Itoa(s.bossHealth), true)
	res.AddField("Your Health", strconv.Itoa(s.playerHealth), true)
	res.AddField("Options: ", sludgeHelp, false)
	return res
}
