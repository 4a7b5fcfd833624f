package battle

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

const (
	// PrayHealth is the health a prayer restores the player to, once per battle.
	PrayHealth = 200

	developerTome = "Developer Tome"
)

var (
	fistDamage     = model.R(0, 10)
	nannerReward   = model.R(1, 5)
	mineBattleHelp = "`attack`, `run`, `item {inventory slot #}` or `surrender`"
)

// MineBattle is a fight against a creature met while mining. Healing is
// not capped here, unlike the sludge monster battle.
type MineBattle struct {
	econ game.Economy
	inv  game.Inventory
	rng  game.RNG

	player        int64
	enemy         Enemy
	sludgeWorth   int64
	enemyHealth   int
	initialHealth int
	playerHealth  int
	prayed        bool
	thumbnail     string
}

// NewMineBattle rolls the enemy's health, rounded down to a multiple of 100.
func NewMineBattle(econ game.Economy, inv game.Inventory, player int64, enemy Enemy, sludgeWorth int64, rng game.RNG) *MineBattle {
	if rng == nil {
		rng = game.NewRand()
	}
	health := game.Roll(rng, enemy.Health)
	health = max(health-health%100, 100)
	return &MineBattle{
		econ:          econ,
		inv:           inv,
		rng:           rng,
		player:        player,
		enemy:         enemy,
		sludgeWorth:   sludgeWorth,
		enemyHealth:   health,
		initialHealth: health,
		playerHealth:  PlayerHealth,
		thumbnail:     enemy.Thumbnail,
	}
}

// Kind implements game.Variant.
func (b *MineBattle) Kind() game.Kind {
	return game.KindMineBattle
}

// Enemy returns the creature being fought.
func (b *MineBattle) Enemy() Enemy {
	return b.enemy
}

// Health returns the enemy's and the player's current health.
func (b *MineBattle) Health() (enemy, player int) {
	return b.enemyHealth, b.playerHealth
}

// HandleInput implements game.Variant.
func (b *MineBattle) HandleInput(ctx context.Context, in game.Input) (*game.Result, error) {
	if in.UserID != b.player {
		return nil, game.Violation("This isn't your battle!")
	}

	switch in.Command() {
	case "attack":
		damage, err := game.EquippedDamage(ctx, b.inv, b.player, fistDamage)
		if err != nil {
			return nil, fmt.Errorf("failed to load equipped weapon: %w", err)
		}
		dealt := game.Roll(b.rng, damage)
		b.enemyHealth = hit(b.enemyHealth, dealt)
		if b.enemyHealth == 0 {
			return b.win(ctx, fmt.Sprintf("You have defeated the %s!", b.enemy.Name))
		}
		taken := b.enemyTurn()
		if b.playerHealth == 0 {
			return b.lose(ctx)
		}
		return b.status(fmt.Sprintf("You attacked the %s for %d damage, and it attacked you for %d damage!",
			b.enemy.Name, dealt, taken)), nil

	case "item":
		return b.useItem(ctx, in)

	case "pray":
		if b.prayed {
			return b.status("You have already prayed this battle!"), nil
		}
		healed := max(PrayHealth-b.playerHealth, 0)
		b.playerHealth += healed
		b.prayed = true
		return b.status(fmt.Sprintf("You prayed and healed for %dhp!", healed)), nil

	case "run":
		if fled(b.rng, b.playerHealth) {
			logOutcome(b.Kind(), b.player, "fled", 0)
			return &game.Result{
				Title:       "Flee!",
				Description: "You have successfully fled from the creature.",
				Terminated:  true,
			}, nil
		}
		taken := b.enemyTurn()
		if b.playerHealth == 0 {
			return b.lose(ctx)
		}
		return b.status(fmt.Sprintf("You failed to flee, and the %s attacked you for %d damage!", b.enemy.Name, taken)), nil

	case "surrender":
		return b.lose(ctx)

	default:
		return nil, game.Invalid("Me no understand! Options: %s", mineBattleHelp)
	}
}

func (b *MineBattle) useItem(ctx context.Context, in game.Input) (*game.Result, error) {
	args := in.Args()
	slot := 0
	if len(args) > 0 {
		slot, _ = strconv.Atoi(args[0])
	}
	if slot < 1 || b.inv == nil {
		return nil, game.Invalid("**INVALID ITEM** To use an item, type `item #`, where # is the slot in your inventory.")
	}
	item, idx, err := game.ItemAt(ctx, b.inv, b.player, slot)
	if err != nil {
		return nil, err
	}

	switch item.Kind {
	case model.ItemHealingPotion:
		if err := b.inv.RemoveItem(ctx, b.player, idx); err != nil {
			return nil, fmt.Errorf("failed to consume potion: %w", err)
		}
		b.playerHealth += item.Health
		return b.status(fmt.Sprintf("You healed for %dhp!", item.Health)), nil

	case model.ItemSpellTome:
		if item.Name == developerTome {
			b.thumbnail = "developer_tome.jpeg"
		} else if err := b.inv.RemoveItem(ctx, b.player, idx); err != nil {
			return nil, fmt.Errorf("failed to consume tome: %w", err)
		}
		dealt := game.Roll(b.rng, item.Damage)
		b.enemyHealth = hit(b.enemyHealth, dealt)
		if b.enemyHealth == 0 {
			return b.win(ctx, fmt.Sprintf("You have defeated the %s using your %s Tome.", b.enemy.Name, item.Name))
		}
		taken := b.enemyTurn()
		if b.playerHealth == 0 {
			return b.lose(ctx)
		}
		return b.status(fmt.Sprintf("You used your %s Tome and dealt %d damage! The %s attacked you for %d damage!",
			item.Name, dealt, b.enemy.Name, taken)), nil

	case model.ItemWeapon:
		return nil, game.Violation("You must equip a weapon to use it! Equip it and it will be used when you `attack`.")

	default:
		return nil, game.Violation("You can not use that item here!")
	}
}

func (b *MineBattle) enemyTurn() int {
	dealt := game.Roll(b.rng, b.enemy.Damage)
	b.playerHealth = hit(b.playerHealth, dealt)
	return dealt
}

// win hands out one of three rewards with equal odds: bananas for the
// creature's sludge, an item from its drop table, or super nanners.
func (b *MineBattle) win(ctx context.Context, msg string) (*game.Result, error) {
	res := &game.Result{Title: "Victory!", Thumbnail: b.thumbnail, Terminated: true}

	switch b.rng.IntN(3) {
	case 0:
		reward := b.SludgeReward(game.Roll(b.rng, b.enemy.Drops.Sludge))
		if reward > 0 {
			if err := b.econ.Credit(ctx, b.player, reward, model.TxTypeBattleReward); err != nil {
				return nil, fmt.Errorf("failed to credit battle reward: %w", err)
			}
		}
		logOutcome(b.Kind(), b.player, "bananas", reward)
		res.Description = msg + " You have been rewarded with some bananas!"
		res.AddField("Reward:", strconv.FormatInt(reward, 10)+"🍌", false)

	case 1:
		item := b.enemy.Drops.RandomItem(b.rng)
		err := game.ErrInventoryFull
		if b.inv != nil {
			err = b.inv.AddItem(ctx, b.player, item)
		}
		switch {
		case errors.Is(err, game.ErrInventoryFull):
			res.Description = msg + " You have been rewarded with an item, but your inventory is full!"
			res.AddField("Reward:", "❌ "+item.Label(), false)
		case err != nil:
			return nil, fmt.Errorf("failed to add battle drop: %w", err)
		default:
			res.Description = msg + " You have been rewarded with an item!"
			res.AddField("Reward:", item.Label(), false)
		}
		logOutcome(b.Kind(), b.player, "item", 0)

	default:
		nanners := int64(game.Roll(b.rng, b.nannerRange()))
		if err := b.econ.CreditSuperNanners(ctx, b.player, nanners); err != nil {
			return nil, fmt.Errorf("failed to credit super nanners: %w", err)
		}
		logOutcome(b.Kind(), b.player, "super_nanners", nanners)
		res.Description = msg + " You have been rewarded with some super nanners!"
		res.AddField("Reward:", strconv.FormatInt(nanners, 10)+"⚡", false)
	}
	return res, nil
}

// SludgeReward converts a sludge roll into bananas. Creatures with reward
// scaling multiply the roll by their starting health in hundreds.
func (b *MineBattle) SludgeReward(roll int) int64 {
	if b.enemy.RewardScaling {
		return b.sludgeWorth * int64((b.initialHealth/100)*roll)
	}
	return b.sludgeWorth * int64(roll)
}

func (b *MineBattle) nannerRange() model.Range {
	if r := b.enemy.Drops.SuperNanners; r != nil && r.Valid() {
		return *r
	}
	return nannerReward
}

// lose takes between a fifth and a half of the player's balance.
func (b *MineBattle) lose(ctx context.Context) (*game.Result, error) {
	balance, err := b.econ.Balance(ctx, b.player)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	cost := game.Roll64(b.rng, balance/5, balance/2)
	lost, err := penalize(ctx, b.econ, b.player, cost)
	if err != nil {
		return nil, err
	}
	logOutcome(b.Kind(), b.player, "defeat", lost)
	return defeat("Defeat!",
		fmt.Sprintf("The %s defeated you and has stolen some bananas!", b.enemy.Name),
		b.thumbnail, lost), nil
}

// Expire ends an abandoned battle without reward or penalty.
func (b *MineBattle) Expire(context.Context) (*game.Result, error) {
	logOutcome(b.Kind(), b.player, "expired", 0)
	return &game.Result{
		Title:       fmt.Sprintf("The %s wandered off.", b.enemy.Name),
		Description: "You took too long and the creature lost interest.",
		Terminated:  true,
	}, nil
}

// Opening implements game.Opener.
func (b *MineBattle) Opening() *game.Result {
	return b.status(fmt.Sprintf("While mining you ran into a %s!", b.enemy.Name))
}

func (b *MineBattle) status(msg string) *game.Result {
	res := &game.Result{
		Title:       b.enemy.Name + " Battle",
		Description: msg,
		Thumbnail:   b.thumbnail,
	}
	res.AddField("Creature Health", strconv.Itoa(b.enemyHealth), true)
	res.AddField("Your Health", strconv.Itoa(b.playerHealth), true)
	res.AddField("Options: ", mineBattleHelp, false)
	return res
}
