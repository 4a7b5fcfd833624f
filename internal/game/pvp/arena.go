// Package pvp implements the turn-based PvP arena: players escrow a stake,
// take turns attacking or using items, and the last one standing takes the pot.
package pvp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

// Fighter is one arena participant.
type Fighter struct {
	UserID int64
	Health int
}

// Arena is one PvP session.
type Arena struct {
	econ game.Economy
	inv  game.Inventory
	opts Options

	host     int64
	stake    int64
	fighters []*Fighter
	turn     int
	started  bool

	// pot holds every escrowed stake not yet paid out or refunded.
	pot int64
	// entrants counts stakes that went into the pot; refunds decrement it.
	entrants int

	// pending holds the unpaid credits of a settlement that stopped on a
	// failed credit. done builds that settlement's result once they clear.
	pending []payout
	done    func() *game.Result
}

// payout is one credit owed by a settlement.
type payout struct {
	user   int64
	amount int64
	txType string
}

// New escrows the host's stake and opens the arena lobby.
func New(ctx context.Context, econ game.Economy, inv game.Inventory, host, stake int64, opts Options) (*Arena, error) {
	if stake < 0 {
		return nil, game.Invalid("The stake can't be negative!")
	}
	opts = opts.withDefaults()
	if err := escrow(ctx, econ, host, stake); err != nil {
		return nil, err
	}
	a := &Arena{
		econ:     econ,
		inv:      inv,
		opts:     opts,
		host:     host,
		stake:    stake,
		fighters: []*Fighter{{UserID: host, Health: opts.BaseHealth}},
		pot:      stake,
		entrants: 1,
	}
	log.Debug().Int64("host", host).Int64("stake", stake).Int("max_players", opts.MaxPlayers).Msg("PvP arena opened")
	return a, nil
}

func escrow(ctx context.Context, econ game.Economy, user, stake int64) error {
	if stake == 0 {
		return nil
	}
	if err := econ.Debit(ctx, user, stake, model.TxTypePvPStake); err != nil {
		if errors.Is(err, game.ErrInsufficientFunds) {
			return game.Broke("You don't have enough bananas for this arena's stake!")
		}
		return fmt.Errorf("failed to escrow pvp stake: %w", err)
	}
	return nil
}

// Kind implements game.Variant.
func (a *Arena) Kind() game.Kind {
	return game.KindPvPArena
}

// Started reports whether the lobby has closed.
func (a *Arena) Started() bool {
	return a.started
}

// Pot returns the currency currently held by the arena.
func (a *Arena) Pot() int64 {
	return a.pot
}

// Fighters returns the remaining participants in turn order.
func (a *Arena) Fighters() []Fighter {
	out := make([]Fighter, len(a.fighters))
	for i, f := range a.fighters {
		out[i] = *f
	}
	return out
}

// Turn returns the user whose action is expected.
func (a *Arena) Turn() int64 {
	return a.fighters[a.turn].UserID
}

// CanJoin reports whether the lobby has room.
func (a *Arena) CanJoin() bool {
	return !a.started && len(a.fighters) < a.opts.MaxPlayers
}

// Join escrows the stake and seats the user.
func (a *Arena) Join(ctx context.Context, user int64) error {
	if !a.CanJoin() {
		return game.ErrCapacityExceeded
	}
	if a.index(user) >= 0 {
		return game.ErrAlreadyInSession
	}
	if err := escrow(ctx, a.econ, user, a.stake); err != nil {
		return err
	}
	a.fighters = append(a.fighters, &Fighter{UserID: user, Health: a.opts.BaseHealth})
	a.pot += a.stake
	a.entrants++
	return nil
}

func (a *Arena) index(user int64) int {
	for i, f := range a.fighters {
		if f.UserID == user {
			return i
		}
	}
	return -1
}

// HandleInput implements game.Variant.
func (a *Arena) HandleInput(ctx context.Context, in game.Input) (*game.Result, error) {
	if a.index(in.UserID) < 0 {
		return nil, game.Violation("You are not in this arena!")
	}
	if a.done != nil {
		// Finish the interrupted settlement before anything else happens.
		return a.resume(ctx)
	}
	if !a.started {
		return a.handleLobby(ctx, in)
	}

	switch in.Command() {
	case "list":
		return a.roster(), nil
	case "surrender":
		return a.surrender(ctx, in.UserID)
	}

	if a.Turn() != in.UserID {
		return nil, game.Violation("It is not your turn. Wait for %s.", game.Mention(a.Turn()))
	}

	switch in.Command() {
	case "attack":
		target, err := a.target(in)
		if err != nil {
			return nil, err
		}
		damage := a.opts.Damage
		weapon := ""
		if !a.opts.NoItems && a.inv != nil {
			item, err := a.inv.Equipped(ctx, in.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to load equipped item: %w", err)
			}
			if item != nil && item.Kind == model.ItemWeapon && item.Damage.Valid() {
				damage = item.Damage
				weapon = item.Name
			}
		}
		return a.strike(ctx, in.UserID, target, game.Roll(a.opts.RNG, damage), weapon)

	case "item":
		return a.useItem(ctx, in)

	default:
		return nil, game.Invalid("Me no understand. Options: attack, item <slot>, list, surrender")
	}
}

func (a *Arena) handleLobby(ctx context.Context, in game.Input) (*game.Result, error) {
	isHost := in.UserID == a.host
	switch in.Command() {
	case "start":
		if !isHost {
			return nil, game.Violation("Only the host can start the arena.")
		}
		if len(a.fighters) < 2 {
			return nil, game.Violation("You need at least 2 players to start the arena.")
		}
		a.started = true
		a.turn = 0
		return &game.Result{
			Title:       "The arena has started!",
			Description: a.turnLine(),
		}, nil

	case "end":
		if !isHost {
			return nil, game.Violation("Only the host can close the arena.")
		}
		return a.settle(ctx, a.refunds(), func() *game.Result {
			return &game.Result{
				Title:       "The arena has been closed.",
				Description: "All bananas have been refunded.",
				Terminated:  true,
			}
		})

	case "list":
		return a.roster(), nil

	case "kick":
		if !isHost {
			return nil, game.Violation("Only the host can kick players.")
		}
		target, ok := in.Target()
		if !ok {
			return nil, game.Invalid("Mention the player to kick: `kick @player`")
		}
		if target == a.host {
			return nil, game.Violation("You can't kick yourself, use `end` to close the arena.")
		}
		if a.index(target) < 0 {
			return nil, game.Violation("That player is not in your arena.")
		}
		if err := a.removeWithRefund(ctx, target); err != nil {
			return nil, err
		}
		return &game.Result{
			Title:       fmt.Sprintf("%s was kicked from the arena.", game.Mention(target)),
			Description: "Their stake has been refunded.",
			Removed:     []int64{target},
		}, nil

	case "leave":
		if isHost {
			return nil, game.Violation("The host can't leave, use `end` to close the arena.")
		}
		if err := a.removeWithRefund(ctx, in.UserID); err != nil {
			return nil, err
		}
		return &game.Result{
			Title:       fmt.Sprintf("%s left the arena.", game.Mention(in.UserID)),
			Description: "Your stake has been refunded.",
			Removed:     []int64{in.UserID},
		}, nil

	default:
		if isHost {
			return nil, game.Invalid("The arena hasn't started. Options: start, end, list, kick @player")
		}
		return nil, game.Invalid("The arena hasn't started. Options: list, leave")
	}
}

func (a *Arena) refund(ctx context.Context, user int64) error {
	if a.stake == 0 {
		return nil
	}
	if err := a.econ.Credit(ctx, user, a.stake, model.TxTypePvPRefund); err != nil {
		return fmt.Errorf("failed to refund pvp stake: %w", err)
	}
	a.pot -= a.stake
	return nil
}

// refunds returns every fighter's stake.
func (a *Arena) refunds() []payout {
	if a.stake == 0 {
		return nil
	}
	out := make([]payout, 0, len(a.fighters))
	for _, f := range a.fighters {
		out = append(out, payout{user: f.UserID, amount: a.stake, txType: model.TxTypePvPRefund})
	}
	return out
}

// settle pays payouts and then returns done's result. Each credit leaves
// the queue and the pot as soon as it succeeds, so after a failure the
// next call to resume pays only what is still owed.
func (a *Arena) settle(ctx context.Context, payouts []payout, done func() *game.Result) (*game.Result, error) {
	a.pending = append(a.pending, payouts...)
	a.done = done
	return a.resume(ctx)
}

func (a *Arena) resume(ctx context.Context) (*game.Result, error) {
	for len(a.pending) > 0 {
		p := a.pending[0]
		if p.amount > 0 {
			if err := a.econ.Credit(ctx, p.user, p.amount, p.txType); err != nil {
				return nil, fmt.Errorf("failed to settle pvp arena: %w", err)
			}
		}
		a.pot -= p.amount
		a.pending = a.pending[1:]
	}
	done := a.done
	a.done = nil
	if done == nil {
		return nil, nil
	}
	return done(), nil
}

func (a *Arena) removeWithRefund(ctx context.Context, user int64) error {
	if err := a.refund(ctx, user); err != nil {
		return err
	}
	a.remove(user)
	a.entrants--
	return nil
}

// remove drops a fighter and keeps the turn pointer on the same player,
// or on the one after a removed current player.
func (a *Arena) remove(user int64) {
	i := a.index(user)
	if i < 0 {
		return
	}
	a.fighters = append(a.fighters[:i], a.fighters[i+1:]...)
	if i < a.turn {
		a.turn--
	}
	if a.turn >= len(a.fighters) {
		a.turn = 0
	}
}

// advance passes the turn to the player after actor.
func (a *Arena) advance(actor int64) {
	i := a.index(actor)
	if i < 0 {
		return
	}
	a.turn = (i + 1) % len(a.fighters)
}

// target resolves who an offensive action hits: the mentioned player when
// more than two remain, the only opponent otherwise.
func (a *Arena) target(in game.Input) (int64, error) {
	if len(a.fighters) > 2 {
		target, ok := in.Target()
		if !ok {
			return 0, game.Invalid("You must mention a player to attack.")
		}
		if a.index(target) < 0 {
			return 0, game.Invalid("The player you are trying to attack is not in the game.")
		}
		if target == in.UserID {
			return 0, game.Invalid("You can't attack yourself!")
		}
		return target, nil
	}
	for _, f := range a.fighters {
		if f.UserID != in.UserID {
			return f.UserID, nil
		}
	}
	return 0, game.Violation("There is nobody left to attack.")
}

// strike applies damage from actor to target and consumes actor's turn.
func (a *Arena) strike(ctx context.Context, actor, target int64, damage int, with string) (*game.Result, error) {
	f := a.fighters[a.index(target)]
	f.Health = max(f.Health-damage, 0)

	using := ""
	if with != "" {
		using = " using " + with
	}

	if f.Health > 0 {
		a.advance(actor)
		return &game.Result{
			Title:       fmt.Sprintf("%s has attacked %s for %d damage%s!", game.Mention(actor), game.Mention(target), damage, using),
			Description: a.turnLine(),
		}, nil
	}

	if len(a.fighters) <= 2 {
		return a.win(ctx, actor)
	}
	a.remove(target)
	a.advance(actor)
	return &game.Result{
		Title:       fmt.Sprintf("%s has defeated %s%s!", game.Mention(actor), game.Mention(target), using),
		Description: a.turnLine(),
		Removed:     []int64{target},
	}, nil
}

func (a *Arena) win(ctx context.Context, winner int64) (*game.Result, error) {
	pot := a.pot
	return a.settle(ctx, []payout{{user: winner, amount: pot, txType: model.TxTypePvPWin}}, func() *game.Result {
		log.Info().Int64("winner", winner).Int64("pot", pot).Int("entrants", a.entrants).Msg("PvP arena won")
		return &game.Result{
			Title:       fmt.Sprintf("%s has won the arena!", game.Mention(winner)),
			Description: fmt.Sprintf("%s has won the arena and gets %d🍌!", game.Mention(winner), pot),
			Terminated:  true,
		}
	})
}

func (a *Arena) useItem(ctx context.Context, in game.Input) (*game.Result, error) {
	if a.opts.NoItems || a.inv == nil {
		return nil, game.Violation("Items are disabled in this arena.")
	}
	args := in.Args()
	if len(args) == 0 {
		return nil, game.Invalid("You must specify an item slot `item <slot #>`.")
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, game.Invalid("You must specify an item slot `item <slot #>`.")
	}
	item, idx, err := game.ItemAt(ctx, a.inv, in.UserID, slot)
	if err != nil {
		return nil, err
	}

	switch item.Kind {
	case model.ItemHealingPotion:
		f := a.fighters[a.index(in.UserID)]
		f.Health = min(f.Health+item.Health, a.opts.MaxHealth)
		if err := a.inv.RemoveItem(ctx, in.UserID, idx); err != nil {
			return nil, fmt.Errorf("failed to consume potion: %w", err)
		}
		return &game.Result{
			Title:       fmt.Sprintf("%s has healed to %dhp!", game.Mention(in.UserID), f.Health),
			Description: "It is still your turn to perform an action.",
		}, nil

	case model.ItemSpellTome:
		target, err := a.target(in)
		if err != nil {
			return nil, err
		}
		if err := a.inv.RemoveItem(ctx, in.UserID, idx); err != nil {
			return nil, fmt.Errorf("failed to consume tome: %w", err)
		}
		return a.strike(ctx, in.UserID, target, game.Roll(a.opts.RNG, item.Damage), item.Name+" Tome")

	default:
		return nil, game.Violation("You cannot use that item here!")
	}
}

// surrender removes the user. With more than two players their stake is
// shared among the rest; with two, the opponent wins the whole pot. The
// user stays seated until every share is paid.
func (a *Arena) surrender(ctx context.Context, user int64) (*game.Result, error) {
	if len(a.fighters) <= 2 {
		for _, f := range a.fighters {
			if f.UserID != user {
				return a.win(ctx, f.UserID)
			}
		}
	}

	rest := make([]int64, 0, len(a.fighters)-1)
	for _, f := range a.fighters {
		if f.UserID != user {
			rest = append(rest, f.UserID)
		}
	}
	shares := Split(a.stake, len(rest))
	payouts := make([]payout, len(rest))
	for i, id := range rest {
		payouts[i] = payout{user: id, amount: shares[i], txType: model.TxTypePvPWin}
	}
	return a.settle(ctx, payouts, func() *game.Result {
		a.remove(user)
		return &game.Result{
			Title:       fmt.Sprintf("%s surrendered!", game.Mention(user)),
			Description: "They forfeited the arena and their stake was shared among the remaining players.\n" + a.turnLine(),
			Removed:     []int64{user},
		}
	})
}

// Split divides amount into n shares differing by at most one, larger
// shares first, summing exactly to amount.
func Split(amount int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	shares := make([]int64, n)
	base, rem := amount/int64(n), amount%int64(n)
	for i := range shares {
		shares[i] = base
		if int64(i) < rem {
			shares[i]++
		}
	}
	return shares
}

// Expire settles an idle arena: the lobby is refunded, a running fight
// splits the pot among the survivors. An interrupted settlement is
// finished first.
func (a *Arena) Expire(ctx context.Context) (*game.Result, error) {
	if a.done != nil {
		res, err := a.resume(ctx)
		if err != nil {
			return nil, err
		}
		if res.Terminated {
			return res, nil
		}
	}

	if !a.started {
		return a.settle(ctx, a.refunds(), func() *game.Result {
			return &game.Result{
				Title:       "The arena has been closed.",
				Description: "Nobody started the fight in time. All bananas have been refunded.",
				Terminated:  true,
			}
		})
	}

	shares := Split(a.pot, len(a.fighters))
	payouts := make([]payout, len(a.fighters))
	for i, f := range a.fighters {
		payouts[i] = payout{user: f.UserID, amount: shares[i], txType: model.TxTypePvPRefund}
	}
	return a.settle(ctx, payouts, func() *game.Result {
		return &game.Result{
			Title:       "The arena timed out.",
			Description: "The pot was split among the remaining players.",
			Terminated:  true,
		}
	})
}

// Opening implements game.Opener.
func (a *Arena) Opening() *game.Result {
	res := a.roster()
	res.Title = "Arena created!"
	res.Description = "Players can join with `join <code>`. The host types `start` when everyone is in."
	return res
}

func (a *Arena) turnLine() string {
	f := a.fighters[a.turn]
	return fmt.Sprintf("It is %s's turn to perform an action.\n  Health: %d", game.Mention(f.UserID), f.Health)
}

func (a *Arena) roster() *game.Result {
	var b strings.Builder
	for i, f := range a.fighters {
		marker := ""
		if a.started && i == a.turn {
			marker = " ⬅"
		}
		if f.UserID == a.host {
			marker += " (host)"
		}
		fmt.Fprintf(&b, "%s: %dhp%s\n", game.Mention(f.UserID), f.Health, marker)
	}
	res := &game.Result{
		Title:       "Players in your arena",
		Description: strings.TrimRight(b.String(), "\n"),
	}
	res.AddField("Stake", strconv.FormatInt(a.stake, 10), true)
	res.AddField("Pot", strconv.FormatInt(a.pot, 10), true)
	return res
}
