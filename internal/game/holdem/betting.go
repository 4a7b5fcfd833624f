package holdem

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/game/cards"
)

const bettingHelp = "check, call, raise <amount>, fold, allin, hand, list"

// startHand moves the button, posts the blinds and deals two hole cards to
// every seat, starting left of the button.
func (t *Table) startHand(ctx context.Context) (*game.Result, error) {
	n := len(t.players)
	t.button = (t.button + 1) % n
	t.hands++

	if t.opts.Deck != nil {
		t.deck = t.opts.Deck()
	} else {
		t.deck = cards.NewDeck(1, false)
		t.deck.Shuffle(t.opts.RNG)
	}
	t.board = nil
	for _, p := range t.players {
		*p = Player{UserID: p.UserID, Chips: p.Chips}
	}
	for round := 0; round < 2; round++ {
		for k := 1; k <= n; k++ {
			p := t.players[(t.button+k)%n]
			p.Hole = append(p.Hole, t.deck.MustDeal())
		}
	}

	// Heads up, the button posts the small blind and acts first preflop.
	sbSeat := (t.button + 1) % n
	if n == 2 {
		sbSeat = t.button
	}
	bbSeat := (sbSeat + 1) % n
	sb, bb := t.players[sbSeat], t.players[bbSeat]
	t.put(sb, min(t.small, sb.Chips))
	t.put(bb, min(t.big, bb.Chips))
	t.currentBet = max(sb.Bet, bb.Bet)
	t.minRaise = t.big
	t.street = Preflop
	t.inHand = true
	t.turn = bbSeat

	log.Debug().Int64("host", t.host).Int("hand", t.hands).Int("players", n).Msg("Hold'em hand dealt")

	title := fmt.Sprintf("Hand #%d", t.hands)
	blinds := fmt.Sprintf("%s posts the small blind (%d), %s posts the big blind (%d).\nType `hand` to see your cards.",
		game.Mention(sb.UserID), sb.Bet, game.Mention(bb.UserID), bb.Bet)

	ended, err := t.progress(ctx)
	if err != nil {
		return nil, err
	}
	if ended != nil {
		ended.Title = title
		ended.Description = blinds + "\n" + ended.Description
		return ended, nil
	}
	return &game.Result{Title: title, Description: blinds + "\n" + t.state()}, nil
}

func (t *Table) handleBetting(ctx context.Context, i int, in game.Input) (*game.Result, error) {
	switch in.Command() {
	case "start", "deal", "end", "leave", "cashout":
		return nil, game.Violation("Wait for the hand to finish.")
	}
	if i != t.turn {
		return nil, game.Violation("It is not your turn. Wait for %s.", game.Mention(t.players[t.turn].UserID))
	}

	p := t.players[i]
	title, err := t.act(p, in)
	if err != nil {
		return nil, err
	}
	p.Acted = true

	ended, err := t.progress(ctx)
	if err != nil {
		return nil, err
	}
	if ended != nil {
		ended.Title = title
		return ended, nil
	}
	return &game.Result{Title: title, Description: t.state()}, nil
}

// act applies one betting action for the player whose turn it is.
func (t *Table) act(p *Player, in game.Input) (string, error) {
	who := game.Mention(p.UserID)
	owed := t.currentBet - p.Bet

	switch in.Command() {
	case "check":
		if owed > 0 {
			return "", game.Violation("You can't check, %d to call. Use `call`, `raise <amount>` or `fold`.", owed)
		}
		return who + " checks.", nil

	case "call":
		if owed <= 0 {
			return who + " checks.", nil
		}
		t.put(p, min(owed, p.Chips))
		if p.AllIn {
			return fmt.Sprintf("%s calls and is all in!", who), nil
		}
		return fmt.Sprintf("%s calls %d.", who, owed), nil

	case "raise":
		args := in.Args()
		if len(args) == 0 {
			return "", game.Invalid("Tell me how much: `raise <amount>`")
		}
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || amount <= 0 {
			return "", game.Invalid("Tell me how much: `raise <amount>`")
		}
		target := t.currentBet + amount
		need := target - p.Bet
		if need > p.Chips {
			return "", game.Broke("You only have %d chips behind. Use `allin`.", p.Chips)
		}
		if amount < t.minRaise && need < p.Chips {
			return "", game.Violation("The minimum raise is %d.", t.minRaise)
		}
		t.raiseTo(p, target)
		if p.AllIn {
			return fmt.Sprintf("%s raises to %d and is all in!", who, target), nil
		}
		return fmt.Sprintf("%s raises by %d to %d.", who, amount, target), nil

	case "allin":
		target := p.Bet + p.Chips
		if target > t.currentBet {
			t.raiseTo(p, target)
		} else {
			t.put(p, p.Chips)
		}
		return fmt.Sprintf("%s is all in for %d!", who, target), nil

	case "fold":
		p.Folded = true
		return who + " folds.", nil

	default:
		return "", game.Invalid("Me no understand. Options: %s", bettingHelp)
	}
}

func (t *Table) put(p *Player, amount int64) {
	p.Chips -= amount
	p.Bet += amount
	p.Committed += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
}

// raiseTo bets up to target. A full raise reopens the action for everyone
// else; a short all-in only makes them call the difference.
func (t *Table) raiseTo(p *Player, target int64) {
	size := target - t.currentBet
	t.put(p, target-p.Bet)
	if size >= t.minRaise {
		t.minRaise = size
		for _, o := range t.players {
			if o != p {
				o.Acted = false
			}
		}
	}
	t.currentBet = target
}

// progress advances the hand as far as it can without player input. It
// returns the hand's final result once the hand is over.
func (t *Table) progress(ctx context.Context) (*game.Result, error) {
	for {
		if t.contenders() == 1 {
			return t.awardUncontested(ctx)
		}
		if !t.roundComplete() {
			t.turn = t.nextToAct(t.turn)
			return nil, nil
		}
		for _, p := range t.players {
			p.Bet = 0
			p.Acted = false
		}
		t.currentBet = 0
		t.minRaise = t.big
		if t.street == River {
			return t.showdown(ctx)
		}
		t.street++
		t.dealStreet()
		t.turn = t.button
	}
}

func (t *Table) dealStreet() {
	count := 1
	if t.street == Flop {
		count = 3
	}
	for i := 0; i < count; i++ {
		t.board = append(t.board, t.deck.MustDeal())
	}
}

func (t *Table) contenders() int {
	n := 0
	for _, p := range t.players {
		if !p.Folded {
			n++
		}
	}
	return n
}

func (t *Table) needsAction(p *Player) bool {
	return p.canAct() && (!p.Acted || p.Bet < t.currentBet)
}

// roundComplete reports whether the street's betting is closed: everyone
// who can still bet has acted and matched the current bet. A lone player
// who can still bet has nobody to bet against once they have matched.
func (t *Table) roundComplete() bool {
	var active []*Player
	for _, p := range t.players {
		if p.canAct() {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return true
	case 1:
		return active[0].Bet >= t.currentBet
	}
	for _, p := range active {
		if t.needsAction(p) {
			return false
		}
	}
	return true
}

// nextToAct returns the first seat after from that owes an action.
func (t *Table) nextToAct(from int) int {
	n := len(t.players)
	for k := 1; k <= n; k++ {
		j := (from + k) % n
		if t.needsAction(t.players[j]) {
			return j
		}
	}
	return from
}

// endHand clears the hand, drops busted players and closes the table when
// fewer than two players have chips left.
func (t *Table) endHand(ctx context.Context, summary string) (*game.Result, error) {
	t.inHand = false
	t.board = nil
	var busted []int64
	for _, p := range t.players {
		*p = Player{UserID: p.UserID, Chips: p.Chips}
		if p.Chips == 0 {
			busted = append(busted, p.UserID)
		}
	}
	host := t.host
	for _, id := range busted {
		t.remove(id)
	}

	var b strings.Builder
	b.WriteString(summary)
	for _, id := range busted {
		fmt.Fprintf(&b, "\n%s is out of chips and leaves the table.", game.Mention(id))
	}

	if len(t.players) < 2 {
		closed, err := t.close(ctx, "The table has been closed.")
		if err != nil {
			return nil, err
		}
		closed.Description = b.String() + "\n" + closed.Description
		closed.Removed = busted
		return closed, nil
	}

	if t.host != host {
		fmt.Fprintf(&b, "\n%s is now the host.", game.Mention(t.host))
	}
	b.WriteString("\nThe host can `deal` the next hand, players can `cashout`.")
	return &game.Result{Description: b.String(), Removed: busted}, nil
}
