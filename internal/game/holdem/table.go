// Package holdem implements no-limit Texas Hold'em played for escrowed
// chips. Players buy in while the table is open, the host deals hands,
// and chips are cashed back out when a player leaves or the table closes.
package holdem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/game/cards"
	"banana-bot/internal/model"
)

const (
	// MaxSeats is the most players a table can seat.
	MaxSeats = 10

	// DefaultMinBuyIn is the smallest buy-in a table can be opened with.
	DefaultMinBuyIn = 100

	minBigBlind = 2
)

// Street is a betting round.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "Pre-flop"
	case Flop:
		return "Flop"
	case Turn:
		return "Turn"
	case River:
		return "River"
	default:
		return "Unknown"
	}
}

// Options configures a table.
type Options struct {
	MaxPlayers int
	MinBuyIn   int64
	BigBlind   int64 // derived from the buy-in when zero
	RNG        game.RNG
	Deck       func() *cards.Deck // fresh deck per hand; a shuffled pack when nil
}

// BigBlind is 2% of the buy-in, at least 2 chips.
func BigBlind(buyIn int64) int64 {
	return max(buyIn/50, minBigBlind)
}

// Player is one seat at the table.
type Player struct {
	UserID    int64
	Chips     int64 // behind, not yet bet
	Hole      []cards.Card
	Bet       int64 // on the current street
	Committed int64 // over the whole hand
	Folded    bool
	AllIn     bool
	Acted     bool
}

func (p *Player) canAct() bool {
	return !p.Folded && !p.AllIn
}

// Table is one Hold'em session.
type Table struct {
	econ game.Economy
	opts Options

	host     int64
	buyIn    int64
	big      int64
	small    int64
	players  []*Player
	started  bool
	escrowed int64
	paidOut  int64

	inHand     bool
	hands      int
	button     int
	turn       int
	street     Street
	deck       *cards.Deck
	board      []cards.Card
	currentBet int64
	minRaise   int64
}

// New escrows the host's buy-in and opens the table.
func New(ctx context.Context, econ game.Economy, host, buyIn int64, opts Options) (*Table, error) {
	if opts.MaxPlayers <= 1 || opts.MaxPlayers > MaxSeats {
		opts.MaxPlayers = MaxSeats
	}
	if opts.MinBuyIn <= 0 {
		opts.MinBuyIn = DefaultMinBuyIn
	}
	if opts.RNG == nil {
		opts.RNG = game.NewRand()
	}
	if buyIn < opts.MinBuyIn {
		return nil, game.Invalid("The buy-in must be at least %d bananas!", opts.MinBuyIn)
	}

	big := opts.BigBlind
	if big <= 0 {
		big = BigBlind(buyIn)
	}
	t := &Table{
		econ:   econ,
		opts:   opts,
		host:   host,
		buyIn:  buyIn,
		big:    big,
		small:  big / 2,
		button: -1,
	}
	if err := t.seat(ctx, host); err != nil {
		return nil, err
	}
	log.Debug().Int64("host", host).Int64("buy_in", buyIn).Int64("big_blind", big).Msg("Hold'em table opened")
	return t, nil
}

func (t *Table) seat(ctx context.Context, user int64) error {
	if err := t.econ.Debit(ctx, user, t.buyIn, model.TxTypeHoldemBuyIn); err != nil {
		if errors.Is(err, game.ErrInsufficientFunds) {
			return game.Broke("You don't have enough bananas for the %d buy-in!", t.buyIn)
		}
		return fmt.Errorf("failed to escrow buy-in: %w", err)
	}
	t.players = append(t.players, &Player{UserID: user, Chips: t.buyIn})
	t.escrowed += t.buyIn
	return nil
}

// Kind implements game.Variant.
func (t *Table) Kind() game.Kind {
	return game.KindTexasHoldem
}

// CanJoin reports whether a seat is open: fewer than the seat limit and no
// hand dealt yet.
func (t *Table) CanJoin() bool {
	return !t.started && len(t.players) < t.opts.MaxPlayers
}

// Join escrows the buy-in and seats the user.
func (t *Table) Join(ctx context.Context, user int64) error {
	if !t.CanJoin() {
		return game.ErrCapacityExceeded
	}
	if t.index(user) >= 0 {
		return game.ErrAlreadyInSession
	}
	return t.seat(ctx, user)
}

// Players returns a snapshot of the seats.
func (t *Table) Players() []Player {
	out := make([]Player, len(t.players))
	for i, p := range t.players {
		out[i] = *p
		out[i].Hole = append([]cards.Card(nil), p.Hole...)
	}
	return out
}

// InHand reports whether a hand is being played.
func (t *Table) InHand() bool {
	return t.inHand
}

// Street returns the current betting round.
func (t *Table) Street() Street {
	return t.street
}

// Board returns the community cards dealt so far.
func (t *Table) Board() []cards.Card {
	return append([]cards.Card(nil), t.board...)
}

// Turn returns the user expected to act, 0 between hands.
func (t *Table) Turn() int64 {
	if !t.inHand {
		return 0
	}
	return t.players[t.turn].UserID
}

// Blinds returns the small and big blind.
func (t *Table) Blinds() (small, big int64) {
	return t.small, t.big
}

// Pot returns the chips committed to the current hand.
func (t *Table) Pot() int64 {
	var pot int64
	for _, p := range t.players {
		pot += p.Committed
	}
	return pot
}

// Escrowed returns the chips bought in and not yet cashed out.
func (t *Table) Escrowed() int64 {
	return t.escrowed - t.paidOut
}

func (t *Table) index(user int64) int {
	for i, p := range t.players {
		if p.UserID == user {
			return i
		}
	}
	return -1
}

// HandleInput implements game.Variant.
func (t *Table) HandleInput(ctx context.Context, in game.Input) (*game.Result, error) {
	i := t.index(in.UserID)
	if i < 0 {
		return nil, game.Violation("You are not seated at this table!")
	}

	switch in.Command() {
	case "list":
		return t.roster(), nil
	case "hand":
		return t.showHand(t.players[i])
	}

	if !t.inHand {
		return t.handleBreak(ctx, in)
	}
	return t.handleBetting(ctx, i, in)
}

// handleBreak serves the lobby and the pause between hands.
func (t *Table) handleBreak(ctx context.Context, in game.Input) (*game.Result, error) {
	isHost := in.UserID == t.host
	switch in.Command() {
	case "start", "deal":
		if !isHost {
			return nil, game.Violation("Only the host can deal.")
		}
		if len(t.players) < 2 {
			return nil, game.Violation("You need at least 2 players to deal.")
		}
		if !t.started {
			t.started = true
			rng := t.opts.RNG
			for i := len(t.players) - 1; i > 0; i-- {
				j := rng.IntN(i + 1)
				t.players[i], t.players[j] = t.players[j], t.players[i]
			}
		}
		return t.startHand(ctx)

	case "end":
		if !isHost {
			return nil, game.Violation("Only the host can close the table.")
		}
		return t.close(ctx, "The table has been closed.")

	case "leave", "cashout":
		if isHost {
			return nil, game.Violation("The host can't leave, use `end` to close the table.")
		}
		p := t.players[t.index(in.UserID)]
		chips := p.Chips
		if err := t.cashOut(ctx, p); err != nil {
			return nil, err
		}
		t.remove(in.UserID)
		res := &game.Result{
			Title:       fmt.Sprintf("%s cashed out %d chips.", game.Mention(in.UserID), chips),
			Description: "Thanks for playing!",
			Removed:     []int64{in.UserID},
		}
		if t.started && len(t.players) < 2 {
			closed, err := t.close(ctx, "Not enough players left, the table has been closed.")
			if err != nil {
				return nil, err
			}
			closed.Title = res.Title
			closed.Removed = res.Removed
			return closed, nil
		}
		return res, nil

	case "check", "call", "raise", "fold", "allin":
		return nil, game.Violation("No hand is being played. The host can `deal`.")

	default:
		if isHost {
			return nil, game.Invalid("Options: deal, end, list, hand")
		}
		return nil, game.Invalid("Options: cashout, list, hand")
	}
}

func (t *Table) cashOut(ctx context.Context, p *Player) error {
	if p.Chips > 0 {
		if err := t.econ.Credit(ctx, p.UserID, p.Chips, model.TxTypeHoldemCashout); err != nil {
			return fmt.Errorf("failed to cash out chips: %w", err)
		}
		t.paidOut += p.Chips
	}
	p.Chips = 0
	return nil
}

func (t *Table) close(ctx context.Context, msg string) (*game.Result, error) {
	var b strings.Builder
	for _, p := range t.players {
		fmt.Fprintf(&b, "%s cashed out %d chips\n", game.Mention(p.UserID), p.Chips)
		if err := t.cashOut(ctx, p); err != nil {
			return nil, err
		}
	}
	log.Info().Int64("host", t.host).Int("hands", t.hands).Int64("escrowed", t.escrowed).Int64("paid_out", t.paidOut).Msg("Hold'em table closed")
	return &game.Result{
		Title:       msg,
		Description: strings.TrimRight(b.String(), "\n"),
		Terminated:  true,
	}, nil
}

// remove drops a seat, keeping the button on the same player or, when
// the button leaves, so the next hand's button is the seat after it.
func (t *Table) remove(user int64) {
	i := t.index(user)
	if i < 0 {
		return
	}
	t.players = append(t.players[:i], t.players[i+1:]...)
	if i <= t.button {
		t.button--
	}
	if user == t.host && len(t.players) > 0 {
		t.host = t.players[0].UserID
	}
}

// Host returns the player who deals and closes the table. The seat passes
// on when the host busts.
func (t *Table) Host() int64 {
	return t.host
}

// Expire returns the chips of an unfinished hand to their owners and cashes
// everyone out.
func (t *Table) Expire(ctx context.Context) (*game.Result, error) {
	if t.inHand {
		for _, p := range t.players {
			p.Chips += p.Committed
			p.Committed = 0
			p.Bet = 0
		}
		t.inHand = false
	}
	return t.close(ctx, "The table timed out and has been closed.")
}

func (t *Table) showHand(p *Player) (*game.Result, error) {
	if len(p.Hole) == 0 {
		return nil, game.Violation("You haven't been dealt any cards.")
	}
	res := &game.Result{
		Title:       "Your hand",
		Description: cards.Join(p.Hole),
		Private:     true,
	}
	if len(t.board) >= 3 {
		if desc, err := describe(p.Hole, t.board); err == nil {
			res.AddField("Best hand", desc, false)
		}
	}
	return res, nil
}

// Opening implements game.Opener.
func (t *Table) Opening() *game.Result {
	res := t.roster()
	res.Title = "Texas Hold'em table opened!"
	res.Description = "Players can join with `join <code>`. The host types `deal` once at least two are seated."
	return res
}

func (t *Table) roster() *game.Result {
	var b strings.Builder
	for i, p := range t.players {
		fmt.Fprintf(&b, "%s: %d chips", game.Mention(p.UserID), p.Chips)
		switch {
		case t.inHand && p.Folded:
			b.WriteString(" (folded)")
		case t.inHand && p.AllIn:
			b.WriteString(" (all in)")
		case t.inHand && i == t.turn:
			b.WriteString(" ⬅")
		}
		if p.UserID == t.host {
			b.WriteString(" (host)")
		}
		b.WriteString("\n")
	}
	res := &game.Result{
		Title:       "Players at your table",
		Description: strings.TrimRight(b.String(), "\n"),
	}
	res.AddField("Buy-in", strconv.FormatInt(t.buyIn, 10), true)
	res.AddField("Blinds", fmt.Sprintf("%d/%d", t.small, t.big), true)
	if t.inHand {
		res.AddField("Pot", strconv.FormatInt(t.Pot(), 10), true)
	}
	return res
}

// state renders the public view of the hand in progress.
func (t *Table) state() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", t.street)
	if len(t.board) > 0 {
		fmt.Fprintf(&b, ": %s", cards.Join(t.board))
	}
	fmt.Fprintf(&b, "\nPot: %d", t.Pot())
	p := t.players[t.turn]
	fmt.Fprintf(&b, "\nIt is %s's turn", game.Mention(p.UserID))
	if owed := t.currentBet - p.Bet; owed > 0 {
		fmt.Fprintf(&b, " (%d to call, %d behind)", owed, p.Chips)
	} else {
		fmt.Fprintf(&b, " (%d behind)", p.Chips)
	}
	return b.String()
}
