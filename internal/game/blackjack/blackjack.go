// Package blackjack implements single-player blackjack against the dealer,
// with insurance, splits up to four hands and double down.
package blackjack

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
	// DefaultDecks is the shoe size; 6 packs cannot run out in one session.
	DefaultDecks = 6

	// DefaultMinBet is the smallest stake, and the smallest explicit double.
	DefaultMinBet = 5

	// DealerStandsOn is the total at which the dealer stops drawing.
	DealerStandsOn = 17
)

// Options configures a new game.
type Options struct {
	Decks  int
	MinBet int64
	RNG    game.RNG
	Deck   *cards.Deck // pre-built shoe; shuffled from RNG when nil
}

// Game is one blackjack session.
type Game struct {
	econ   game.Economy
	player int64
	deck   *cards.Deck
	minBet int64

	dealer      []cards.Card
	hands       []*Hand
	current     int
	originalBet int64
	turn        int
	insurance   bool
}

// New escrows the bet and deals the opening cards: player, dealer,
// player, dealer. Insurance is offered when the dealer shows an ace or a
// ten-valued card.
func New(ctx context.Context, econ game.Economy, player, bet int64, opts Options) (*Game, error) {
	minBet := opts.MinBet
	if minBet <= 0 {
		minBet = DefaultMinBet
	}
	if bet < minBet {
		return nil, game.Invalid("You must bet at least %d bananas!", minBet)
	}

	deck := opts.Deck
	if deck == nil {
		decks := opts.Decks
		if decks <= 0 {
			decks = DefaultDecks
		}
		rng := opts.RNG
		if rng == nil {
			rng = game.NewRand()
		}
		deck = cards.NewDeck(decks, false)
		deck.Shuffle(rng)
	}

	if err := econ.Debit(ctx, player, bet, model.TxTypeBlackjackBet); err != nil {
		if errors.Is(err, game.ErrInsufficientFunds) {
			return nil, game.Broke("You too poor!")
		}
		return nil, fmt.Errorf("failed to escrow blackjack bet: %w", err)
	}

	g := &Game{
		econ:        econ,
		player:      player,
		deck:        deck,
		minBet:      minBet,
		hands:       []*Hand{{Bet: bet}},
		originalBet: bet,
	}
	g.hands[0].Cards = append(g.hands[0].Cards, deck.MustDeal())
	g.dealer = append(g.dealer, deck.MustDeal())
	g.hands[0].Cards = append(g.hands[0].Cards, deck.MustDeal())
	g.dealer = append(g.dealer, deck.MustDeal())

	up := g.dealer[0]
	g.insurance = up.Rank == cards.Ace || IsTenValue(up)

	log.Debug().
		Int64("user_id", player).
		Int64("bet", bet).
		Bool("insurance", g.insurance).
		Msg("Blackjack dealt")
	return g, nil
}

// Kind implements game.Variant.
func (g *Game) Kind() game.Kind {
	return game.KindBlackJack
}

// Hands returns the player's hands.
func (g *Game) Hands() []*Hand {
	return g.hands
}

// Dealer returns the dealer's cards.
func (g *Game) Dealer() []cards.Card {
	return g.dealer
}

// InsuranceOffered reports whether the game is waiting for yes/no.
func (g *Game) InsuranceOffered() bool {
	return g.insurance
}

func (g *Game) hand() *Hand {
	return g.hands[g.current]
}

// HandleInput implements game.Variant.
func (g *Game) HandleInput(ctx context.Context, in game.Input) (*game.Result, error) {
	if in.UserID != g.player {
		return nil, game.Violation("This isn't your game!")
	}
	if g.insurance {
		return g.handleInsurance(ctx, in)
	}

	h := g.hand()
	switch in.Command() {
	case "hit":
		if IsBlackjack(h.Cards) {
			return nil, game.Violation("You have blackjack! You can only stand.")
		}
		g.hit()
		if h.Busted() {
			return g.resolve(ctx)
		}
		return g.render("You hit! Me looking forward to stealing those nanners!", false), nil

	case "stand":
		g.stand()
		return g.resolve(ctx)

	case "split":
		if !CanSplit(h, len(g.hands)) {
			return nil, game.Violation("You can't split that hand!")
		}
		if err := g.econ.Debit(ctx, g.player, g.originalBet, model.TxTypeBlackjackBet); err != nil {
			if errors.Is(err, game.ErrInsufficientFunds) {
				return nil, game.Broke("You do not have enough bananas to split!")
			}
			return nil, fmt.Errorf("failed to debit split bet: %w", err)
		}
		second := h.Cards[1]
		h.Cards = h.Cards[:1]
		g.hands = append(g.hands, &Hand{Cards: []cards.Card{second}, Bet: g.originalBet})
		g.hit()
		// Every split hand starts fresh and may still double.
		g.turn = 0
		return g.render("You split! Me for sure gonna win now!", false), nil

	case "double":
		if g.turn != 0 || IsBlackjack(h.Cards) {
			return nil, game.Violation("You can only double down as your first move!")
		}
		amount := g.originalBet
		if args := in.Args(); len(args) > 0 {
			v, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return nil, game.Invalid("You must provide a valid amount to double down with!")
			}
			if v < DefaultMinBet || v >= h.Bet {
				return nil, game.Invalid("You must provide a valid amount to double down with! (%d to %d)", DefaultMinBet, h.Bet-1)
			}
			amount = v
		}
		if err := g.econ.Debit(ctx, g.player, amount, model.TxTypeBlackjackBet); err != nil {
			if errors.Is(err, game.ErrInsufficientFunds) {
				return nil, game.Broke("You do not have enough bananas to double down with!")
			}
			return nil, fmt.Errorf("failed to debit double down: %w", err)
		}
		h.Bet += amount
		g.hit()
		g.stand()
		return g.resolve(ctx)

	case "help":
		return g.render(g.hint(), false), nil

	default:
		return nil, game.Invalid("Me no understand what you say. Options: %s", strings.Join(g.Options(), ", "))
	}
}

func (g *Game) handleInsurance(ctx context.Context, in game.Input) (*game.Result, error) {
	switch in.Command() {
	case "yes":
		cost := g.originalBet / 2
		if err := g.econ.Debit(ctx, g.player, cost, model.TxTypeBlackjackBet); err != nil {
			if errors.Is(err, game.ErrInsufficientFunds) {
				return nil, game.Broke("You do not have enough bananas for insurance!")
			}
			return nil, fmt.Errorf("failed to debit insurance: %w", err)
		}
		g.insurance = false

		if IsBlackjack(g.hand().Cards) {
			if err := g.pay(ctx, g.originalBet+cost); err != nil {
				return nil, err
			}
			return g.render("You go straight to point. I like that. We push.. this time", true), nil
		}
		if IsBlackjack(g.dealer) {
			if err := g.pay(ctx, cost*3); err != nil {
				return nil, err
			}
			return g.render("George has blackjack! Your insurance pays out, but the bet is mine.", true), nil
		}
		return g.render("George does not have blackjack. You lose your insurance.", false), nil

	case "no":
		g.insurance = false
		if IsBlackjack(g.dealer) {
			return g.render("George has blackjack! You loose!", true), nil
		}
		return g.render("Game has begun!", false), nil

	default:
		return nil, game.Invalid("Me no understand. Do you want insurance? (yes/no)")
	}
}

func (g *Game) hit() {
	h := g.hand()
	h.Cards = append(h.Cards, g.deck.MustDeal())
	g.turn++
}

func (g *Game) stand() {
	g.turn++
	for Score(g.dealer) < DealerStandsOn {
		g.dealer = append(g.dealer, g.deck.MustDeal())
	}
}

func (g *Game) pay(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := g.econ.Credit(ctx, g.player, amount, model.TxTypeBlackjackWin); err != nil {
		return fmt.Errorf("failed to pay blackjack winnings: %w", err)
	}
	return nil
}

// Payout returns what a resolved hand returns to the player, including
// the bet itself: 0 on a loss, the bet on a push, twice the bet on a win
// and two and a half times the bet (rounded) on a natural.
func Payout(h *Hand, dealer []cards.Card) int64 {
	player, house := h.Score(), Score(dealer)
	switch {
	case player > 21:
		return 0
	case player == house:
		return h.Bet
	case house > 21 || player > house:
		if IsBlackjack(h.Cards) {
			return (h.Bet*5 + 1) / 2
		}
		return h.Bet * 2
	default:
		return 0
	}
}

// resolve settles the current hand and moves to the next split hand, if any.
func (g *Game) resolve(ctx context.Context) (*game.Result, error) {
	h := g.hand()
	score, house := h.Score(), Score(g.dealer)

	var msg string
	switch {
	case score > 21:
		msg = fmt.Sprintf("You bust with %d. Me win! Me eat good tonight!", score)
	case score == house:
		msg = fmt.Sprintf("We tie at %d. Me no like tie. Me hungry for nanners!", house)
	case house > 21 || score > house:
		msg = "Me no like when you win. Now me gonna starve!"
	default:
		msg = fmt.Sprintf("Me win with %d! You loose! Me eat good tonight!", house)
	}
	if err := g.pay(ctx, Payout(h, g.dealer)); err != nil {
		return nil, err
	}

	if g.current < len(g.hands)-1 {
		g.current++
		g.hit()
		g.turn = 0
		return g.render("**NEXT HAND** "+msg, false), nil
	}
	return g.render(msg, true), nil
}

// Options lists the commands valid right now.
func (g *Game) Options() []string {
	if g.insurance {
		return []string{"yes", "no"}
	}
	h := g.hand()
	var opts []string
	if !IsBlackjack(h.Cards) {
		opts = append(opts, "hit")
	}
	opts = append(opts, "stand")
	if CanSplit(h, len(g.hands)) {
		opts = append(opts, "split")
	}
	if g.turn == 0 && !IsBlackjack(h.Cards) {
		opts = append(opts, "double")
	}
	return opts
}

func (g *Game) hint() string {
	h := g.hand()
	up := g.dealer[0]
	switch s := h.Score(); {
	case s <= 9:
		return "Me thinks you should hit big friend"
	case s == 10 || s == 11:
		if g.turn == 0 {
			return "Me think it time for BIG DUblE"
		}
		return "Me thinks you hit"
	case s == 12 && len(h.Cards) == 2 && h.Cards[0].Rank == cards.Ace && h.Cards[1].Rank == cards.Ace:
		return "Me thinks you should split"
	case s <= 16:
		if up.BlackjackValue() >= 7 {
			return "Me thinks u only option to hit"
		}
		return "Me think u in no gud spot maybe stand?"
	case s <= 20:
		return "me thinks u shud stand"
	default:
		return "u so stoopid if u need help wit this"
	}
}

func (g *Game) render(msg string, done bool) *game.Result {
	res := &game.Result{
		Title:       "Blackjack",
		Description: msg,
		Terminated:  done,
	}
	h := g.hand()
	name := "Your Hand"
	if len(g.hands) > 1 {
		name = fmt.Sprintf("Your Hand (%d/%d)", g.current+1, len(g.hands))
	}
	res.AddField(name, h.String(), true)
	if done {
		res.AddField("George's Hand", fmt.Sprintf("%s (%d)", cards.Join(g.dealer), Score(g.dealer)), true)
	} else {
		res.AddField("George's Hand", g.dealer[0].String()+" ??", true)
		res.AddField("Options", strings.Join(g.Options(), ", "), false)
	}
	res.AddField("Bet", strconv.FormatInt(h.Bet, 10), true)
	return res
}

// Opening implements game.Opener.
func (g *Game) Opening() *game.Result {
	if g.insurance {
		return g.render("George shows "+g.dealer[0].String()+". Want insurance? (yes/no)", false)
	}
	return g.render(g.hint(), false)
}

// Expire forfeits the bets in play; nothing is refunded.
func (g *Game) Expire(context.Context) (*game.Result, error) {
	return g.render("You took too long. George keeps the nanners.", true), nil
}
