// Package cards models playing cards and multi-pack decks.
package cards

import (
	"errors"
	"fmt"

	"banana-bot/internal/game"
)

// ErrEmptyDeck is returned when dealing from an exhausted deck.
var ErrEmptyDeck = errors.New("deck is empty")

// Suit of a card.
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// Suits lists every suit in pack order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

func (s Suit) String() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Rank of a card. Ace is 1 and King is 13; Joker sits outside the pack order.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Joker
)

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Joker:
		return "🃏"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// Card is an immutable card value.
type Card struct {
	Rank Rank
	Suit Suit
}

// New builds a card.
func New(r Rank, s Suit) Card {
	return Card{Rank: r, Suit: s}
}

func (c Card) String() string {
	if c.Rank == Joker {
		return c.Rank.String()
	}
	return c.Rank.String() + c.Suit.String()
}

// BlackjackValue is the card's default blackjack count: aces 11, tens and
// faces 10, jokers 0.
func (c Card) BlackjackValue() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= Ten && c.Rank <= King:
		return 10
	case c.Rank == Joker:
		return 0
	default:
		return int(c.Rank)
	}
}

// Deck is an ordered pile of cards. The last element is the top.
type Deck struct {
	cards []Card
}

// NewDeck builds packs standard 52-card packs, plus two jokers per pack
// when jokers is set. The deck is not shuffled.
func NewDeck(packs int, jokers bool) *Deck {
	size := 52 * packs
	if jokers {
		size += 2 * packs
	}
	d := &Deck{cards: make([]Card, 0, size)}
	for p := 0; p < packs; p++ {
		for _, s := range Suits {
			for r := Ace; r <= King; r++ {
				d.cards = append(d.cards, New(r, s))
			}
		}
		if jokers {
			d.cards = append(d.cards, New(Joker, Hearts), New(Joker, Diamonds))
		}
	}
	return d
}

// Stacked builds a deck that deals the given cards in order.
func Stacked(deal ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(deal))}
	for i, c := range deal {
		d.cards[len(deal)-1-i] = c
	}
	return d
}

// Shuffle performs an in-place Fisher-Yates shuffle.
func (d *Deck) Shuffle(rng game.RNG) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card.
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, nil
}

// MustDeal deals a card and panics on an empty deck. Games size their
// decks so a session can never exhaust them.
func (d *Deck) MustDeal() Card {
	c, err := d.Deal()
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of cards left.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, bottom first.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}

// Join renders cards separated by spaces.
func Join(cs []Card) string {
	out := ""
	for i, c := range cs {
		if i > 0 {
			out += " "
		}
		out += c.String()
	}
	return out
}
