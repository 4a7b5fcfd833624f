package blackjack

import (
	"fmt"

	"banana-bot/internal/game/cards"
)

// MaxHands is the most hands a player can hold after splitting.
const MaxHands = 4

// Hand is one player hand and the bet riding on it.
type Hand struct {
	Cards []cards.Card
	Bet   int64
}

// Score returns the soft-ace-aware total of the hand.
func (h *Hand) Score() int {
	return Score(h.Cards)
}

// Busted reports a total over 21.
func (h *Hand) Busted() bool {
	return h.Score() > 21
}

func (h *Hand) String() string {
	return fmt.Sprintf("%s (%d)", cards.Join(h.Cards), h.Score())
}

// Score sums card values, then counts aces as 1 instead of 11, one at a
// time, while the total is over 21.
func Score(cs []cards.Card) int {
	total, aces := 0, 0
	for _, c := range cs {
		total += c.BlackjackValue()
		if c.Rank == cards.Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjack reports a natural: exactly two cards totalling 21.
func IsBlackjack(cs []cards.Card) bool {
	return len(cs) == 2 && Score(cs) == 21
}

// IsTenValue reports tens and face cards.
func IsTenValue(c cards.Card) bool {
	return c.Rank >= cards.Ten && c.Rank <= cards.King
}

// CanSplit reports whether h may be split while the player holds
// handCount hands: two cards of equal value (or both ten-valued) and
// room for another hand.
func CanSplit(h *Hand, handCount int) bool {
	if len(h.Cards) != 2 || handCount >= MaxHands {
		return false
	}
	a, b := h.Cards[0], h.Cards[1]
	return a.BlackjackValue() == b.BlackjackValue() || (IsTenValue(a) && IsTenValue(b))
}
