package holdem

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulhankin/poker"

	"banana-bot/internal/game"
	"banana-bot/internal/game/cards"
)

var pokerSuits = map[cards.Suit]poker.Suit{
	cards.Clubs:    poker.Suit(0),
	cards.Diamonds: poker.Suit(1),
	cards.Hearts:   poker.Suit(2),
	cards.Spades:   poker.Suit(3),
}

func toPoker(c cards.Card) (poker.Card, error) {
	s, ok := pokerSuits[c.Suit]
	if !ok || c.Rank < cards.Ace || c.Rank > cards.King {
		var none poker.Card
		return none, fmt.Errorf("card %s can't be scored", c)
	}
	return poker.MakeCard(s, poker.Rank(c.Rank))
}

func seven(hole, board []cards.Card) ([7]poker.Card, error) {
	var hand [7]poker.Card
	if len(hole) != 2 || len(board) != 5 {
		return hand, fmt.Errorf("need 2 hole and 5 board cards, got %d and %d", len(hole), len(board))
	}
	for i, c := range append(append([]cards.Card(nil), board...), hole...) {
		pc, err := toPoker(c)
		if err != nil {
			return hand, err
		}
		hand[i] = pc
	}
	return hand, nil
}

// Score ranks the best five of the seven cards; higher is better.
func Score(hole, board []cards.Card) (int16, error) {
	hand, err := seven(hole, board)
	if err != nil {
		return 0, err
	}
	return poker.Eval7(&hand), nil
}

// describe names the best hand made so far from at least five cards.
func describe(hole, board []cards.Card) (string, error) {
	all := append(append([]cards.Card(nil), board...), hole...)
	pcs := make([]poker.Card, 0, len(all))
	for _, c := range all {
		pc, err := toPoker(c)
		if err != nil {
			return "", err
		}
		pcs = append(pcs, pc)
	}
	return poker.Describe(pcs)
}

// pot is a main or side pot: chips and the seats that can win them.
type pot struct {
	amount   int64
	eligible []int
}

// pots slices the hand's contributions into a main pot and side pots.
// Each level is the smallest outstanding contribution; folded players pay
// into a level but can't win it.
func (t *Table) pots() []pot {
	remaining := make([]int64, len(t.players))
	for i, p := range t.players {
		remaining[i] = p.Committed
	}

	var out []pot
	var carry int64
	for {
		var level int64
		for _, r := range remaining {
			if r > 0 && (level == 0 || r < level) {
				level = r
			}
		}
		if level == 0 {
			break
		}
		pt := pot{amount: carry}
		carry = 0
		for i, r := range remaining {
			if r == 0 {
				continue
			}
			pt.amount += level
			remaining[i] -= level
			if !t.players[i].Folded {
				pt.eligible = append(pt.eligible, i)
			}
		}
		if len(pt.eligible) == 0 {
			carry = pt.amount
			continue
		}
		out = append(out, pt)
	}
	if carry > 0 && len(out) > 0 {
		out[len(out)-1].amount += carry
	}
	return out
}

// fromButton orders seats by position, first seat left of the button first.
func (t *Table) fromButton(seats []int) []int {
	n := len(t.players)
	ordered := make([]int, 0, len(seats))
	for k := 1; k <= n; k++ {
		j := (t.button + k) % n
		for _, s := range seats {
			if s == j {
				ordered = append(ordered, j)
			}
		}
	}
	return ordered
}

func (t *Table) showdown(ctx context.Context) (*game.Result, error) {
	scores := make(map[int]int16)
	var b strings.Builder
	fmt.Fprintf(&b, "Board: %s\n", cards.Join(t.board))
	for i, p := range t.players {
		if p.Folded {
			continue
		}
		s, err := Score(p.Hole, t.board)
		if err != nil {
			return nil, fmt.Errorf("failed to score hand: %w", err)
		}
		scores[i] = s
		desc, err := describe(p.Hole, t.board)
		if err != nil {
			return nil, fmt.Errorf("failed to describe hand: %w", err)
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", game.Mention(p.UserID), cards.Join(p.Hole), desc)
	}

	won := make(map[int]int64)
	for _, pt := range t.pots() {
		var best int16
		var winners []int
		for _, s := range t.fromButton(pt.eligible) {
			switch {
			case len(winners) == 0 || scores[s] > best:
				best = scores[s]
				winners = []int{s}
			case scores[s] == best:
				winners = append(winners, s)
			}
		}
		share, rem := pt.amount/int64(len(winners)), pt.amount%int64(len(winners))
		for k, w := range winners {
			win := share
			if int64(k) < rem {
				win++
			}
			t.players[w].Chips += win
			won[w] += win
		}
	}

	for _, i := range t.fromButton(keys(won)) {
		fmt.Fprintf(&b, "%s wins %d chips!\n", game.Mention(t.players[i].UserID), won[i])
	}
	return t.endHand(ctx, strings.TrimRight(b.String(), "\n"))
}

func (t *Table) awardUncontested(ctx context.Context) (*game.Result, error) {
	pot := t.Pot()
	for _, p := range t.players {
		if !p.Folded {
			p.Chips += pot
			return t.endHand(ctx, fmt.Sprintf("%s wins %d chips, everyone else folded.", game.Mention(p.UserID), pot))
		}
	}
	return t.endHand(ctx, "Everyone folded.")
}

func keys(m map[int]int64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
