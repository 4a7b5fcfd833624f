// Package game defines the contracts shared by every game the bot runs:
// session variants driven by chat input, instant games settled in one call,
// and the economy/inventory bridge both of them pay through.
package game

import (
	"context"
	"strconv"
	"strings"
)

// Kind tags a session variant. A session never changes kind after creation.
type Kind string

const (
	KindBlackJack    Kind = "blackjack"
	KindPvPArena     Kind = "pvp"
	KindMineBattle   Kind = "mine_battle"
	KindSludgeBattle Kind = "sludge_battle"
	KindTexasHoldem  Kind = "texas_holdem"
)

// Variant is one running game session's state machine.
// HandleInput is only ever called by the goroutine holding the session
// out of the registry, so implementations need no locking of their own.
type Variant interface {
	Kind() Kind

	// HandleInput applies one chat message from a session member.
	// Recoverable errors (see IsRecoverable) leave the state as it was
	// before the call, except for turn bookkeeping documented per variant.
	HandleInput(ctx context.Context, in Input) (*Result, error)
}

// Expirer is implemented by variants that settle stakes when a session
// is reaped for inactivity.
type Expirer interface {
	Expire(ctx context.Context) (*Result, error)
}

// Opener is implemented by variants that have something to show as soon
// as the session exists (dealt cards, a lobby, a creature).
type Opener interface {
	Opening() *Result
}

// Input is one inbound chat message addressed to a session.
type Input struct {
	UserID   int64
	Text     string
	Mentions []int64 // resolved by the chat shell, in message order
}

// Command returns the first whitespace-delimited token, lower-cased.
func (in Input) Command() string {
	fields := strings.Fields(in.Text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Args returns the tokens after the command.
func (in Input) Args() []string {
	fields := strings.Fields(in.Text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// Target returns the first mentioned user. When the shell did not resolve
// mentions, tokens of the form @123, <@123> or <@!123> are accepted.
func (in Input) Target() (int64, bool) {
	if len(in.Mentions) > 0 {
		return in.Mentions[0], true
	}
	for _, tok := range in.Args() {
		tok = strings.TrimPrefix(tok, "<")
		tok = strings.TrimSuffix(tok, ">")
		if !strings.HasPrefix(tok, "@") {
			continue
		}
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "@"), "!")
		if id, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// Mention renders a user reference in the form Target accepts back.
func Mention(userID int64) string {
	return "@" + strconv.FormatInt(userID, 10)
}

// Field is a titled block of a result.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Result is the renderable outcome of one input.
type Result struct {
	Title       string
	Description string
	Fields      []Field
	Thumbnail   string

	// Private results are meant for the acting user only (poker hole cards).
	Private bool

	// Terminated ends the session; the registry frees every member.
	Terminated bool

	// Removed lists members eliminated by this input (PvP deaths,
	// surrenders, busted poker players) who must be freed from the session.
	Removed []int64
}

// AddField appends a field and returns the result for chaining.
func (r *Result) AddField(name, value string, inline bool) *Result {
	r.Fields = append(r.Fields, Field{Name: name, Value: value, Inline: inline})
	return r
}

// GameResult represents the outcome of an instant game.
type GameResult struct {
	Payout      int64          // Net payout (positive = win, negative = loss, 0 = push)
	Description string         // Human-readable result description
	Details     map[string]any // Additional game-specific details
}

// Game is an instant game settled within a single command (slots, 50/50).
type Game interface {
	// Name returns the game's display name.
	Name() string

	// Command returns the command that triggers this game.
	Command() string

	// Description returns a brief description of the game.
	Description() string

	// Play rolls the game for a bet the caller has already validated
	// against the user's balance. It does not move currency.
	Play(ctx context.Context, userID int64, bet int64) (*GameResult, error)

	// ValidateBet checks the bet against the game's limits.
	ValidateBet(bet int64) error

	// MinBet returns the minimum bet, 0 when any positive bet is allowed.
	MinBet() int64
}
