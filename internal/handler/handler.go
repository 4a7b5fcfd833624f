// Package handler turns chat commands into service calls and routes
// free-text chat to running game sessions. It knows nothing about the
// chat platform; internal/bot adapts it to Telegram.
package handler

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"banana-bot/internal/game"
	"banana-bot/internal/pkg/lock"
)

// Request is one inbound command.
type Request struct {
	UserID   int64
	Username string
	ChatID   int64
	Args     []string // tokens after the command
	Mentions []int64  // resolved by the chat shell, in message order
}

// Arg returns the i-th argument, "" when missing.
func (r *Request) Arg(i int) string {
	if i < len(r.Args) {
		return r.Args[i]
	}
	return ""
}

// Target returns the first mentioned user, falling back to @123 style
// arguments.
func (r *Request) Target() (int64, bool) {
	return game.Input{Mentions: r.Mentions, Text: "cmd " + strings.Join(r.Args, " ")}.Target()
}

// Reply is what the shell should send back.
type Reply struct {
	Text       string
	Private    bool // send to the acting user only
	Terminated bool // the session this reply belongs to has ended
	Markup     *tele.ReplyMarkup
}

func text(s string) *Reply {
	return &Reply{Text: s}
}

// HandlerFunc handles one command.
type HandlerFunc func(ctx context.Context, req *Request) (*Reply, error)

type route struct {
	fn    HandlerFunc
	help  string
	admin bool
}

// Router maps command names to handlers.
type Router struct {
	routes  map[string]route
	isAdmin func(userID int64) bool
}

// NewRouter creates an empty router. isAdmin gates admin routes; nil
// means nobody is an admin.
func NewRouter(isAdmin func(userID int64) bool) *Router {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Router{routes: make(map[string]route), isAdmin: isAdmin}
}

// Handle registers a command.
func (r *Router) Handle(command, help string, fn HandlerFunc) {
	r.routes[command] = route{fn: fn, help: help}
}

// HandleAdmin registers a command only admins may run.
func (r *Router) HandleAdmin(command, help string, fn HandlerFunc) {
	r.routes[command] = route{fn: fn, help: help, admin: true}
}

// Commands returns the registered command names in sorted order.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.routes))
	for c := range r.routes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Help lists the non-admin commands.
func (r *Router) Help() string {
	var b strings.Builder
	b.WriteString("🍌 Commands\n")
	for _, c := range r.Commands() {
		if rt := r.routes[c]; !rt.admin {
			b.WriteString("/" + c + " " + rt.help + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Dispatch runs a command. The bool is false for unknown commands.
// Errors never escape: recoverable ones become the user-facing message,
// the rest are logged and replaced with a generic apology.
func (r *Router) Dispatch(ctx context.Context, command string, req *Request) (*Reply, bool) {
	rt, ok := r.routes[strings.ToLower(command)]
	if !ok {
		return nil, false
	}
	if rt.admin && !r.isAdmin(req.UserID) {
		return text("❌ You are not allowed to do that."), true
	}

	reply, err := rt.fn(ctx, req)
	if err != nil {
		return errorReply(err, req.UserID, command), true
	}
	return reply, true
}

func errorReply(err error, userID int64, what string) *Reply {
	switch {
	case game.IsRecoverable(err),
		errors.Is(err, game.ErrNotInSession),
		errors.Is(err, game.ErrSessionNotFound),
		errors.Is(err, game.ErrAlreadyInSession),
		errors.Is(err, game.ErrCapacityExceeded):
		log.Debug().Err(err).Int64("user_id", userID).Str("command", what).Msg("Command rejected")
		return text("❌ " + game.UserMessage(err))
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return text("⏳ You're doing too much at once, try again.")
	default:
		log.Error().Err(err).Int64("user_id", userID).Str("command", what).Msg("Command failed")
		return text("❌ " + game.UserMessage(err))
	}
}
