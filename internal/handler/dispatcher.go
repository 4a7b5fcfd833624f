package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/game/session"
	"banana-bot/internal/metrics"
)

// InputObserver is told about every input routed to a session.
// *metrics.Metrics satisfies it.
type InputObserver interface {
	ObserveInput(outcome string, d time.Duration)
}

// Dispatcher is the engine's face towards the chat shell: it creates
// sessions, joins users to them and forwards free-text chat.
type Dispatcher struct {
	sessions *session.Manager
	renderer Renderer
	observer InputObserver
}

// NewDispatcher creates a dispatcher. A nil renderer means TextRenderer;
// observer may be nil.
func NewDispatcher(sessions *session.Manager, renderer Renderer, observer InputObserver) *Dispatcher {
	if renderer == nil {
		renderer = TextRenderer{}
	}
	return &Dispatcher{sessions: sessions, renderer: renderer, observer: observer}
}

// Sessions returns the registry.
func (d *Dispatcher) Sessions() *session.Manager {
	return d.sessions
}

// Renderer returns the renderer replies are built with.
func (d *Dispatcher) Renderer() Renderer {
	return d.renderer
}

// CreateSession registers a session hosted by host. build runs once the
// host is known to be free and usually escrows the stake; when it fails
// nothing is registered.
func (d *Dispatcher) CreateSession(ctx context.Context, host int64, build func(ctx context.Context) (game.Variant, error)) (int, *Reply, error) {
	var opening *game.Result
	code, err := d.sessions.Create(ctx, host, func(ctx context.Context) (game.Variant, error) {
		v, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if o, ok := v.(game.Opener); ok {
			opening = o.Opening()
		}
		return v, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return code, d.reply(opening), nil
}

// JoinSession seats user in the session with the given code.
func (d *Dispatcher) JoinSession(ctx context.Context, code int, user int64) error {
	return d.sessions.Join(ctx, code, user)
}

// HandleChatInput forwards a chat message to the sender's session. The
// bool is false when the sender has no session and the shell should
// treat the message as ordinary chat.
func (d *Dispatcher) HandleChatInput(ctx context.Context, user int64, text string, mentions ...int64) (*Reply, bool) {
	start := time.Now()
	res, err := d.sessions.HandleInput(ctx, game.Input{UserID: user, Text: text, Mentions: mentions})
	switch {
	case errors.Is(err, game.ErrNotInSession):
		return nil, false
	case err != nil && game.IsRecoverable(err):
		d.observe(metrics.OutcomeRejected, start)
		return &Reply{Text: "❌ " + game.UserMessage(err)}, true
	case err != nil:
		d.observe(metrics.OutcomeFailed, start)
		log.Error().Err(err).Int64("user_id", user).Msg("Session input failed")
		return &Reply{Text: "❌ " + game.UserMessage(err)}, true
	}

	d.observe(metrics.OutcomeOK, start)
	return d.reply(res), true
}

func (d *Dispatcher) reply(res *game.Result) *Reply {
	if res == nil {
		return nil
	}
	return &Reply{
		Text:       d.renderer.Render(res),
		Private:    res.Private,
		Terminated: res.Terminated,
	}
}

func (d *Dispatcher) observe(outcome string, start time.Time) {
	if d.observer != nil {
		d.observer.ObserveInput(outcome, time.Since(start))
	}
}
