// Package bot adapts the chat-agnostic handlers to Telegram.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"banana-bot/internal/config"
	"banana-bot/internal/game/session"
	"banana-bot/internal/handler"
	"banana-bot/internal/service"
	"banana-bot/internal/shop"
)

// handlerTimeout bounds one update, lock waits included.
const handlerTimeout = 15 * time.Second

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot        *tele.Bot
	cfg        *config.Config
	accounts   *service.AccountService
	router     *handler.Router
	dispatcher *handler.Dispatcher
	shop       *handler.ShopHandler

	ctx context.Context
}

// Dependencies holds everything the bot routes updates to.
type Dependencies struct {
	Config     *config.Config
	Accounts   *service.AccountService
	Router     *handler.Router
	Dispatcher *handler.Dispatcher
	Shop       *handler.ShopHandler
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: deps.Config.Bot.PollTimeout},
	}
	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newBot(teleBot, deps), nil
}

func newBot(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:        teleBot,
		cfg:        deps.Config,
		accounts:   deps.Accounts,
		router:     deps.Router,
		dispatcher: deps.Dispatcher,
		shop:       deps.Shop,
		ctx:        context.Background(),
	}
	b.registerMiddleware()
	b.registerHandlers()
	return b
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(AccountMiddleware(b.accounts))
}

func (b *Bot) registerHandlers() {
	for _, cmd := range b.router.Commands() {
		b.bot.Handle("/"+cmd, b.handleCommand)
	}
	b.bot.Handle("/help", func(c tele.Context) error {
		return c.Send(b.router.Help())
	})
	b.bot.Handle(tele.OnText, b.handleText)
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) handleCommand(c tele.Context) error {
	msg := c.Message()
	if msg == nil || c.Sender() == nil {
		return nil
	}
	cmd, args := ParseCommand(msg.Text)
	ctx, cancel := b.requestContext(c)
	defer cancel()

	reply, ok := b.router.Dispatch(ctx, cmd, buildRequest(c, args))
	if !ok {
		return nil
	}
	return b.send(c, reply)
}

// handleText forwards plain chat to the sender's game, if any.
func (b *Bot) handleText(c tele.Context) error {
	msg := c.Message()
	if msg == nil || c.Sender() == nil {
		return nil
	}
	ctx, cancel := b.requestContext(c)
	defer cancel()

	reply, ok := b.dispatcher.HandleChatInput(ctx, c.Sender().ID, msg.Text, mentions(msg)...)
	if !ok {
		return nil
	}
	return b.send(c, reply)
}

func (b *Bot) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return nil
	}
	data := strings.TrimPrefix(cb.Data, "\f")
	if !strings.HasPrefix(data, shop.CallbackBuy) {
		log.Debug().Str("data", data).Msg("Unknown callback")
		return c.Respond()
	}

	ctx, cancel := b.requestContext(c)
	defer cancel()
	reply := b.shop.HandleBuyCallback(ctx, c.Sender().ID, data)
	if err := c.Respond(&tele.CallbackResponse{Text: reply.Text}); err != nil {
		log.Warn().Err(err).Msg("Failed to answer callback")
	}
	return b.send(c, reply)
}

// send delivers a reply. Private replies go to the sender directly.
func (b *Bot) send(c tele.Context, reply *handler.Reply) error {
	if reply == nil || reply.Text == "" {
		return nil
	}
	var opts []interface{}
	if reply.Markup != nil {
		opts = append(opts, reply.Markup)
	}

	if reply.Private && c.Chat() != nil && c.Chat().Type != tele.ChatPrivate {
		if _, err := b.bot.Send(tele.ChatID(c.Sender().ID), reply.Text, opts...); err != nil {
			log.Warn().Err(err).Int64("user_id", c.Sender().ID).Msg("Failed to send private reply")
			return c.Reply("📬 I couldn't DM you. Start a private chat with me first!")
		}
		return nil
	}
	return c.Send(reply.Text, opts...)
}

// Notify sends a message to a user's private chat.
func (b *Bot) Notify(userID int64, text string) {
	if _, err := b.bot.Send(tele.ChatID(userID), text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to notify user")
	}
}

// NotifyMining reports a finished mining trip to the miner.
func (b *Bot) NotifyMining(_ context.Context, out service.MiningOutcome) {
	b.Notify(out.Job.UserID, FormatMiningOutcome(out))
}

// NotifyExpired tells every member of a reaped session what happened.
func (b *Bot) NotifyExpired(exp session.Expired) {
	text := fmt.Sprintf("⌛ Game #%d was closed for inactivity.", exp.Code)
	if exp.Result != nil {
		text += "\n" + b.dispatcher.Renderer().Render(exp.Result)
	}
	for _, u := range exp.Participants {
		b.Notify(u, text)
	}
}

// FormatMiningOutcome renders a finished mining trip.
func FormatMiningOutcome(out service.MiningOutcome) string {
	switch {
	case out.Err != nil:
		return "⛏️ Something went wrong down in the mine. Try again later."
	case out.Enemy != nil:
		return fmt.Sprintf("⛏️ While mining you ran into a %s! Game #%d: fight with `attack`, `item #` or `run`.", out.Enemy.Name, out.SessionCode)
	default:
		text := fmt.Sprintf("⛏️ You mined %d sludge and sold it for %d bananas!", out.Sludge, out.Bananas)
		if out.SuperNanners > 0 {
			text += fmt.Sprintf(" You also found %d super nanners ⭐", out.SuperNanners)
		}
		return text
	}
}

// Start polls for updates until Stop. ctx is the parent of every
// request context.
func (b *Bot) Start(ctx context.Context) {
	b.ctx = ctx
	log.Info().Strs("commands", b.router.Commands()).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

func (b *Bot) requestContext(c tele.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	if id, ok := c.Get(requestIDKey).(string); ok {
		ctx = log.With().Str("request_id", id).Logger().WithContext(ctx)
	}
	return ctx, cancel
}

// ParseCommand splits "/cmd@botname a b" into "cmd" and its arguments.
func ParseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

func buildRequest(c tele.Context, args []string) *handler.Request {
	req := &handler.Request{Args: args}
	if s := c.Sender(); s != nil {
		req.UserID = s.ID
		req.Username = s.Username
	}
	if chat := c.Chat(); chat != nil {
		req.ChatID = chat.ID
	}
	if msg := c.Message(); msg != nil {
		req.Mentions = mentions(msg)
	}
	return req
}

// mentions returns users referenced by the message: text mentions in
// order, then the author of the message being replied to.
func mentions(msg *tele.Message) []int64 {
	var out []int64
	for _, e := range msg.Entities {
		if e.Type == tele.EntityTMention && e.User != nil {
			out = append(out, e.User.ID)
		}
	}
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && !msg.ReplyTo.Sender.IsBot {
		out = append(out, msg.ReplyTo.Sender.ID)
	}
	return out
}
