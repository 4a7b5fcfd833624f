package bot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"banana-bot/internal/config"
	"banana-bot/internal/service"
)

const requestIDKey = "request_id"

// privateUsers tracks users seen in a whitelisted group, who may then use
// the bot in private chat (game DMs, mining reports).
type privateUsers struct {
	mu    sync.RWMutex
	users map[int64]bool
}

func (p *privateUsers) allow(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = true
}

func (p *privateUsers) allowed(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users[userID]
}

// WhitelistMiddleware drops updates from chats outside the whitelist. An
// empty whitelist allows every chat.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	seen := &privateUsers{users: make(map[int64]bool)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || seen.allowed(sender.ID) {
					return next(c)
				}
				log.Debug().Int64("user_id", sender.ID).Msg("Ignoring private chat from user not seen in a whitelisted group")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().Int64("chat_id", chat.ID).Msg("Ignoring update from non-whitelisted chat")
				return nil
			}
			seen.allow(sender.ID)
			return next(c)
		}
	}
}

// AccountMiddleware makes sure the sender has an account and that its
// username is current before any handler runs.
func AccountMiddleware(accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.IsBot {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()
			if _, _, err := accounts.EnsureUser(ctx, sender.ID, sender.Username); err != nil {
				log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure account")
				return c.Send("❌ Something went wrong, try again later.")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware tags every update with a request id and logs it.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			id := uuid.NewString()
			c.Set(requestIDKey, id)

			ev := log.Debug().Str("request_id", id)
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			ev.Str("text", c.Text()).Msg("Received update")

			start := time.Now()
			err := next(c)
			if err != nil {
				log.Warn().Err(err).Str("request_id", id).Msg("Handler returned error")
			}
			log.Debug().Str("request_id", id).Dur("took", time.Since(start)).Msg("Update handled")
			return err
		}
	}
}

// RecoveryMiddleware turns handler panics into an apology.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Recovered from panic in handler")
					err = c.Send("❌ Something went wrong, try again later.")
				}
			}()
			return next(c)
		}
	}
}
