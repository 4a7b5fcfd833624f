package bot

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"banana-bot/internal/config"
	"banana-bot/internal/game/battle"
	"banana-bot/internal/model"
	"banana-bot/internal/service"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func message(b *tele.Bot, chat *tele.Chat, sender int64, text string) tele.Context {
	return b.NewContext(tele.Update{Message: &tele.Message{
		Chat:   chat,
		Sender: &tele.User{ID: sender},
		Text:   text,
	}})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		args []string
	}{
		{"/balance", "balance", []string{}},
		{"/Pay@BananaBot @12 100", "pay", []string{"@12", "100"}},
		{"  /mine   2 ", "mine", []string{"2"}},
		{"", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args := ParseCommand(tt.text)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestMentions(t *testing.T) {
	msg := &tele.Message{
		Entities: tele.Entities{
			{Type: tele.EntityMention},
			{Type: tele.EntityTMention, User: &tele.User{ID: 5}},
			{Type: tele.EntityTMention, User: &tele.User{ID: 6}},
		},
		ReplyTo: &tele.Message{Sender: &tele.User{ID: 7}},
	}
	assert.Equal(t, []int64{5, 6, 7}, mentions(msg))

	msg = &tele.Message{ReplyTo: &tele.Message{Sender: &tele.User{ID: 8, IsBot: true}}}
	assert.Empty(t, mentions(msg))
}

func TestFormatMiningOutcome(t *testing.T) {
	job := service.MiningJob{UserID: 1, Tier: 0}

	paid := FormatMiningOutcome(service.MiningOutcome{Job: job, Sludge: 3, Bananas: 750, SuperNanners: 2})
	assert.Contains(t, paid, "3 sludge")
	assert.Contains(t, paid, "750 bananas")
	assert.Contains(t, paid, "2 super nanners")

	fight := FormatMiningOutcome(service.MiningOutcome{
		Job:         job,
		Enemy:       &battle.Enemy{Name: "Cave Troll", Health: model.R(10, 20)},
		SessionCode: 42,
	})
	assert.Contains(t, fight, "Cave Troll")
	assert.Contains(t, fight, "#42")

	failed := FormatMiningOutcome(service.MiningOutcome{Job: job, Err: errors.New("db down")})
	assert.Contains(t, failed, "went wrong")
}

func TestWhitelistMiddleware(t *testing.T) {
	b := offlineBot(t)
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	mw := WhitelistMiddleware(cfg)

	var reached []int64
	next := mw(func(c tele.Context) error {
		reached = append(reached, c.Sender().ID)
		return nil
	})

	group := &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}
	other := &tele.Chat{ID: -200, Type: tele.ChatGroup}

	require.NoError(t, next(message(b, &tele.Chat{ID: 1, Type: tele.ChatPrivate}, 1, "/balance")))
	require.NoError(t, next(message(b, other, 1, "/balance")))
	assert.Empty(t, reached, "unknown private users and foreign groups are ignored")

	require.NoError(t, next(message(b, group, 1, "/balance")))
	require.NoError(t, next(message(b, &tele.Chat{ID: 1, Type: tele.ChatPrivate}, 1, "hit")))
	assert.Equal(t, []int64{1, 1}, reached, "users seen in the group may DM")
}

func TestWhitelistMiddlewareProperty(t *testing.T) {
	b := offlineBot(t)
	rapid.Check(t, func(t *rapid.T) {
		whitelist := rapid.SliceOfN(rapid.Int64Range(-1000, -1), 0, 5).Draw(t, "whitelist")
		chatID := rapid.Int64Range(-1000, -1).Draw(t, "chat")

		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: whitelist}}
		reached := false
		next := WhitelistMiddleware(cfg)(func(tele.Context) error {
			reached = true
			return nil
		})
		_ = next(message(b, &tele.Chat{ID: chatID, Type: tele.ChatGroup}, 1, "/balance"))

		want := len(whitelist) == 0 || slices.Contains(whitelist, chatID)
		if reached != want {
			t.Fatalf("chat %d with whitelist %v: reached=%v, want %v", chatID, whitelist, reached, want)
		}
	})
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	b := offlineBot(t)
	var id any
	next := LoggingMiddleware()(func(c tele.Context) error {
		id = c.Get(requestIDKey)
		return nil
	})
	require.NoError(t, next(message(b, &tele.Chat{ID: 1, Type: tele.ChatPrivate}, 1, "hi")))
	assert.NotEmpty(t, id)
}
