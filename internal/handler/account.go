package handler

import (
	"context"
	"fmt"
	"strings"

	"banana-bot/internal/game"
	"banana-bot/internal/service"
)

// AccountHandler handles wallet and progression commands.
type AccountHandler struct {
	accounts    *service.AccountService
	progression *service.ProgressionService
	ranking     *service.RankingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, progression *service.ProgressionService, ranking *service.RankingService) *AccountHandler {
	return &AccountHandler{accounts: accounts, progression: progression, ranking: ranking}
}

// Register adds the account commands to r.
func (h *AccountHandler) Register(r *Router) {
	r.Handle("start", "- create your account", h.HandleStart)
	r.Handle("balance", "[@user] - show bananas", h.HandleBalance)
	r.Handle("profile", "[@user] - level, prestige and today's profit", h.HandleProfile)
	r.Handle("levelup", "- buy the next level", h.HandleLevelUp)
	r.Handle("prestige", "- reset level 100 into a prestige", h.HandlePrestige)
	r.Handle("ascend", "- reset max prestige into an ascension", h.HandleAscend)
}

// HandleStart creates the account with the starting balance.
func (h *AccountHandler) HandleStart(ctx context.Context, req *Request) (*Reply, error) {
	user, created, err := h.accounts.EnsureUser(ctx, req.UserID, req.Username)
	if err != nil {
		return nil, err
	}
	if created {
		return text(fmt.Sprintf("🎉 Welcome %s! You start with %d bananas 🍌\nType /help to see what you can do.", displayName(req), user.Bananas)), nil
	}
	return text(fmt.Sprintf("👋 Welcome back %s! You have %d bananas 🍌", displayName(req), user.Bananas)), nil
}

// HandleBalance shows the balance of the sender or the mentioned user.
func (h *AccountHandler) HandleBalance(ctx context.Context, req *Request) (*Reply, error) {
	id, self := req.UserID, true
	if target, ok := req.Target(); ok && target != req.UserID {
		id, self = target, false
	}
	user, err := h.accounts.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if self {
		return text(fmt.Sprintf("🍌 You have %d bananas and %d super nanners.", user.Bananas, user.SuperNanners)), nil
	}
	return text(fmt.Sprintf("🍌 %s has %d bananas and %d super nanners.", game.Mention(id), user.Bananas, user.SuperNanners)), nil
}

// HandleProfile shows progression and today's game profit.
func (h *AccountHandler) HandleProfile(ctx context.Context, req *Request) (*Reply, error) {
	id := req.UserID
	if target, ok := req.Target(); ok {
		id = target
	}
	user, err := h.accounts.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	profit, err := h.ranking.UserDailyProfit(ctx, id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Profile of %s\n", game.Mention(id))
	fmt.Fprintf(&b, "Level %d | Prestige %d | Ascension %d\n", user.Level, user.Prestige, user.Ascension)
	fmt.Fprintf(&b, "🍌 %d bananas, ⭐ %d super nanners\n", user.Bananas, user.SuperNanners)
	if user.Level < service.MaxLevel {
		fmt.Fprintf(&b, "Next level costs %d bananas\n", service.LevelUpCost(user.Level, user.Prestige))
	}
	fmt.Fprintf(&b, "Today: %s", signed(profit))
	return text(b.String()), nil
}

// HandleLevelUp buys one level.
func (h *AccountHandler) HandleLevelUp(ctx context.Context, req *Request) (*Reply, error) {
	user, cost, err := h.progression.LevelUp(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("⬆️ You are now level %d! (-%d bananas, %d left)", user.Level, cost, user.Bananas)), nil
}

// HandlePrestige trades level 100 for a prestige.
func (h *AccountHandler) HandlePrestige(ctx context.Context, req *Request) (*Reply, error) {
	user, err := h.progression.Prestige(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("🌟 You are now prestige %d! Your level was reset to %d.", user.Prestige, user.Level)), nil
}

// HandleAscend trades max prestige and a pile of bananas for an ascension.
func (h *AccountHandler) HandleAscend(ctx context.Context, req *Request) (*Reply, error) {
	user, err := h.progression.Ascend(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("👑 You ascended! Ascension %d. Level and prestige start over.", user.Ascension)), nil
}

func displayName(req *Request) string {
	if req.Username != "" {
		return "@" + req.Username
	}
	return game.Mention(req.UserID)
}

func signed(n int64) string {
	if n > 0 {
		return fmt.Sprintf("+%d 🍌", n)
	}
	return fmt.Sprintf("%d 🍌", n)
}
