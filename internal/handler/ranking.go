package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/service"
)

const (
	defaultBoardSize = 10
	maxBoardSize     = 25
)

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	ranking *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(ranking *service.RankingService) *RankingHandler {
	return &RankingHandler{ranking: ranking}
}

// Register adds the ranking commands to r.
func (h *RankingHandler) Register(r *Router) {
	r.Handle("leaderboard", "[n] - top players", h.HandleLeaderboard)
	r.Handle("daily", "- today's biggest winners and losers", h.HandleDaily)
}

// HandleLeaderboard shows the top players by ascension, prestige and level.
func (h *RankingHandler) HandleLeaderboard(ctx context.Context, req *Request) (*Reply, error) {
	limit := defaultBoardSize
	if arg := req.Arg(0); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return nil, game.Invalid("Leaderboard size must be a positive number!")
		}
		limit = min(n, maxBoardSize)
	}

	entries, err := h.ranking.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return text("🏆 Nobody is on the leaderboard yet."), nil
	}

	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%s %s: A%d P%d L%d (%d 🍌)\n", medal(i), userName(e.Username, e.UserID), e.Ascension, e.Prestige, e.Level, e.Bananas)
	}
	return text(strings.TrimRight(b.String(), "\n")), nil
}

// HandleDaily shows today's winners and losers by net game profit.
func (h *RankingHandler) HandleDaily(ctx context.Context, req *Request) (*Reply, error) {
	winners, err := h.ranking.DailyWinners(ctx, defaultBoardSize)
	if err != nil {
		return nil, err
	}
	losers, err := h.ranking.DailyLosers(ctx, defaultBoardSize)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("📈 Today's winners\n")
	writeDaily(&b, winners)
	b.WriteString("\n📉 Today's losers\n")
	writeDaily(&b, losers)
	return text(strings.TrimRight(b.String(), "\n")), nil
}

func writeDaily(b *strings.Builder, ranks []model.DailyRank) {
	if len(ranks) == 0 {
		b.WriteString("Nobody yet.\n")
		return
	}
	for i, r := range ranks {
		fmt.Fprintf(b, "%s %s: %s\n", medal(i), userName(r.Username, r.UserID), signed(r.NetProfit))
	}
}

func medal(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", i+1)
	}
}

func userName(username string, id int64) string {
	if username != "" {
		return username
	}
	return game.Mention(id)
}
