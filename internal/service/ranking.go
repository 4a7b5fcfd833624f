package service

import (
	"context"
	"time"

	"banana-bot/internal/model"
)

// RankingService handles the leaderboard and daily game rankings.
type RankingService struct {
	users    UserStore
	ledger   LedgerStore
	timezone *time.Location
	now      func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(users UserStore, ledger LedgerStore, timezone *time.Location) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		users:    users,
		ledger:   ledger,
		timezone: timezone,
		now:      time.Now,
	}
}

// Leaderboard returns the top users by ascension, prestige and level.
func (s *RankingService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.users.GetTopUsers(ctx, limit)
}

// DailyWinners returns today's biggest game winners.
func (s *RankingService) DailyWinners(ctx context.Context, limit int) ([]model.DailyRank, error) {
	return s.ledger.GetDailyWinners(ctx, s.today(), limit)
}

// DailyLosers returns today's biggest game losers.
func (s *RankingService) DailyLosers(ctx context.Context, limit int) ([]model.DailyRank, error) {
	return s.ledger.GetDailyLosers(ctx, s.today(), limit)
}

// UserDailyProfit returns a user's net game result today.
func (s *RankingService) UserDailyProfit(ctx context.Context, userID int64) (int64, error) {
	return s.ledger.GetUserDailyProfit(ctx, userID, s.today())
}

func (s *RankingService) today() time.Time {
	return s.now().In(s.timezone)
}
