package service

import (
	"context"
	"errors"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/repository"
)

// Progression limits.
const (
	MaxLevel      = 100
	MaxPrestige   = 10
	AscensionCost = 1_000_000
)

// LevelUpCost returns the price of the next level.
func LevelUpCost(level, prestige int) int64 {
	return 150 + int64(level)*int64(75*prestige)
}

// ProgressionService sells levels, prestige and ascension.
type ProgressionService struct {
	accounts *AccountService
	users    UserStore
}

// NewProgressionService creates a new ProgressionService instance.
func NewProgressionService(accounts *AccountService, users UserStore) *ProgressionService {
	return &ProgressionService{accounts: accounts, users: users}
}

// LevelUp buys one level.
func (s *ProgressionService) LevelUp(ctx context.Context, userID int64) (*model.User, int64, error) {
	var cost int64
	user, err := s.progress(ctx, userID, model.TxTypeLevelUp, func(u *model.User) (int64, error) {
		if u.Level >= MaxLevel {
			return 0, game.Violation("You are already at the max level! Use `prestige` to go further.")
		}
		cost = LevelUpCost(u.Level, u.Prestige)
		if u.Bananas < cost {
			return 0, game.Broke("You need %d bananas to level up!", cost)
		}
		u.Level++
		return cost, nil
	})
	return user, cost, err
}

// Prestige resets a max-level user to level 1 at the next prestige.
func (s *ProgressionService) Prestige(ctx context.Context, userID int64) (*model.User, error) {
	return s.progress(ctx, userID, model.TxTypeLevelUp, func(u *model.User) (int64, error) {
		if u.Level < MaxLevel {
			return 0, game.Violation("You must be level %d to prestige!", MaxLevel)
		}
		if u.Prestige >= MaxPrestige {
			return 0, game.Violation("You are at the max prestige! Use `ascend` to go further.")
		}
		u.Prestige++
		u.Level = 1
		return 0, nil
	})
}

// Ascend resets a max-prestige user to level 1, prestige 1 for
// AscensionCost bananas.
func (s *ProgressionService) Ascend(ctx context.Context, userID int64) (*model.User, error) {
	return s.progress(ctx, userID, model.TxTypeAscension, func(u *model.User) (int64, error) {
		if u.Prestige < MaxPrestige {
			return 0, game.Violation("You must be prestige %d to ascend!", MaxPrestige)
		}
		if u.Bananas < AscensionCost {
			return 0, game.Broke("You need %d bananas to ascend!", AscensionCost)
		}
		u.Ascension++
		u.Prestige = 1
		u.Level = 1
		return AscensionCost, nil
	})
}

func (s *ProgressionService) progress(ctx context.Context, userID int64, txType string, fn func(u *model.User) (int64, error)) (*model.User, error) {
	if _, err := s.accounts.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.users.Progress(ctx, userID, txType, fn)
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return nil, game.ErrInsufficientFunds
	}
	return user, err
}
