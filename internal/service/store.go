// Package service provides business logic implementations.
package service

import (
	"context"
	"time"

	"banana-bot/internal/model"
	"banana-bot/internal/repository"
)

// UserStore persists wallets and progression.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetOrCreate(ctx context.Context, id int64, username string, starting int64) (*model.User, bool, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
	Apply(ctx context.Context, id int64, currency string, delta int64, txType string, description *string) (*model.User, error)
	Transfer(ctx context.Context, from, to, amount int64) (*model.User, *model.User, error)
	Progress(ctx context.Context, id int64, txType string, fn func(u *model.User) (int64, error)) (*model.User, error)
	SetBalance(ctx context.Context, id int64, bananas int64) (*model.User, error)
	SetEquipped(ctx context.Context, id int64, itemID *int64) error
	GetTopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// ItemStore persists inventories.
type ItemStore interface {
	List(ctx context.Context, userID int64) ([]model.Item, error)
	Add(ctx context.Context, userID int64, item model.Item, capacity int) (model.Item, error)
	Delete(ctx context.Context, userID, itemID int64) error
	Equipped(ctx context.Context, userID int64) (*model.Item, error)
	HasKind(ctx context.Context, userID int64, kind model.ItemKind) (bool, error)
	CollectMinions(ctx context.Context, userID int64, now time.Time, worth int64) (int, *model.User, error)
}

// LedgerStore answers questions about the transactions ledger.
type LedgerStore interface {
	GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]model.DailyRank, error)
	GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]model.DailyRank, error)
	GetUserDailyProfit(ctx context.Context, userID int64, date time.Time) (int64, error)
}

var (
	_ UserStore   = (*repository.UserRepository)(nil)
	_ ItemStore   = (*repository.InventoryRepository)(nil)
	_ LedgerStore = (*repository.TransactionRepository)(nil)
)
