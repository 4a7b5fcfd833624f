package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/pkg/lock"
	"banana-bot/internal/shop"
)

// ShopService sells catalog items for super nanners.
type ShopService struct {
	accounts  *AccountService
	inventory *InventoryService
	userLock  *lock.UserLock
	now       func() time.Time
}

// NewShopService creates a new ShopService instance.
func NewShopService(accounts *AccountService, inventory *InventoryService, userLock *lock.UserLock) *ShopService {
	return &ShopService{
		accounts:  accounts,
		inventory: inventory,
		userLock:  userLock,
		now:       time.Now,
	}
}

// Catalog returns every listing in display order.
func (s *ShopService) Catalog() []shop.Listing {
	return shop.Catalog()
}

// Buy purchases the listing with the given number.
func (s *ShopService) Buy(ctx context.Context, userID int64, number int) (model.Item, error) {
	listing, ok := shop.Get(number)
	if !ok {
		return model.Item{}, game.Invalid("Invalid item number!")
	}

	if err := s.userLock.LockContext(ctx, userID); err != nil {
		return model.Item{}, err
	}
	defer s.userLock.Unlock(userID)

	items, err := s.inventory.Items(ctx, userID)
	if err != nil {
		return model.Item{}, err
	}
	if len(items) >= s.inventory.Capacity() {
		return model.Item{}, inventoryFull()
	}
	if listing.Unique {
		for _, it := range items {
			if it.Kind == listing.Kind {
				return model.Item{}, game.Violation("You already own this item!")
			}
		}
	}

	if err := s.accounts.SpendSuperNanners(ctx, userID, listing.Price, model.TxTypeShopPurchase); err != nil {
		if errors.Is(err, game.ErrInsufficientFunds) {
			return model.Item{}, game.Broke("You don't have enough super nanners!")
		}
		return model.Item{}, err
	}

	item := listing.Item(s.now())
	if err := s.inventory.AddItem(ctx, userID, item); err != nil {
		if rerr := s.accounts.credit(ctx, userID, model.CurrencySuperNanners, listing.Price, model.TxTypeShopPurchase); rerr != nil {
			log.Error().Err(rerr).Int64("user_id", userID).Int64("amount", listing.Price).Msg("Failed to refund shop purchase")
		}
		if errors.Is(err, game.ErrInventoryFull) {
			return model.Item{}, inventoryFull()
		}
		return model.Item{}, err
	}

	log.Info().
		Int64("user_id", userID).
		Str("item", listing.Name).
		Int64("price", listing.Price).
		Msg("Shop purchase")
	return item, nil
}

func inventoryFull() error {
	return game.Violation("Your inventory is full! (use `discard #` to throw out an item!)")
}
