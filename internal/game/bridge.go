package game

import (
	"context"

	"banana-bot/internal/model"
)

// Economy moves currency on behalf of games. Each call observes the latest
// committed balance; Debit fails with ErrInsufficientFunds without side effects.
type Economy interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Credit(ctx context.Context, userID, amount int64, txType string) error
	Debit(ctx context.Context, userID, amount int64, txType string) error
	CreditSuperNanners(ctx context.Context, userID, amount int64) error
}

// Inventory exposes a user's items. Slots are 0-based positions in Items.
type Inventory interface {
	Items(ctx context.Context, userID int64) ([]model.Item, error)
	RemoveItem(ctx context.Context, userID int64, slot int) error
	AddItem(ctx context.Context, userID int64, item model.Item) error
	Equipped(ctx context.Context, userID int64) (*model.Item, error)
}

// ItemAt resolves a 1-based slot argument as typed by users.
func ItemAt(ctx context.Context, inv Inventory, userID int64, slot int) (model.Item, int, error) {
	items, err := inv.Items(ctx, userID)
	if err != nil {
		return model.Item{}, 0, err
	}
	if slot < 1 || slot > len(items) {
		return model.Item{}, 0, Invalid("You don't have an item in slot %d!", slot)
	}
	return items[slot-1], slot - 1, nil
}

// EquippedDamage returns the equipped weapon's damage range, or fallback
// when nothing usable is equipped.
func EquippedDamage(ctx context.Context, inv Inventory, userID int64, fallback model.Range) (model.Range, error) {
	if inv == nil {
		return fallback, nil
	}
	item, err := inv.Equipped(ctx, userID)
	if err != nil {
		return fallback, err
	}
	if item == nil || item.Kind != model.ItemWeapon || !item.Damage.Valid() {
		return fallback, nil
	}
	return item.Damage, nil
}
