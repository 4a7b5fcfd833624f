package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/repository"
)

// MinionSludgeWorth is what one sludge collected from minions pays.
const MinionSludgeWorth = 250

// InventoryService implements game.Inventory over the item store and
// adds the player-facing inventory commands.
type InventoryService struct {
	items    ItemStore
	users    UserStore
	capacity int
	now      func() time.Time
}

// NewInventoryService creates a new InventoryService instance.
func NewInventoryService(items ItemStore, users UserStore, capacity int) *InventoryService {
	return &InventoryService{
		items:    items,
		users:    users,
		capacity: capacity,
		now:      time.Now,
	}
}

// Capacity returns how many items a user may hold.
func (s *InventoryService) Capacity() int {
	return s.capacity
}

// Items implements game.Inventory.
func (s *InventoryService) Items(ctx context.Context, userID int64) ([]model.Item, error) {
	return s.items.List(ctx, userID)
}

// RemoveItem implements game.Inventory. slot is 0-based.
func (s *InventoryService) RemoveItem(ctx context.Context, userID int64, slot int) error {
	_, err := s.remove(ctx, userID, slot)
	return err
}

// AddItem implements game.Inventory.
func (s *InventoryService) AddItem(ctx context.Context, userID int64, item model.Item) error {
	_, err := s.items.Add(ctx, userID, item, s.capacity)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInventoryFull):
		return game.ErrInventoryFull
	default:
		return fmt.Errorf("failed to add item: %w", err)
	}
}

// Equipped implements game.Inventory.
func (s *InventoryService) Equipped(ctx context.Context, userID int64) (*model.Item, error) {
	return s.items.Equipped(ctx, userID)
}

// Equip equips the weapon in the 1-based slot.
func (s *InventoryService) Equip(ctx context.Context, userID int64, slot int) (model.Item, error) {
	item, _, err := game.ItemAt(ctx, s, userID, slot)
	if err != nil {
		return item, err
	}
	if item.Kind != model.ItemWeapon {
		return item, game.Violation("You can't equip that!")
	}
	if err := s.users.SetEquipped(ctx, userID, &item.ID); err != nil {
		return item, fmt.Errorf("failed to equip item: %w", err)
	}
	return item, nil
}

// Unequip clears the equipped item and returns what was equipped.
func (s *InventoryService) Unequip(ctx context.Context, userID int64) (*model.Item, error) {
	item, err := s.items.Equipped(ctx, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, game.Violation("You don't have anything equipped!")
	}
	if err := s.users.SetEquipped(ctx, userID, nil); err != nil {
		return nil, fmt.Errorf("failed to unequip item: %w", err)
	}
	return item, nil
}

// Discard throws away the item in the 1-based slot.
func (s *InventoryService) Discard(ctx context.Context, userID int64, slot int) (model.Item, error) {
	if slot < 1 {
		return model.Item{}, game.Invalid("Invalid item number! (must be positive)")
	}
	return s.remove(ctx, userID, slot-1)
}

func (s *InventoryService) remove(ctx context.Context, userID int64, slot int) (model.Item, error) {
	items, err := s.items.List(ctx, userID)
	if err != nil {
		return model.Item{}, err
	}
	if slot < 0 || slot >= len(items) {
		return model.Item{}, game.ErrItemNotFound
	}
	item := items[slot]
	if err := s.items.Delete(ctx, userID, item.ID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return item, game.ErrItemNotFound
		}
		return item, err
	}
	return item, nil
}

// HasSuperDrill reports whether the user owns a super drill.
func (s *InventoryService) HasSuperDrill(ctx context.Context, userID int64) (bool, error) {
	return s.items.HasKind(ctx, userID, model.ItemSuperDrill)
}

// DrillTier returns the highest super drill tier the user owns, 0 for none.
func (s *InventoryService) DrillTier(ctx context.Context, userID int64) (int, error) {
	items, err := s.items.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	tier := 0
	for _, item := range items {
		if item.Kind == model.ItemSuperDrill {
			tier = max(tier, item.Tier)
		}
	}
	return tier, nil
}

// CollectMinions pays out the sludge the user's minions have mined.
func (s *InventoryService) CollectMinions(ctx context.Context, userID int64) (int, int64, error) {
	has, err := s.items.HasKind(ctx, userID, model.ItemMinion)
	if err != nil {
		return 0, 0, err
	}
	if !has {
		return 0, 0, game.Violation("You don't have any minions to collect sludge from.")
	}

	sludge, _, err := s.items.CollectMinions(ctx, userID, s.now(), MinionSludgeWorth)
	if err != nil {
		return 0, 0, err
	}
	return sludge, int64(sludge) * MinionSludgeWorth, nil
}

var _ game.Inventory = (*InventoryService)(nil)
