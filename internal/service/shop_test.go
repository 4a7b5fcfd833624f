package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/pkg/lock"
)

func newShop(s *services) *ShopService {
	return NewShopService(s.accounts, s.inventory, lock.NewUserLock())
}

func TestBuy(t *testing.T) {
	s := newServices()
	shop := newShop(s)
	ctx := context.Background()
	s.store.put(model.User{ID: 1, SuperNanners: 20})

	item, err := shop.Buy(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "Fireball", item.Name)
	assert.Equal(t, int64(15), s.store.user(1).SuperNanners)

	items, err := s.inventory.Items(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestBuyRejections(t *testing.T) {
	s := newServices()
	shop := newShop(s)
	ctx := context.Background()
	s.store.put(model.User{ID: 1, SuperNanners: 27})

	_, err := shop.Buy(ctx, 1, 99)
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	_, err = shop.Buy(ctx, 1, 1)
	require.NoError(t, err)
	_, err = shop.Buy(ctx, 1, 1)
	assert.ErrorIs(t, err, game.ErrRuleViolation)
	assert.Equal(t, "You already own this item!", game.UserMessage(err))

	_, err = shop.Buy(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.store.user(1).SuperNanners)

	_, err = shop.Buy(ctx, 1, 3)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	assert.Equal(t, "You don't have enough super nanners!", game.UserMessage(err))

	_, err = shop.Buy(ctx, 1, 6)
	require.NoError(t, err)
	_, err = shop.Buy(ctx, 1, 6)
	assert.ErrorIs(t, err, game.ErrRuleViolation, "capacity is 3")
	assert.Equal(t, int64(1), s.store.user(1).SuperNanners)
}

func TestBuyMinionStartsMining(t *testing.T) {
	s := newServices()
	shop := newShop(s)
	s.store.put(model.User{ID: 1, SuperNanners: 10})

	item, err := shop.Buy(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, model.ItemMinion, item.Kind)
	assert.False(t, item.MiningStart.IsZero())
}
