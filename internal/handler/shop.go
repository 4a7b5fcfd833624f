package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"banana-bot/internal/game"
	"banana-bot/internal/service"
	"banana-bot/internal/shop"
)

// ShopHandler handles the shop and inventory commands.
type ShopHandler struct {
	accounts  *service.AccountService
	inventory *service.InventoryService
	shop      *service.ShopService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(accounts *service.AccountService, inventory *service.InventoryService, shop *service.ShopService) *ShopHandler {
	return &ShopHandler{accounts: accounts, inventory: inventory, shop: shop}
}

// Register adds the shop and inventory commands to r.
func (h *ShopHandler) Register(r *Router) {
	r.Handle("shop", "- browse items for super nanners", h.HandleShop)
	r.Handle("buy", "<n> - buy shop item n", h.HandleBuy)
	r.Handle("inventory", "- list your items", h.HandleInventory)
	r.Handle("equip", "<slot> - equip a weapon", h.HandleEquip)
	r.Handle("unequip", "- unequip your weapon", h.HandleUnequip)
	r.Handle("discard", "<slot> - throw an item away", h.HandleDiscard)
	r.Handle("collect", "- collect sludge from your minions", h.HandleCollect)
}

// HandleShop shows the catalog with buy buttons.
func (h *ShopHandler) HandleShop(ctx context.Context, req *Request) (*Reply, error) {
	user, err := h.accounts.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Text:   shop.FormatShopMessage(user.SuperNanners),
		Markup: shop.BuildShopPanel(),
	}, nil
}

// HandleBuy handles "buy <n>".
func (h *ShopHandler) HandleBuy(ctx context.Context, req *Request) (*Reply, error) {
	n, err := slotArg(req, "buy <item number>")
	if err != nil {
		return nil, err
	}
	return h.Buy(ctx, req.UserID, n)
}

// Buy purchases a listing. The shell calls it for buy buttons too.
func (h *ShopHandler) Buy(ctx context.Context, userID int64, number int) (*Reply, error) {
	item, err := h.shop.Buy(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("🛒 You bought %s!", item.Label())), nil
}

// HandleBuyCallback handles a buy button press, data being "shop_buy:<n>".
func (h *ShopHandler) HandleBuyCallback(ctx context.Context, userID int64, data string) *Reply {
	n, err := strconv.Atoi(strings.TrimPrefix(data, shop.CallbackBuy))
	if err != nil {
		return errorReply(game.Invalid("Invalid item number!"), userID, "buy")
	}
	reply, err := h.Buy(ctx, userID, n)
	if err != nil {
		return errorReply(err, userID, "buy")
	}
	return reply
}

// HandleInventory lists the sender's items.
func (h *ShopHandler) HandleInventory(ctx context.Context, req *Request) (*Reply, error) {
	user, err := h.accounts.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	items, err := h.inventory.Items(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return text(shop.FormatInventory(items, user.EquippedItem, h.inventory.Capacity())), nil
}

// HandleEquip handles "equip <slot>".
func (h *ShopHandler) HandleEquip(ctx context.Context, req *Request) (*Reply, error) {
	slot, err := slotArg(req, "equip <slot>")
	if err != nil {
		return nil, err
	}
	item, err := h.inventory.Equip(ctx, req.UserID, slot)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("⚔️ Equipped %s.", item.Label())), nil
}

// HandleUnequip clears the equipped weapon.
func (h *ShopHandler) HandleUnequip(ctx context.Context, req *Request) (*Reply, error) {
	item, err := h.inventory.Unequip(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("Unequipped %s.", item.Label())), nil
}

// HandleDiscard handles "discard <slot>".
func (h *ShopHandler) HandleDiscard(ctx context.Context, req *Request) (*Reply, error) {
	slot, err := slotArg(req, "discard <slot>")
	if err != nil {
		return nil, err
	}
	item, err := h.inventory.Discard(ctx, req.UserID, slot)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("🗑️ Threw away %s.", item.Label())), nil
}

// HandleCollect pays out minion sludge.
func (h *ShopHandler) HandleCollect(ctx context.Context, req *Request) (*Reply, error) {
	sludge, bananas, err := h.inventory.CollectMinions(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if sludge == 0 {
		return text("Your minions haven't mined any sludge yet."), nil
	}
	return text(fmt.Sprintf("🧪 Your minions mined %d sludge, sold for %d bananas!", sludge, bananas)), nil
}

func slotArg(req *Request, usage string) (int, error) {
	n, err := strconv.Atoi(req.Arg(0))
	if err != nil {
		return 0, game.Invalid("Usage: %s", usage)
	}
	if n < 1 {
		return 0, game.Invalid("Invalid item number! (must be positive)")
	}
	return n, nil
}
