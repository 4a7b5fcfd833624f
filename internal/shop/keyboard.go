package shop

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"banana-bot/internal/model"
)

// CallbackBuy prefixes the data of buy buttons: "shop_buy:<number>".
const CallbackBuy = "shop_buy:"

// BuildShopPanel creates one buy button per listing, two per row.
func BuildShopPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var row []tele.Btn
	for i, l := range catalog {
		row = append(row, markup.Data(
			fmt.Sprintf("%s %s (%d)", l.Emoji, l.Name, l.Price),
			fmt.Sprintf("%s%d", CallbackBuy, l.Number),
		))
		if len(row) == 2 || i == len(catalog)-1 {
			rows = append(rows, markup.Row(row...))
			row = nil
		}
	}
	markup.Inline(rows...)
	return markup
}

// FormatShopMessage renders the catalog and the user's super nanners.
func FormatShopMessage(superNanners int64) string {
	var b strings.Builder
	b.WriteString("🏪 Shop\n")
	for _, l := range catalog {
		fmt.Fprintf(&b, "%d. %s %s: %d super nanners\n   %s\n", l.Number, l.Emoji, l.Name, l.Price, l.Description)
	}
	fmt.Fprintf(&b, "\nYou have %d super nanners. Use `buy #` to purchase.", superNanners)
	return b.String()
}

// FormatInventory renders a numbered item list, marking the equipped item.
func FormatInventory(items []model.Item, equipped *int64, capacity int) string {
	if len(items) == 0 {
		return "🎒 Your inventory is empty."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🎒 Inventory (%d/%d)\n", len(items), capacity)
	for i, item := range items {
		mark := ""
		if equipped != nil && *equipped == item.ID {
			mark = " (equipped)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, item.Label(), mark)
	}
	return strings.TrimRight(b.String(), "\n")
}
