package bot

import (
	"pricing-bot/internal/catalog"
	"pricing-bot/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackSKU     = "sku:"
	callbackListing = "listing:"

	// Telegram rejects callback data longer than this.
	maxCallbackData = 64
)

func createListingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Clássico (12%)", callbackListing+string(pricing.ListingClassic)),
			tgbotapi.NewInlineKeyboardButtonData("Premium (17%)", callbackListing+string(pricing.ListingPremium)),
		),
	)
}

// createProductKeyboard offers one button per product. Products whose sku
// does not fit in callback data are left out.
func createProductKeyboard(products []catalog.Product) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range products {
		data := callbackSKU + p.SKU
		if len(data) > maxCallbackData {
			continue
		}
		label := p.SKU
		if p.Name != "" {
			label += " · " + truncate(p.Name, 32)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
