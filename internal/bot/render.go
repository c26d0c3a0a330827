package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/format"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/keyboard"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
)

// Menu labels double as command aliases.
const (
	LabelCatalog = "📋 Catalog"
	LabelCart    = "🛒 Cart"
	LabelSearch  = "🔍 Search"

	labelSharePhone    = "📱 Share phone number"
	labelShareLocation = "📍 Share location"
)

// Callback keys.
const (
	cbAdd          = "add"
	cbRemove       = "remove"
	cbViewCart     = "view_cart"
	cbConfirm      = "confirm_order"
	cbGeneratePDF  = "generate_pdf"
	cbCancelPDF    = "cancel_pdf"
	cbClearCart    = "clear_cart"
	cbOrderStart   = "order_start"
	cbCancelSearch = "cancel_search"
)

// Renderer turns controller responses into MarkdownV2 text and keyboards.
type Renderer struct {
	Currency string
	Exponent int32
}

func (r Renderer) money(m domain.Money) string {
	return format.V2(m.Format(r.Currency, r.Exponent))
}

func bold(s string) string { return "*" + format.V2(s) + "*" }

// mainMenu is the persistent reply keyboard: category labels plus shortcuts.
func mainMenu() *tele.ReplyMarkup {
	cats := domain.Categories()
	rows := make([][]string, 0, len(cats)/2+2)
	for i := 0; i < len(cats); i += 2 {
		row := []string{cats[i].Label()}
		if i+1 < len(cats) {
			row = append(row, cats[i+1].Label())
		}
		rows = append(rows, row)
	}
	rows = append(rows, []string{LabelCart, LabelSearch})
	return keyboard.ReplyButtons(rows...)
}

func catalogButton() keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: LabelCatalog, Unique: cbOrderStart}
}

func (r Renderer) productsKeyboard(products []domain.Product) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   fmt.Sprintf("➕ %s · %s", p.Name, p.Price.Format(r.Currency, r.Exponent)),
			Unique: cbAdd,
			Data:   strconv.FormatInt(p.ID, 10),
		}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: LabelCart, Unique: cbViewCart}, catalogButton()})
	return keyboard.InlineButtonsRows(rows...)
}

func (r Renderer) productsText(resp shop.Response) string {
	var b strings.Builder
	switch {
	case resp.Query != "":
		b.WriteString(bold("🔍 Results for \"" + resp.Query + "\""))
	case resp.Category != "":
		b.WriteString(bold(resp.Category.Label()))
	}
	b.WriteString("\n\n")
	for i, p := range resp.Products {
		fmt.Fprintf(&b, "%s %s · %s", format.V2(strconv.Itoa(i+1)+"."), format.V2(p.Name), r.money(p.Price))
		if p.Grade != "" {
			b.WriteString(" " + format.V2("("+p.Grade+")"))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + format.V2("Tap a product to add it to your cart."))
	return b.String()
}

func (r Renderer) cartText(cart *domain.Cart) string {
	var b strings.Builder
	b.WriteString(bold("🛒 Your cart") + "\n\n")
	for i, l := range cart.Lines {
		fmt.Fprintf(&b, "%s %s\n    %s × %s %s %s\n",
			format.V2(strconv.Itoa(i+1)+"."),
			format.V2(l.Name),
			format.V2(strconv.Itoa(l.Quantity)),
			r.money(l.UnitPrice),
			format.V2("="),
			r.money(l.Subtotal()),
		)
	}
	b.WriteString("\n" + bold("Total: "+cart.Total().Format(r.Currency, r.Exponent)))
	return b.String()
}

// cartKeyboard pairs the remove buttons two per row above the order actions.
func cartKeyboard(cart *domain.Cart) *tele.ReplyMarkup {
	removes := make([]keyboard.InlineBtn, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		removes = append(removes, keyboard.InlineBtn{
			Text:   "➖ " + l.Name,
			Unique: cbRemove,
			Data:   strconv.FormatInt(l.ProductID, 10),
		})
	}
	markup := keyboard.InlineButtonsNPerRow(removes, 2)
	actions := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Confirm order", Unique: cbConfirm}},
		[]keyboard.InlineBtn{{Text: "🗑 Clear cart", Unique: cbClearCart}, catalogButton()},
	)
	markup.InlineKeyboard = append(markup.InlineKeyboard, actions.InlineKeyboard...)
	return markup
}

// Render returns the MarkdownV2 text and markup for resp. PromptNone and
// PromptReceipt have no text form and return an empty string.
func (r Renderer) Render(resp shop.Response) (string, *tele.ReplyMarkup) {
	switch resp.Prompt {
	case shop.PromptWelcome:
		text := "👋 " + format.V2("Welcome to ") + bold("GG market") + format.V2("!") + "\n\n" +
			format.V2("Share your phone number to start shopping.")
		return text, keyboard.ContactRequest(labelSharePhone)
	case shop.PromptCategories:
		return format.V2("Choose a category:"), mainMenu()
	case shop.PromptProducts:
		return r.productsText(resp), r.productsKeyboard(resp.Products)
	case shop.PromptNoProducts:
		return format.V2("No products in this category yet."),
			keyboard.InlineButtons([]keyboard.InlineBtn{catalogButton()})
	case shop.PromptProductNotFound:
		return format.V2("This product is no longer available."), nil
	case shop.PromptAdded:
		return format.V2(fmt.Sprintf("Added %s (%d in cart).", resp.Product.Name, resp.Quantity)), nil
	case shop.PromptCart:
		return r.cartText(resp.Cart), cartKeyboard(resp.Cart)
	case shop.PromptCartEmpty:
		return format.V2("Your cart is empty."),
			keyboard.InlineButtons([]keyboard.InlineBtn{catalogButton()})
	case shop.PromptCartCleared:
		return format.V2("🗑 Cart cleared."),
			keyboard.InlineButtons([]keyboard.InlineBtn{catalogButton()})
	case shop.PromptLocationRequest:
		return format.V2("📍 Share your location or type your delivery address, then confirm the order again."),
			keyboard.LocationRequest(labelShareLocation)
	case shop.PromptReceiptOffer:
		text := format.V2("Order total: ") + bold(resp.Cart.Total().Format(r.Currency, r.Exponent)) + "\n" +
			format.V2("Generate a PDF receipt?")
		return text, keyboard.InlineButtonsRows([]keyboard.InlineBtn{
			{Text: "✅ Yes", Unique: cbGeneratePDF},
			{Text: "❌ No", Unique: cbCancelPDF},
		})
	case shop.PromptOrderCancelled:
		return format.V2("Order cancelled. Your cart is kept."), mainMenu()
	case shop.PromptLocationSaved, shop.PromptAddressSaved:
		what := "location"
		if resp.Prompt == shop.PromptAddressSaved {
			what = "address"
		}
		return format.V2("📍 Delivery "+what+" saved."),
			keyboard.InlineButtons([]keyboard.InlineBtn{{Text: "✅ Confirm order", Unique: cbConfirm}})
	case shop.PromptSearchQuery:
		return format.V2("🔍 Type a product name to search."),
			keyboard.SingleCancelMarkup(cbCancelSearch)
	case shop.PromptNothingFound:
		return format.V2("Nothing found."),
			keyboard.InlineButtons([]keyboard.InlineBtn{catalogButton()})
	case shop.PromptStats:
		text := bold("📊 Shop stats") + "\n" +
			format.V2(fmt.Sprintf("Products: %d\nActive carts: %d", resp.Stats.Products, resp.Stats.ActiveCarts))
		return text, nil
	case shop.PromptFailure:
		return format.V2("⚠️ Something went wrong, please try again later."), nil
	}
	return "", nil
}

// ReceiptCaption is the plain-text caption of the receipt document.
func (r Renderer) ReceiptCaption(order *domain.Order) string {
	return fmt.Sprintf("Receipt %s · total %s", order.Number, order.Total.Format(r.Currency, r.Exponent))
}

// Toast is the short callback answer for prompts shown as a popup.
func (r Renderer) Toast(resp shop.Response) string {
	switch resp.Prompt {
	case shop.PromptAdded:
		return fmt.Sprintf("✅ %s added (%d)", resp.Product.Name, resp.Quantity)
	case shop.PromptProductNotFound:
		return "This product is no longer available"
	}
	return ""
}
