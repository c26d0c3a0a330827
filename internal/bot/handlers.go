// Package bot binds the shop controller to Telegram: commands, inline
// buttons, shared contacts and locations, and free text.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/callbacks"
	tghelpers "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/helpers"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/router"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
)

// Handler adapts Telegram updates to controller calls and renders the result.
type Handler struct {
	ctl     *shop.Controller
	render  Renderer
	adminID int64
}

// NewHandler returns a Handler; adminID 0 disables /stats for everyone.
func NewHandler(ctl *shop.Controller, render Renderer, adminID int64) *Handler {
	return &Handler{ctl: ctl, render: render, adminID: adminID}
}

type action func(ctx context.Context, userID int64) (shop.Response, error)

// do runs act for the sender. edit lets callback replies replace the
// message the button belongs to.
func (h *Handler) do(act action, edit bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		resp, err := act(tghelpers.BuildContext(c), tghelpers.UserID(c))
		return h.reply(c, resp, err, edit)
	}
}

// reply records the outcome and sends resp. A controller error is returned
// after the failure prompt went out so the router logs it.
func (h *Handler) reply(c tele.Context, resp shop.Response, err error, edit bool) error {
	router.SetOutcome(c, resp.Outcome())
	if resp.Prompt == shop.PromptNone {
		return err
	}

	if c.Callback() != nil {
		if toast := h.render.Toast(resp); toast != "" {
			if aerr := callbacks.Answer(c, &tele.CallbackResponse{Text: toast}); aerr != nil && err == nil {
				return aerr
			}
			return err
		}
	}

	var sendErr error
	if resp.Prompt == shop.PromptReceipt {
		sendErr = tghelpers.SendDocument(c, resp.FileName, resp.Document, h.render.ReceiptCaption(resp.Order), mainMenu())
	} else {
		text, markup := h.render.Render(resp)
		if edit && c.Callback() != nil && editable(markup) {
			sendErr = tghelpers.EditOrSendMDV2(c, text, markup)
		} else {
			sendErr = tghelpers.SendMDV2(c, text, markup)
		}
	}
	if err != nil {
		return err
	}
	return sendErr
}

// editable reports whether markup may be attached to an edited message;
// Telegram only allows inline keyboards there.
func editable(markup *tele.ReplyMarkup) bool {
	return markup == nil || (len(markup.ReplyKeyboard) == 0 && !markup.RemoveKeyboard)
}

// Register adds commands, callbacks and the free text fallback to reg.
func (h *Handler) Register(reg *tg.Registry) error {
	commands := []struct {
		name string
		cmd  tg.Command
	}{
		{"/start", tg.Command{Handler: h.do(h.ctl.Start, false), Description: "Start shopping"}},
		{"/menu", tg.Command{Handler: h.do(h.showCategories, false), Description: "Product categories", Aliases: []string{LabelCatalog}}},
		{"/cart", tg.Command{Handler: h.do(h.viewCart, false), Description: "Your cart", Aliases: []string{LabelCart}}},
		{"/search", tg.Command{Handler: h.search, Description: "Search products", Aliases: []string{LabelSearch}}},
		{"/stats", tg.Command{Handler: h.do(h.ctl.Stats, false), Description: "Shop statistics", AdminOnly: true}},
	}
	for _, c := range commands {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return fmt.Errorf("bot: %w", err)
		}
	}

	callbackHandlers := []struct {
		key string
		h   tele.HandlerFunc
	}{
		{cbAdd, h.withProduct(h.ctl.AddToCart)},
		{cbRemove, h.withProduct(h.ctl.RemoveFromCart)},
		{cbViewCart, h.do(h.ctl.ViewCart, true)},
		{cbConfirm, h.do(h.ctl.ConfirmOrder, true)},
		{cbGeneratePDF, h.do(h.ctl.GenerateReceipt, false)},
		{cbCancelPDF, h.do(h.ctl.CancelOrder, false)},
		{cbClearCart, h.do(h.ctl.ClearCart, true)},
		{cbOrderStart, h.do(h.showCategories, false)},
		{cbCancelSearch, h.do(h.showCategories, false)},
	}
	for _, cb := range callbackHandlers {
		if err := reg.RegisterCallback(cb.key, cb.h); err != nil {
			return fmt.Errorf("bot: %w", err)
		}
	}

	reg.SetCallbackNotFound(h.staleButton)
	reg.SetTextFallback(h.text)
	return nil
}

// staleButton answers presses of buttons from keyboards this version no
// longer sends.
func (h *Handler) staleButton(c tele.Context) error {
	return callbacks.Answer(c, &tele.CallbackResponse{Text: "This button is outdated, open the menu again"})
}

// Routes returns every route of the bot, registry commands included.
func (h *Handler) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: h.adminID,
		OnAdminReject: func(c tele.Context) error {
			router.SetOutcome(c, "skip")
			return nil
		},
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(&flow{h: h, reg: reg}, reg, router.TextOptions{
		UnknownText: h.unknown,
	})...)
	return append(routes,
		router.EventRoute(tele.OnContact, "contact", h.contact),
		router.EventRoute(tele.OnLocation, "location", h.location),
	)
}

// showCategories and viewCart are menu entries, so they abandon a pending step.
func (h *Handler) showCategories(ctx context.Context, userID int64) (shop.Response, error) {
	h.ctl.CancelAwaiting(ctx, userID)
	return h.ctl.ShowCategories(ctx, userID)
}

func (h *Handler) viewCart(ctx context.Context, userID int64) (shop.Response, error) {
	h.ctl.CancelAwaiting(ctx, userID)
	return h.ctl.ViewCart(ctx, userID)
}

// search runs "/search cola" directly and otherwise waits for the query.
func (h *Handler) search(c tele.Context) error {
	ctx, userID := tghelpers.BuildContext(c), tghelpers.UserID(c)
	if args := c.Args(); len(args) > 0 {
		resp, err := h.ctl.Search(ctx, userID, strings.Join(args, " "))
		return h.reply(c, resp, err, false)
	}
	resp, err := h.ctl.BeginSearch(ctx, userID)
	return h.reply(c, resp, err, false)
}

func (h *Handler) withProduct(fn func(ctx context.Context, userID, productID int64) (shop.Response, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		productID, err := callbacks.PayloadInt64(c)
		if err != nil || productID <= 0 {
			router.SetOutcome(c, "skip")
			return callbacks.Answer(c, &tele.CallbackResponse{Text: "Unsupported action"})
		}
		resp, err := fn(tghelpers.BuildContext(c), tghelpers.UserID(c), productID)
		return h.reply(c, resp, err, true)
	}
}

func (h *Handler) text(c tele.Context) error {
	resp, err := h.ctl.HandleText(tghelpers.BuildContext(c), tghelpers.UserID(c), c.Text())
	if err == nil && resp.Prompt == shop.PromptNone {
		return h.unknown(c)
	}
	return h.reply(c, resp, err, false)
}

func (h *Handler) unknown(c tele.Context) error {
	router.SetOutcome(c, "skip")
	return tghelpers.SendMDV2(c, "🤔 Use the menu below\\.", mainMenu())
}

// contact accepts only the sender's own contact card.
func (h *Handler) contact(c tele.Context) error {
	ctx, userID := tghelpers.BuildContext(c), tghelpers.UserID(c)
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		router.SetOutcome(c, "skip")
		return nil
	}
	if msg.Contact.UserID != userID {
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "contact.reject",
			slog.String("status", "skip"),
			slog.String("reason", "foreign_contact"),
		)
		router.SetOutcome(c, "skip")
		return nil
	}
	resp, err := h.ctl.ReceiveContact(ctx, userID, msg.Contact.PhoneNumber)
	return h.reply(c, resp, err, false)
}

func (h *Handler) location(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Location == nil {
		router.SetOutcome(c, "skip")
		return nil
	}
	resp, err := h.ctl.ReceiveLocation(tghelpers.BuildContext(c), tghelpers.UserID(c),
		float64(msg.Location.Lat), float64(msg.Location.Lng))
	return h.reply(c, resp, err, false)
}
