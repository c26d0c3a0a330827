package router

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	tghelpers "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/helpers"
)

// FSM routes free text to a pending conversation step.
type FSM interface {
	InProgress(ctx context.Context, userID int64) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing. Text goes, in
// order, to a pending FSM step, a command or alias, the registry fallback,
// then UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inProgress := func(c tele.Context) bool {
		return fsm != nil && fsm.InProgress(tghelpers.BuildContext(c), tghelpers.UserID(c))
	}

	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if inProgress(c) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsm.Handle(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnDocument, Handler: wrap(docHandler)},
	}
}

// EventRoute binds a non-text endpoint (tele.OnContact, tele.OnLocation, ...)
// with the same recovery, logging and summary as the other routes.
func EventRoute(endpoint any, name string, h tele.HandlerFunc) tg.Route {
	name = normalizeHandlerName(name)
	return tg.Route{
		Endpoint: endpoint,
		Handler: wrap(func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), "", "", func() error {
				return h(c)
			})
		}),
	}
}
