package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/callbacks"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/teletest"
)

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var gotPayload string
	require.NoError(t, reg.RegisterCallback("add", func(c tele.Context) error {
		gotPayload = callbacks.CallbackPayload(c)
		return nil
	}))
	route := CallbackRoute(reg, CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	for _, data := range []string{"\fadd|5", "add_5"} {
		gotPayload = ""
		c := teletest.Callback(1, 10, data)
		require.NoError(t, route.Handler(c))
		assert.Equal(t, "5", gotPayload, data)
		assert.Len(t, c.Responses(), 1, "callback must be answered exactly once")
	}
}

func TestCallbackRouteAnswersOnceWhenHandlerAnswers(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallback("clear_cart", func(c tele.Context) error {
		return callbacks.Answer(c, &tele.CallbackResponse{Text: "Cleared"})
	}))
	c := teletest.Callback(1, 10, "clear_cart")
	require.NoError(t, CallbackRoute(reg, CallbackOptions{}).Handler(c))

	require.Len(t, c.Responses(), 1)
	assert.Equal(t, "Cleared", c.Responses()[0].Text)
}

func TestCallbackRouteNotFound(t *testing.T) {
	reg := tg.NewRegistry()
	var hit bool
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(tele.Context) error { hit = true; return nil }})
	require.NoError(t, route.Handler(teletest.Callback(1, 10, "\funknown|1")))
	assert.True(t, hit)
}

type fakeFSM struct {
	active  map[int64]bool
	handled int
}

func (f *fakeFSM) InProgress(_ context.Context, userID int64) bool { return f.active[userID] }

func (f *fakeFSM) Handle(tele.Context) error {
	f.handled++
	return nil
}

func TestTextRoutesPriority(t *testing.T) {
	reg := tg.NewRegistry()
	var cartHits, fallbackHits, unknownHits int
	require.NoError(t, reg.RegisterCommand("/cart", tg.Command{
		Handler:     func(tele.Context) error { cartHits++; return nil },
		Description: "Cart",
		Aliases:     []string{"🛒 Cart"},
	}))
	fsm := &fakeFSM{active: map[int64]bool{1: true}}

	routes := TextRoutes(fsm, reg, TextOptions{UnknownText: func(tele.Context) error { unknownHits++; return nil }})
	require.Len(t, routes, 2)
	text := routes[0].Handler

	require.NoError(t, text(teletest.Message(1, 1, "🛒 Cart")))
	assert.Equal(t, 1, fsm.handled, "pending step wins over commands")

	require.NoError(t, text(teletest.Message(2, 2, "🛒 Cart")))
	assert.Equal(t, 1, cartHits)

	require.NoError(t, text(teletest.Message(3, 2, "hello")))
	assert.Equal(t, 1, unknownHits)

	reg.SetTextFallback(func(tele.Context) error { fallbackHits++; return nil })
	require.NoError(t, text(teletest.Message(4, 2, "hello")))
	assert.Equal(t, 1, fallbackHits)
	assert.Equal(t, 1, unknownHits)
}

func TestEventRoutePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	route := EventRoute(tele.OnContact, "contact", func(c tele.Context) error {
		SetOutcome(c, "ok")
		return boom
	})
	assert.Equal(t, tele.OnContact, route.Endpoint)
	assert.ErrorIs(t, route.Handler(teletest.Message(1, 1, "")), boom)
}

func TestCommandRoutesAdminGate(t *testing.T) {
	reg := tg.NewRegistry()
	var hits int
	require.NoError(t, reg.RegisterCommand("/stats", tg.Command{
		Handler:     func(tele.Context) error { hits++; return nil },
		Description: "Stats",
		AdminOnly:   true,
	}))
	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 42})
	require.Len(t, routes, 1)
	assert.Equal(t, "/stats", routes[0].Endpoint)

	require.NoError(t, routes[0].Handler(teletest.Message(1, 7, "/stats")))
	require.NoError(t, routes[0].Handler(teletest.Message(2, 42, "/stats")))
	assert.Equal(t, 1, hits)
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "", deriveErrorCode(nil))
}
