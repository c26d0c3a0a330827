package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/state"
	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/teletest"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/storage/memory"
)

const adminID = 42

type stubReceipts struct{}

func (stubReceipts) Render(context.Context, domain.Order) ([]byte, error) {
	return []byte("%PDF-1.3 stub"), nil
}

type brokenCarts struct {
	shop.CartStore
}

func (brokenCarts) Get(context.Context, int64) (*domain.Cart, error) {
	return nil, errors.New("connection refused")
}

type harness struct {
	routes   map[any]tele.HandlerFunc
	users    *memory.Users
	sessions *state.MemoryStore
}

func newHarness(t *testing.T, carts shop.CartStore) *harness {
	t.Helper()
	catalog := memory.NewCatalog()
	_, err := catalog.SeedIfEmpty(context.Background(), []domain.Product{
		{Name: "Cola 0.5L", Price: 5000, Category: domain.CategoryDrinks},
		{Name: "Milk 1L", Price: 7000, Category: domain.CategoryDrinks},
		{Name: "Cheeseburger", Price: 25000, Category: domain.CategoryFood},
	})
	require.NoError(t, err)
	if carts == nil {
		carts = memory.NewCarts()
	}

	hs := &harness{
		routes:   make(map[any]tele.HandlerFunc),
		users:    memory.NewUsers(),
		sessions: state.NewMemoryStore(time.Minute),
	}
	ctl, err := shop.New(shop.Options{
		Catalog:        catalog,
		Carts:          carts,
		Users:          hs.users,
		Sessions:       hs.sessions,
		Receipts:       stubReceipts{},
		NewOrderNumber: func() string { return "GG-TEST" },
	})
	require.NoError(t, err)

	h := NewHandler(ctl, Renderer{Currency: "UZS"}, adminID)
	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))
	for _, r := range h.Routes(reg) {
		hs.routes[r.Endpoint] = r.Handler
	}
	return hs
}

func (hs *harness) run(t *testing.T, endpoint any, c *teletest.Context) []teletest.Sent {
	t.Helper()
	h, ok := hs.routes[endpoint]
	require.True(t, ok, "no route for %v", endpoint)
	require.NoError(t, h(c))
	return c.Sent()
}

func (hs *harness) text(t *testing.T, userID int64, text string) []teletest.Sent {
	return hs.run(t, tele.OnText, teletest.Message(1, userID, text))
}

func (hs *harness) press(t *testing.T, userID int64, data string) *teletest.Context {
	t.Helper()
	c := teletest.Callback(1, userID, data)
	hs.run(t, tele.OnCallback, c)
	return c
}

func contactUpdate(sender, owner int64, phone string) *teletest.Context {
	return teletest.New(tele.Update{
		ID: 1,
		Message: &tele.Message{
			Sender:  &tele.User{ID: sender},
			Chat:    &tele.Chat{ID: sender, Type: tele.ChatPrivate},
			Contact: &tele.Contact{UserID: owner, PhoneNumber: phone},
		},
	})
}

func locationUpdate(sender int64, lat, lng float32) *teletest.Context {
	return teletest.New(tele.Update{
		ID: 1,
		Message: &tele.Message{
			Sender:   &tele.User{ID: sender},
			Chat:     &tele.Chat{ID: sender, Type: tele.ChatPrivate},
			Location: &tele.Location{Lat: lat, Lng: lng},
		},
	})
}

func TestOrderFlow(t *testing.T) {
	hs := newHarness(t, nil)
	const user = 1

	sent := hs.run(t, "/start", teletest.Message(1, user, "/start"))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Share your phone number")
	require.NotNil(t, sent[0].Markup())
	assert.True(t, sent[0].Markup().ReplyKeyboard[0][0].Contact)

	sent = hs.run(t, tele.OnContact, contactUpdate(user, user, "+998 90 123-45-67"))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Choose a category")
	u, err := hs.users.Get(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "998901234567", u.Phone)

	sent = hs.text(t, user, domain.CategoryDrinks.Label())
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Cola 0\\.5L")
	assert.Contains(t, sent[0].Text(), "Milk 1L")
	assert.NotContains(t, sent[0].Text(), "Cheeseburger")
	assert.Len(t, sent[0].Markup().InlineKeyboard, 3)

	for _, id := range []string{"1", "1", "2"} {
		c := hs.press(t, user, "\fadd|"+id)
		assert.Empty(t, c.Sent(), "additions are acknowledged with a toast")
		require.Len(t, c.Responses(), 1)
	}

	c := hs.press(t, user, "\fview_cart|")
	sent = c.Sent()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Edit)
	assert.Contains(t, sent[0].Text(), "Total: 17000 UZS")

	c = hs.press(t, user, "\fconfirm_order|")
	sent = c.Sent()
	require.Len(t, sent, 1)
	assert.False(t, sent[0].Edit, "reply keyboards cannot be attached to an edit")
	assert.True(t, sent[0].Markup().ReplyKeyboard[0][0].Location)
	assert.Equal(t, shop.AwaitingAddress, hs.awaiting(t, user))

	sent = hs.run(t, tele.OnLocation, locationUpdate(user, 41.31, 69.28))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "location saved")
	assert.Equal(t, state.StateIdle, hs.awaiting(t, user))

	c = hs.press(t, user, "\fconfirm_order|")
	require.Len(t, c.Sent(), 1)
	assert.Contains(t, c.Sent()[0].Text(), "Generate a PDF receipt?")

	c = hs.press(t, user, "\fgenerate_pdf|")
	sent = c.Sent()
	require.Len(t, sent, 1)
	doc, ok := sent[0].What.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "receipt-GG-TEST.pdf", doc.FileName)
	assert.Contains(t, doc.Caption, "17000 UZS")
}

func (hs *harness) awaiting(t *testing.T, userID int64) state.State {
	t.Helper()
	st, err := hs.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return st
}

func TestAddToastNamesProduct(t *testing.T) {
	hs := newHarness(t, nil)
	hs.press(t, 1, "\fadd|1")
	c := hs.press(t, 1, "add_1")
	require.Len(t, c.Responses(), 1)
	assert.Equal(t, "✅ Cola 0.5L added (2)", c.Responses()[0].Text)
}

func TestAddRejectsBadPayload(t *testing.T) {
	hs := newHarness(t, nil)
	c := hs.press(t, 1, "\fadd|cola")
	assert.Empty(t, c.Sent())
	require.Len(t, c.Responses(), 1)
	assert.Equal(t, "Unsupported action", c.Responses()[0].Text)
}

func TestAddUnknownProduct(t *testing.T) {
	hs := newHarness(t, nil)
	c := hs.press(t, 1, "\fadd|999")
	require.Len(t, c.Responses(), 1)
	assert.Equal(t, "This product is no longer available", c.Responses()[0].Text)
}

func TestForeignContactIgnored(t *testing.T) {
	hs := newHarness(t, nil)
	sent := hs.run(t, tele.OnContact, contactUpdate(1, 2, "+998901234567"))
	assert.Empty(t, sent)
	_, err := hs.users.Get(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchFlow(t *testing.T) {
	hs := newHarness(t, nil)

	sent := hs.run(t, "/search", teletest.Message(1, 1, "/search"))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Type a product name")
	assert.Equal(t, shop.AwaitingSearch, hs.awaiting(t, 1))

	sent = hs.text(t, 1, "cola")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Cola 0\\.5L")
	assert.Equal(t, state.StateIdle, hs.awaiting(t, 1))

	sent = hs.run(t, "/search", teletest.Message(2, 1, "/search burger"))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Cheeseburger")
}

func TestMenuButtonAbandonsPendingStep(t *testing.T) {
	hs := newHarness(t, nil)
	hs.text(t, 1, LabelSearch)
	require.Equal(t, shop.AwaitingSearch, hs.awaiting(t, 1))

	sent := hs.text(t, 1, LabelCart)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Your cart is empty")
	assert.Equal(t, state.StateIdle, hs.awaiting(t, 1))
}

func TestTypedAddress(t *testing.T) {
	hs := newHarness(t, nil)
	hs.press(t, 1, "\fadd|3")
	hs.press(t, 1, "\fconfirm_order|")
	require.Equal(t, shop.AwaitingAddress, hs.awaiting(t, 1))

	sent := hs.text(t, 1, "  Amir Temur   street 1 ")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "address saved")
	u, err := hs.users.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Amir Temur street 1", u.Address)
}

func TestUnknownTextHint(t *testing.T) {
	hs := newHarness(t, nil)
	sent := hs.text(t, 1, "hello")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Use the menu")
}

func TestStatsAdminOnly(t *testing.T) {
	hs := newHarness(t, nil)
	assert.Empty(t, hs.run(t, "/stats", teletest.Message(1, 7, "/stats")))

	sent := hs.run(t, "/stats", teletest.Message(2, adminID, "/stats"))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Products: 3")
}

func TestStoreFailureShowsFailurePrompt(t *testing.T) {
	hs := newHarness(t, brokenCarts{CartStore: memory.NewCarts()})
	c := teletest.Message(1, 1, "/cart")
	err := hs.routes["/cart"](c)
	require.Error(t, err)
	require.Len(t, c.Sent(), 1)
	assert.Contains(t, c.Sent()[0].Text(), "Something went wrong")
}

func TestEditable(t *testing.T) {
	assert.True(t, editable(nil))
	assert.True(t, editable(cartKeyboard(&domain.Cart{Lines: []domain.CartLine{{ProductID: 1, Name: "Cola", Quantity: 1}}})))
	assert.False(t, editable(mainMenu()))
}

func TestCategoryWordIsSearchQueryWhileSearching(t *testing.T) {
	hs := newHarness(t, nil)
	hs.text(t, 1, LabelSearch)
	require.Equal(t, shop.AwaitingSearch, hs.awaiting(t, 1))

	sent := hs.text(t, 1, "food")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Nothing found")
	assert.NotContains(t, sent[0].Text(), "Cheeseburger")
}

func TestCategoryWordIsAddressWhileAwaitingAddress(t *testing.T) {
	hs := newHarness(t, nil)
	hs.press(t, 1, "\fadd|3")
	hs.press(t, 1, "\fconfirm_order|")
	require.Equal(t, shop.AwaitingAddress, hs.awaiting(t, 1))

	sent := hs.text(t, 1, "Snacks")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "address saved")
	u, err := hs.users.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Snacks", u.Address)
}

func TestCategoryButtonAbandonsPendingStep(t *testing.T) {
	hs := newHarness(t, nil)
	hs.text(t, 1, LabelSearch)

	sent := hs.text(t, 1, domain.CategoryFood.Label())
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text(), "Cheeseburger")
	assert.Equal(t, state.StateIdle, hs.awaiting(t, 1))
}

func TestCategoryButton(t *testing.T) {
	c, ok := categoryButton(domain.CategoryDrinks.Label())
	assert.True(t, ok)
	assert.Equal(t, domain.CategoryDrinks, c)
	_, ok = categoryButton("drinks")
	assert.False(t, ok)
}

func TestStaleButtonIsAnswered(t *testing.T) {
	hs := newHarness(t, nil)
	c := hs.press(t, 1, "\fwishlist|3")
	assert.Empty(t, c.Sent())
	require.Len(t, c.Responses(), 1)
	assert.Equal(t, "This button is outdated, open the menu again", c.Responses()[0].Text)
}

func TestCartKeyboardPairsRemoveButtons(t *testing.T) {
	cart := &domain.Cart{Lines: []domain.CartLine{
		{ProductID: 1, Name: "Cola", UnitPrice: 5000, Quantity: 1},
		{ProductID: 2, Name: "Milk", UnitPrice: 7000, Quantity: 2},
		{ProductID: 3, Name: "Chips", UnitPrice: 9000, Quantity: 1},
	}}
	rows := cartKeyboard(cart).InlineKeyboard
	require.Len(t, rows, 4)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 1)
	assert.Equal(t, cbRemove, rows[1][0].Unique)
	assert.Equal(t, "3", rows[1][0].Data)
	assert.Equal(t, cbConfirm, rows[2][0].Unique)

	assert.Len(t, cartKeyboard(&domain.Cart{}).InlineKeyboard, 2)
}

func TestIsShortcut(t *testing.T) {
	assert.True(t, isShortcut(LabelCart))
	assert.True(t, isShortcut("/menu"))
	assert.False(t, isShortcut("cart"))
}
