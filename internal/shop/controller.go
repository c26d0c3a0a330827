// Package shop is the conversation flow of the storefront: it turns chat
// events into store mutations and the next prompt to show.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/state"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// Pending conversation steps kept in the session store.
const (
	AwaitingSearch  state.State = "search_query"
	AwaitingAddress state.State = "address"
)

const maxAddressRunes = 256

var tracer = otel.Tracer("github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop")

// Options wires the controller to its collaborators. Publisher may be nil.
type Options struct {
	Catalog   CatalogStore
	Carts     CartStore
	Users     UserStore
	Sessions  state.Store
	Receipts  ReceiptRenderer
	Publisher OrderPublisher

	// ClearCartAfterReceipt deletes the cart once a receipt was rendered.
	ClearCartAfterReceipt bool

	Now            func() time.Time
	NewOrderNumber func() string
}

// Controller handles one event at a time per call; it keeps no state of its
// own beyond what the stores hold, so it is safe for concurrent use.
type Controller struct {
	catalog   CatalogStore
	carts     CartStore
	users     UserStore
	sessions  state.Store
	receipts  ReceiptRenderer
	publisher OrderPublisher

	clearAfterReceipt bool
	now               func() time.Time
	orderNumber       func() string
}

// New validates opts and returns a controller.
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Catalog == nil:
		return nil, fmt.Errorf("shop: catalog store is required")
	case opts.Carts == nil:
		return nil, fmt.Errorf("shop: cart store is required")
	case opts.Users == nil:
		return nil, fmt.Errorf("shop: user store is required")
	case opts.Sessions == nil:
		return nil, fmt.Errorf("shop: session store is required")
	case opts.Receipts == nil:
		return nil, fmt.Errorf("shop: receipt renderer is required")
	}
	c := &Controller{
		catalog:           opts.Catalog,
		carts:             opts.Carts,
		users:             opts.Users,
		sessions:          opts.Sessions,
		receipts:          opts.Receipts,
		publisher:         opts.Publisher,
		clearAfterReceipt: opts.ClearCartAfterReceipt,
		now:               opts.Now,
		orderNumber:       opts.NewOrderNumber,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.orderNumber == nil {
		c.orderNumber = NewOrderNumber
	}
	return c, nil
}

// NewOrderNumber returns a short human-readable receipt number.
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "GG-" + strings.ToUpper(id[:10])
}

// begin opens the span for op and returns the hook that closes it and
// records metrics.
func (c *Controller) begin(ctx context.Context, op string, userID int64) (context.Context, func(Response, error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "shop."+op,
		trace.WithAttributes(attribute.Int64("shop.user_id", userID)),
	)
	return ctx, func(resp Response, err error) {
		span.SetAttributes(attribute.String("shop.prompt", string(resp.Prompt)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		operationsTotal.WithLabelValues(op, string(resp.Prompt)).Inc()
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// fail turns a store error into the generic failure prompt.
func (c *Controller) fail(ctx context.Context, op string, err error) (Response, error) {
	storeFailuresTotal.WithLabelValues(op).Inc()
	logger.LogEvent(ctx, logger.SVCShop, slog.LevelError, "shop.failure",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return Response{Prompt: PromptFailure}, fmt.Errorf("%s: %w", op, err)
}

// setAwaiting stores a pending step. Session failures degrade the flow but
// never fail the event.
func (c *Controller) setAwaiting(ctx context.Context, userID int64, st state.State) {
	var err error
	if state.Active(st) {
		err = c.sessions.Set(ctx, userID, st)
	} else {
		err = c.sessions.Clear(ctx, userID)
	}
	if err != nil {
		logger.LogEvent(ctx, logger.SVCShop, slog.LevelWarn, "shop.session",
			slog.String("status", "fail"),
			slog.String("state", string(st)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

// Awaiting returns the pending step for the user, StateIdle when none.
func (c *Controller) Awaiting(ctx context.Context, userID int64) state.State {
	st, err := c.sessions.Get(ctx, userID)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCShop, slog.LevelWarn, "shop.session",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return state.StateIdle
	}
	return st
}

// CancelAwaiting drops any pending step, e.g. when the user pressed a menu button instead.
func (c *Controller) CancelAwaiting(ctx context.Context, userID int64) {
	c.setAwaiting(ctx, userID, state.StateIdle)
}

// Start greets the user and asks for a phone number. It also drops any pending step.
func (c *Controller) Start(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "start", userID)
	defer func() { done(resp, err) }()

	c.setAwaiting(ctx, userID, state.StateIdle)
	return Response{Prompt: PromptWelcome}, nil
}

// ReceiveContact stores the shared phone and shows the category menu.
// Malformed numbers are ignored without a reply.
func (c *Controller) ReceiveContact(ctx context.Context, userID int64, phone string) (resp Response, err error) {
	ctx, done := c.begin(ctx, "receive_contact", userID)
	defer func() { done(resp, err) }()

	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCShop, slog.LevelDebug, "shop.contact",
			slog.String("status", "skip"),
			slog.String("reason", "invalid_phone"),
		)
		return Response{Prompt: PromptNone}, nil
	}
	if err := c.users.UpsertPhone(ctx, userID, normalized); err != nil {
		return c.fail(ctx, "receive_contact", err)
	}
	return Response{Prompt: PromptCategories, Categories: domain.Categories()}, nil
}

// ShowCategories presents the category menu.
func (c *Controller) ShowCategories(ctx context.Context, userID int64) (resp Response, err error) {
	_, done := c.begin(ctx, "show_categories", userID)
	defer func() { done(resp, err) }()

	return Response{Prompt: PromptCategories, Categories: domain.Categories()}, nil
}

// SelectCategory lists products of a category given by id or menu label.
// Unknown and empty categories both yield PromptNoProducts.
func (c *Controller) SelectCategory(ctx context.Context, userID int64, raw string) (resp Response, err error) {
	ctx, done := c.begin(ctx, "select_category", userID)
	defer func() { done(resp, err) }()

	category, err := domain.ParseCategory(raw)
	if err != nil {
		return Response{Prompt: PromptNoProducts}, nil
	}
	products, err := c.catalog.FindByCategory(ctx, category)
	if err != nil {
		return c.fail(ctx, "select_category", err)
	}
	if len(products) == 0 {
		return Response{Prompt: PromptNoProducts, Category: category}, nil
	}
	return Response{Prompt: PromptProducts, Category: category, Products: products}, nil
}

// AddToCart adds one unit of a product. Unknown products yield
// PromptProductNotFound and leave the cart untouched.
func (c *Controller) AddToCart(ctx context.Context, userID, productID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "add_to_cart", userID)
	defer func() { done(resp, err) }()

	product, err := c.catalog.FindByID(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return Response{Prompt: PromptProductNotFound}, nil
	}
	if err != nil {
		return c.fail(ctx, "add_to_cart", err)
	}
	qty, err := c.carts.UpsertIncrement(ctx, userID, product.ID, product.Name, product.Price, 1)
	if err != nil {
		return c.fail(ctx, "add_to_cart", err)
	}
	cartAdditionsTotal.Inc()
	return Response{Prompt: PromptAdded, Product: &product, Quantity: qty}, nil
}

// RemoveFromCart takes one unit of a product out of the cart and returns the
// refreshed cart view.
func (c *Controller) RemoveFromCart(ctx context.Context, userID, productID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "remove_from_cart", userID)
	defer func() { done(resp, err) }()

	if _, err := c.carts.UpsertIncrement(ctx, userID, productID, "", 0, -1); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return c.fail(ctx, "remove_from_cart", err)
	}
	return c.cartView(ctx, "remove_from_cart", userID)
}

// ViewCart renders the cart lines and total.
func (c *Controller) ViewCart(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "view_cart", userID)
	defer func() { done(resp, err) }()

	return c.cartView(ctx, "view_cart", userID)
}

func (c *Controller) cartView(ctx context.Context, op string, userID int64) (Response, error) {
	cart, err := c.loadCart(ctx, userID)
	if err != nil {
		return c.fail(ctx, op, err)
	}
	if cart.Empty() {
		return Response{Prompt: PromptCartEmpty}, nil
	}
	return Response{Prompt: PromptCart, Cart: cart}, nil
}

// loadCart returns a nil cart for users without one.
func (c *Controller) loadCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := c.carts.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return cart, err
}

// loadUser returns a bare user for ids never seen before.
func (c *Controller) loadUser(ctx context.Context, userID int64) (domain.User, error) {
	u, err := c.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{ID: userID}, nil
	}
	return u, err
}

// ConfirmOrder checks the cart and delivery target. Without a location or
// address it asks for one and the user has to confirm again afterwards.
func (c *Controller) ConfirmOrder(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "confirm_order", userID)
	defer func() { done(resp, err) }()

	cart, err := c.loadCart(ctx, userID)
	if err != nil {
		return c.fail(ctx, "confirm_order", err)
	}
	if cart.Empty() {
		return Response{Prompt: PromptCartEmpty}, nil
	}
	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return c.fail(ctx, "confirm_order", err)
	}
	if !user.HasDeliveryTarget() {
		c.setAwaiting(ctx, userID, AwaitingAddress)
		return Response{Prompt: PromptLocationRequest}, nil
	}
	return Response{Prompt: PromptReceiptOffer, Cart: cart}, nil
}

// GenerateReceipt reads the cart again, renders the receipt and announces
// it. Publishing failures are logged only.
func (c *Controller) GenerateReceipt(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "generate_receipt", userID)
	defer func() { done(resp, err) }()

	cart, err := c.loadCart(ctx, userID)
	if err != nil {
		return c.fail(ctx, "generate_receipt", err)
	}
	if cart.Empty() {
		return Response{Prompt: PromptCartEmpty}, nil
	}
	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return c.fail(ctx, "generate_receipt", err)
	}
	if !user.HasDeliveryTarget() {
		c.setAwaiting(ctx, userID, AwaitingAddress)
		return Response{Prompt: PromptLocationRequest}, nil
	}

	order, err := domain.NewOrder(c.orderNumber(), user, cart, c.now())
	if err != nil {
		return c.fail(ctx, "generate_receipt", err)
	}
	doc, err := c.receipts.Render(ctx, order)
	if err != nil {
		receiptsTotal.WithLabelValues("fail").Inc()
		return c.fail(ctx, "generate_receipt", err)
	}
	receiptsTotal.WithLabelValues("ok").Inc()

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, order); err != nil {
			logger.LogEvent(ctx, logger.SVCShop, slog.LevelWarn, "shop.publish",
				slog.String("status", "fail"),
				slog.String("order", order.Number),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}
	if c.clearAfterReceipt {
		if err := c.carts.Delete(ctx, userID); err != nil {
			logger.LogEvent(ctx, logger.SVCShop, slog.LevelWarn, "shop.clear_cart",
				slog.String("status", "fail"),
				slog.String("order", order.Number),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}

	logger.LogEvent(ctx, logger.SVCShop, slog.LevelInfo, "shop.receipt",
		slog.String("status", "ok"),
		slog.String("order", order.Number),
		slog.Int("lines", len(order.Lines)),
		slog.Int64("total", int64(order.Total)),
		slog.Int("bytes", len(doc)),
	)
	return Response{
		Prompt:   PromptReceipt,
		Order:    &order,
		Document: doc,
		FileName: "receipt-" + order.Number + ".pdf",
	}, nil
}

// CancelOrder acknowledges the cancellation; cart and location stay as they are.
func (c *Controller) CancelOrder(ctx context.Context, userID int64) (resp Response, err error) {
	_, done := c.begin(ctx, "cancel_order", userID)
	defer func() { done(resp, err) }()

	return Response{Prompt: PromptOrderCancelled}, nil
}

// ReceiveLocation stores a shared geolocation. Coordinates out of range are ignored.
func (c *Controller) ReceiveLocation(ctx context.Context, userID int64, lat, lon float64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "receive_location", userID)
	defer func() { done(resp, err) }()

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Response{Prompt: PromptNone}, nil
	}
	if err := c.users.UpsertLocation(ctx, userID, domain.Location{Latitude: lat, Longitude: lon}); err != nil {
		return c.fail(ctx, "receive_location", err)
	}
	if c.Awaiting(ctx, userID) == AwaitingAddress {
		c.setAwaiting(ctx, userID, state.StateIdle)
	}
	return Response{Prompt: PromptLocationSaved}, nil
}

// ReceiveAddress stores a typed delivery address in place of a geolocation.
func (c *Controller) ReceiveAddress(ctx context.Context, userID int64, text string) (resp Response, err error) {
	ctx, done := c.begin(ctx, "receive_address", userID)
	defer func() { done(resp, err) }()

	address := strings.Join(strings.Fields(text), " ")
	if address == "" {
		return Response{Prompt: PromptNone}, nil
	}
	if utf8.RuneCountInString(address) > maxAddressRunes {
		address = string([]rune(address)[:maxAddressRunes])
	}
	if err := c.users.UpsertAddress(ctx, userID, address); err != nil {
		return c.fail(ctx, "receive_address", err)
	}
	c.setAwaiting(ctx, userID, state.StateIdle)
	return Response{Prompt: PromptAddressSaved}, nil
}

// BeginSearch makes the next free text a search query.
func (c *Controller) BeginSearch(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "begin_search", userID)
	defer func() { done(resp, err) }()

	c.setAwaiting(ctx, userID, AwaitingSearch)
	return Response{Prompt: PromptSearchQuery}, nil
}

// Search matches product names case-insensitively. An empty query or no
// match yields PromptNothingFound.
func (c *Controller) Search(ctx context.Context, userID int64, query string) (resp Response, err error) {
	ctx, done := c.begin(ctx, "search", userID)
	defer func() { done(resp, err) }()

	if c.Awaiting(ctx, userID) == AwaitingSearch {
		c.setAwaiting(ctx, userID, state.StateIdle)
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return Response{Prompt: PromptNothingFound}, nil
	}
	products, err := c.catalog.Search(ctx, q)
	if err != nil {
		return c.fail(ctx, "search", err)
	}
	if len(products) == 0 {
		return Response{Prompt: PromptNothingFound, Query: q}, nil
	}
	return Response{Prompt: PromptProducts, Query: q, Products: products}, nil
}

// ClearCart deletes the cart.
func (c *Controller) ClearCart(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "clear_cart", userID)
	defer func() { done(resp, err) }()

	if err := c.carts.Delete(ctx, userID); err != nil {
		return c.fail(ctx, "clear_cart", err)
	}
	return Response{Prompt: PromptCartCleared}, nil
}

// HandleText routes free text to the pending step. Without one the text is
// tried as a category label; anything else is ignored.
func (c *Controller) HandleText(ctx context.Context, userID int64, text string) (Response, error) {
	switch c.Awaiting(ctx, userID) {
	case AwaitingSearch:
		return c.Search(ctx, userID, text)
	case AwaitingAddress:
		return c.ReceiveAddress(ctx, userID, text)
	}
	if _, err := domain.ParseCategory(text); err == nil {
		return c.SelectCategory(ctx, userID, text)
	}
	return Response{Prompt: PromptNone}, nil
}

// Stats reports catalog size and active carts.
func (c *Controller) Stats(ctx context.Context, userID int64) (resp Response, err error) {
	ctx, done := c.begin(ctx, "stats", userID)
	defer func() { done(resp, err) }()

	products, err := c.catalog.Count(ctx)
	if err != nil {
		return c.fail(ctx, "stats", err)
	}
	carts, err := c.carts.CountActive(ctx)
	if err != nil {
		return c.fail(ctx, "stats", err)
	}
	return Response{Prompt: PromptStats, Stats: Stats{Products: products, ActiveCarts: carts}}, nil
}
