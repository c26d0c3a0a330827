package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/callbacks"
	tghelpers "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/helpers"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// UpdateKind classifies an update for logs, metrics and rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// LoggerMiddleware logs a single receipt line per update and sets rid.
// It deduplicates by update_id because routes re-apply it on top of the global chain.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		if existing, ok := tghelpers.ContextFrom(c); ok {
			if h := logger.HandlerFrom(existing); h != "" {
				ctx = logger.WithHandler(ctx, h)
			}
		}
		tghelpers.StoreContext(c, ctx)

		if !alreadyLogged(upd.ID) {
			updatesTotal.WithLabelValues(UpdateKind(upd)).Inc()
			if logger.ShouldSampleDebug() {
				logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receiptAttrs(c, upd, user, chat)...)
			}
		}

		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update, user *tele.User, chat *tele.Chat) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("op", UpdateKind(upd)),
	}
	if chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	if user != nil && user.LanguageCode != "" {
		attrs = append(attrs, slog.String("lang", user.LanguageCode))
	}

	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		msg := upd.Message
		switch {
		case msg.Contact != nil:
			attrs = append(attrs, slog.String("payload", "contact"))
		case msg.Location != nil:
			attrs = append(attrs, slog.String("payload", "location"))
		default:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
		}
	}
	return attrs
}
