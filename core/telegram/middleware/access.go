package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	tghelpers "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/helpers"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream
// handlers. With AdminID unset every caller is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID == 0 || tghelpers.UserID(c) != opts.AdminID {
				logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
					slog.String("status", "skip"),
				)
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
