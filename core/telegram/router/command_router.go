package router

import (
	"log/slog"
	"sort"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	tg "github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	names := make([]string, 0, len(reg.Commands()))
	for cmd := range reg.Commands() {
		names = append(names, cmd)
	}
	sort.Strings(names)

	routes := make([]tg.Route, 0, len(names))
	for _, cmd := range names {
		def := reg.Commands()[cmd]
		h := commandHandler(cmd, def.Handler)
		if def.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  wrap(h),
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

func commandHandler(cmd string, h tele.HandlerFunc) tele.HandlerFunc {
	name := normalizeHandlerName(cmd)
	return func(c tele.Context) error {
		return handleWithSummary(c, name, time.Now(), "", "", func() error {
			return h(c)
		})
	}
}
