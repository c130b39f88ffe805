package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/nfcrelay/core/logger"
	tg "github.com/m3rciful/nfcrelay/core/telegram"
	"github.com/m3rciful/nfcrelay/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how admin-only commands are guarded.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command to its handler. Aliases are
// resolved by TextRoute.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	guard := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		run := def.Handler
		if def.AdminOnly {
			run = guard(run)
		}
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), func() error { return run(c) })
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
	}

	logger.LogEvent(logger.Background(), logger.TWire, slog.LevelInfo, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
