package router

import (
	"time"

	tg "github.com/m3rciful/nfcrelay/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextRoute handles plain text: command aliases first, then the registry's
// text fallback. Admin-only commands are reachable only through CommandRoutes.
// Text with no handler is logged and dropped.
func TextRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if key, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
			return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
				return cmd.Handler(c)
			})
		}
		if fb := reg.TextFallback(); fb != nil {
			return handleWithSummary(c, "text", start, func() error {
				return fb(c)
			})
		}
		newSummary("unknown_text", start).skipped().log(c, nil)
		return nil
	}
	return tg.Route{Endpoint: tele.OnText, Handler: handler}
}
