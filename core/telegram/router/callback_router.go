package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/nfcrelay/core/telegram"
	"github.com/m3rciful/nfcrelay/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute routes every callback query to the handler registered for
// its key. Handlers answer the query themselves; unknown keys fall back to
// the registry's not-found handler.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		start := time.Now()
		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok {
			cbHandler = reg.CallbackNotFound()
			extras = append(extras, slog.String("reason", "not_found"))
		}
		if cbHandler == nil {
			newSummary(name, start, extras...).skipped().log(c, nil)
			return nil
		}
		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
