package middleware

import (
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware attaches outbound message counters to the update context.
// Sends made through the helpers package with that context are counted.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithSendCounters(tghelpers.BuildContext(c))
		tghelpers.StoreContext(c, ctx)
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags for the current update.
func GetCounters(c tele.Context) (int, bool) {
	ctx, ok := tghelpers.ContextFrom(c)
	if !ok {
		return 0, false
	}
	return tghelpers.SendCounters(ctx)
}
