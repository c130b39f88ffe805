package middleware

import (
	"log/slog"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware attaches the per-update context (rid, update, chat and
// user ids) and logs one sampled update.received line. A context stored by
// an outer layer is kept, so the line is written once per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); ok {
			return next(c)
		}
		ctx := tghelpers.BuildContext(c)
		c.Set("rid", logger.RIDFrom(ctx))

		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", updateAttrs(c)...)
		}
		return next(c)
	}
}

func updateAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseData(upd.Callback.Data)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
