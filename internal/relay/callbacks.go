package relay

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/session"
)

// HandleCallback processes an inline button press. The press is always
// acknowledged, whether or not the data was understood.
func (d *Dispatcher) HandleCallback(ctx context.Context, cb CallbackEvent) error {
	defer func() {
		if err := d.out.AnswerCallback(ctx, cb.ID); err != nil {
			logger.LogEvent(ctx, d.log, slog.LevelWarn, "callback.answer",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()

	customer, ok := parseReply(cb.Data)
	if !ok {
		logger.LogEvent(ctx, d.log, slog.LevelDebug, "callback.skip",
			slog.String("reason", "unknown_data"),
			slog.String("payload", logger.SanitizeLimit(cb.Data, 64)),
		)
		return nil
	}
	if d.adminID != 0 && cb.ActorID != d.adminID {
		logger.LogEvent(ctx, d.log, slog.LevelWarn, "callback.skip",
			slog.String("reason", "not_admin"),
			slog.Int64("user_id", cb.ActorID),
		)
		return nil
	}

	unlock := d.sessions.Lock(cb.ActorID)
	defer unlock()

	d.relays.Bind(customer, cb.ActorID)
	d.sessions.Update(cb.ActorID, func(s *session.Session) {
		*s = session.Session{State: session.AdminReplying, CustomerID: customer}
	})

	logger.LogEvent(ctx, d.log, slog.LevelInfo, "chat.bind",
		slog.Int64("customer_id", customer),
		slog.Int64("admin_id", cb.ActorID),
	)
	d.send(ctx, cb.ActorID, Message{Text: textReplyReady})
	return nil
}

// parseReply extracts the customer id from reply_<id>.
func parseReply(data string) (int64, bool) {
	raw, ok := strings.CutPrefix(data, replyActionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
