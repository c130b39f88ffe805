package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/core/telegram/format"
	"github.com/m3rciful/nfcrelay/internal/order"
	"github.com/m3rciful/nfcrelay/internal/session"
)

func (d *Dispatcher) beginTracking(ctx context.Context, ev Event) error {
	d.sessions.Update(ev.SenderID, func(s *session.Session) {
		*s = session.Session{State: session.AwaitingTracking}
	})
	d.send(ctx, ev.SenderID, Message{Text: textAskTracking})
	return nil
}

// handleTracking answers a single lookup and always returns the user to the menu.
// Ids that NewID could not have produced are reported as not found without a
// store round trip.
func (d *Dispatcher) handleTracking(ctx context.Context, ev Event) error {
	id := order.NormalizeID(ev.Text)
	if !order.ValidID(id) {
		d.send(ctx, ev.SenderID, Message{Text: textOrderNotFound})
		d.showMenu(ctx, ev.SenderID)
		return nil
	}
	o, err := d.orders.Get(ctx, id)

	switch {
	case err == nil:
		d.send(ctx, ev.SenderID, Message{Text: renderOrder(id, o), Markdown: true})
	case errors.Is(err, order.ErrNotFound):
		d.send(ctx, ev.SenderID, Message{Text: textOrderNotFound})
	default:
		logger.LogEvent(ctx, d.log, slog.LevelError, "order.track",
			slog.String("status", "fail"),
			slog.Int64("user_id", ev.SenderID),
			slog.String("order_id", logger.SanitizeLimit(id, 64)),
			slog.String("err", err.Error()),
		)
		d.send(ctx, ev.SenderID, Message{Text: textLookupFailed})
		d.showMenu(ctx, ev.SenderID)
		return fmt.Errorf("track order: %w", err)
	}

	d.showMenu(ctx, ev.SenderID)
	return nil
}

func renderOrder(id string, o order.Order) string {
	esc := format.EscapeMarkdown
	return fmt.Sprintf(textOrderFound,
		esc(id), esc(o.Name), esc(o.Phone), esc(o.Address), esc(o.Date), esc(o.Status))
}
