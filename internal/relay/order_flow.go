package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/order"
	"github.com/m3rciful/nfcrelay/internal/session"
)

func (d *Dispatcher) beginOrder(ctx context.Context, ev Event) error {
	d.sessions.Update(ev.SenderID, func(s *session.Session) {
		*s = session.Session{State: session.AwaitingName}
	})
	d.send(ctx, ev.SenderID, Message{Text: textAskName})
	return nil
}

// handleOrderInput consumes one field per call. Input states that are not an
// order step are left untouched.
func (d *Dispatcher) handleOrderInput(ctx context.Context, ev Event, sess session.Session) error {
	switch sess.State {
	case session.AwaitingName:
		d.sessions.Update(ev.SenderID, func(s *session.Session) {
			s.Name = ev.Text
			s.State = session.AwaitingPhone
		})
		d.send(ctx, ev.SenderID, Message{Text: textAskPhone})
		return nil
	case session.AwaitingPhone:
		d.sessions.Update(ev.SenderID, func(s *session.Session) {
			s.Phone = ev.Text
			s.State = session.AwaitingAddress
		})
		d.send(ctx, ev.SenderID, Message{Text: textAskAddress})
		return nil
	case session.AwaitingAddress:
		return d.placeOrder(ctx, ev, sess)
	default:
		logger.LogEvent(ctx, d.log, slog.LevelDebug, "order.skip",
			slog.String("reason", "unknown_step"),
			slog.String("state", sess.State.String()),
		)
		return nil
	}
}

func (d *Dispatcher) placeOrder(ctx context.Context, ev Event, sess session.Session) error {
	o := order.New(d.newID(), sess.Name, sess.Phone, ev.Text, d.now())

	if err := d.orders.Put(ctx, o); err != nil {
		logger.LogEvent(ctx, d.log, slog.LevelError, "order.place",
			slog.String("status", "fail"),
			slog.Int64("user_id", ev.SenderID),
			slog.String("order_id", o.ID),
			slog.String("err", err.Error()),
		)
		d.send(ctx, ev.SenderID, Message{Text: textOrderRetry})
		return fmt.Errorf("place order %s: %w", o.ID, err)
	}

	logger.LogEvent(ctx, d.log, slog.LevelInfo, "order.place",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.SenderID),
		slog.String("order_id", o.ID),
	)

	if err := d.events.OrderPlaced(ctx, o); err != nil {
		logger.LogEvent(ctx, logger.Events, slog.LevelWarn, "order.publish",
			slog.String("status", "fail"),
			slog.String("order_id", o.ID),
			slog.String("err", err.Error()),
		)
	}

	d.send(ctx, ev.SenderID, Message{
		Text:     fmt.Sprintf(textOrderSaved, o.ID),
		Markdown: true,
	})
	d.send(ctx, d.adminID, Message{
		Text: fmt.Sprintf(textNewOrder, o.Name, o.Phone, o.Address, o.ID),
	})
	d.showMenu(ctx, ev.SenderID)
	return nil
}
