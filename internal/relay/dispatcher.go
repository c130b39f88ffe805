package relay

import (
	"context"
	"log/slog"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/session"
)

// HandleMessage routes one inbound text. Events from the same sender are
// serialised; events from different senders may run concurrently.
//
// Precedence: operator reply, /end, /endchat, /start and menu labels, input
// states, live chat forwarding. Anything else is ignored.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev Event) error {
	if ev.Text == "" {
		return nil
	}
	unlock := d.sessions.Lock(ev.SenderID)
	defer unlock()

	ev.SenderName = displayName(ev.SenderName)
	sess := d.sessions.Get(ev.SenderID)

	if logger.ShouldSampleDebug() {
		logger.LogEvent(ctx, d.log, slog.LevelDebug, "dispatch",
			slog.Int64("user_id", ev.SenderID),
			slog.String("state", sess.State.String()),
		)
	}

	if sess.State == session.AdminReplying {
		if ev.command() == CommandEndChat {
			return d.endChatByAdmin(ctx, ev, sess)
		}
		return d.adminReply(ctx, ev, sess)
	}

	switch ev.command() {
	case CommandEnd:
		return d.endChatByUser(ctx, ev)
	case CommandStart:
		d.leaveChat(ctx, ev, sess)
		d.showMenu(ctx, ev.SenderID)
		return nil
	case LabelOrder:
		d.leaveChat(ctx, ev, sess)
		return d.beginOrder(ctx, ev)
	case LabelTrack:
		d.leaveChat(ctx, ev, sess)
		return d.beginTracking(ctx, ev)
	case LabelLiveChat:
		return d.startChat(ctx, ev)
	}

	switch {
	case sess.State.CollectsInput():
		if sess.State == session.AwaitingTracking {
			return d.handleTracking(ctx, ev)
		}
		return d.handleOrderInput(ctx, ev, sess)
	case sess.State == session.Chatting:
		return d.forwardToAdmin(ctx, ev)
	}

	// Free text outside any flow, including /endchat from a non-operator.
	return nil
}
