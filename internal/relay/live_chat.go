package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/session"
)

// startChat binds the user to the configured operator, which may be zero
// when none is configured; the binding still marks the chat as open.
func (d *Dispatcher) startChat(ctx context.Context, ev Event) error {
	d.sessions.Update(ev.SenderID, func(s *session.Session) {
		*s = session.Session{State: session.Chatting}
	})
	d.relays.Bind(ev.SenderID, d.adminID)

	logger.LogEvent(ctx, d.log, slog.LevelInfo, "chat.start",
		slog.Int64("customer_id", ev.SenderID),
		slog.Int64("admin_id", d.adminID),
		slog.Int("open_chats", d.relays.Len()),
	)

	d.send(ctx, ev.SenderID, Message{Text: textChatConnected})
	d.send(ctx, d.adminID, Message{
		Text: fmt.Sprintf(textChatStarted, ev.SenderName),
		Actions: []Action{{
			Text: actionReply,
			Data: replyActionPrefix + strconv.FormatInt(ev.SenderID, 10),
		}},
	})
	return nil
}

// forwardToAdmin relays a customer message to the operator bridging the chat.
func (d *Dispatcher) forwardToAdmin(ctx context.Context, ev Event) error {
	to, ok := d.relays.Lookup(ev.SenderID)
	if !ok || to == 0 {
		to = d.adminID
	}
	d.send(ctx, to, Message{Text: fmt.Sprintf(textChatForward, ev.SenderName, ev.Text)})
	return d.appendChat(ctx, ev.SenderID, ev.Text, chatlog.SenderUser)
}

// adminReply relays an operator message to the bound customer. Without a
// customer the message is dropped.
func (d *Dispatcher) adminReply(ctx context.Context, ev Event, sess session.Session) error {
	if sess.CustomerID == 0 {
		return nil
	}
	d.send(ctx, sess.CustomerID, Message{Text: fmt.Sprintf(textSupportReply, ev.Text)})
	return d.appendChat(ctx, sess.CustomerID, ev.Text, chatlog.SenderAdmin)
}

// endChatByUser handles /end from any state other than operator replying.
func (d *Dispatcher) endChatByUser(ctx context.Context, ev Event) error {
	d.sessions.Reset(ev.SenderID)
	d.teardown(ctx, ev)
	d.send(ctx, ev.SenderID, Message{Text: textChatEnded})
	d.showMenu(ctx, ev.SenderID)
	return nil
}

// leaveChat tears the relay down when a chatting user jumps back to the menu.
func (d *Dispatcher) leaveChat(ctx context.Context, ev Event, sess session.Session) {
	if sess.State != session.Chatting {
		return
	}
	d.teardown(ctx, ev)
}

// teardown removes the user's binding and tells the bound operator. The
// caller holds the customer's lock; the operator's is taken after it, and
// operator handlers never wait on a customer lock.
func (d *Dispatcher) teardown(ctx context.Context, ev Event) {
	admin, ok := d.relays.Unbind(ev.SenderID)
	if !ok {
		return
	}
	logger.LogEvent(ctx, d.log, slog.LevelInfo, "chat.end",
		slog.String("by", "user"),
		slog.Int64("customer_id", ev.SenderID),
		slog.Int64("admin_id", admin),
	)
	if admin == 0 {
		return
	}
	if admin != ev.SenderID {
		unlock := d.sessions.Lock(admin)
		defer unlock()
	}
	d.sessions.Update(admin, func(s *session.Session) {
		if s.State == session.AdminReplying && s.CustomerID == ev.SenderID {
			*s = session.Session{State: session.MainMenu}
		}
	})
	d.send(ctx, admin, Message{Text: fmt.Sprintf(textUserLeft, ev.SenderName)})
}

// endChatByAdmin handles /endchat from an operator session.
func (d *Dispatcher) endChatByAdmin(ctx context.Context, ev Event, sess session.Session) error {
	customer := sess.CustomerID
	if customer != 0 {
		d.relays.Unbind(customer)
		d.send(ctx, customer, Message{Text: textAgentLeft})
		if _, ok := d.sessions.CompareAndSwap(customer, session.Chatting, func(s *session.Session) {
			*s = session.Session{State: session.MainMenu}
		}); ok {
			d.send(ctx, customer, menuMessage())
		}
	}
	d.sessions.Delete(ev.SenderID)

	logger.LogEvent(ctx, d.log, slog.LevelInfo, "chat.end",
		slog.String("by", "admin"),
		slog.Int64("customer_id", customer),
		slog.Int64("admin_id", ev.SenderID),
	)
	d.send(ctx, ev.SenderID, Message{Text: textChatClosed})
	return nil
}

func (d *Dispatcher) appendChat(ctx context.Context, conversationID int64, text string, sender chatlog.Sender) error {
	if err := d.chatlog.Append(ctx, conversationID, chatlog.NewEntry(text, sender, d.now())); err != nil {
		logger.LogEvent(ctx, d.log, slog.LevelError, "chat.append",
			slog.String("status", "fail"),
			slog.Int64("customer_id", conversationID),
			slog.String("sender", string(sender)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("append chat %d: %w", conversationID, err)
	}
	return nil
}
