package bot

import (
	"context"

	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"
	"github.com/m3rciful/nfcrelay/core/telegram/keyboard"
	"github.com/m3rciful/nfcrelay/internal/relay"

	tele "gopkg.in/telebot.v4"
)

// Messenger delivers relay messages through the Telegram Bot API.
type Messenger struct {
	bot tghelpers.Bot
}

// NewMessenger wraps b. Sends go through the helpers package, so they are
// queued on the shared sender when one is wired.
func NewMessenger(b tghelpers.Bot) *Messenger {
	return &Messenger{bot: b}
}

// Send renders msg. Inline actions win over a reply keyboard since Telegram
// accepts a single markup per message.
func (m *Messenger) Send(ctx context.Context, to int64, msg relay.Message) error {
	markup := renderMarkup(msg)
	if msg.Markdown {
		return tghelpers.SendMD(ctx, m.bot, to, msg.Text, markup)
	}
	return tghelpers.SendText(ctx, m.bot, to, msg.Text, &tele.SendOptions{ReplyMarkup: markup})
}

// AnswerCallback acknowledges a callback query.
func (m *Messenger) AnswerCallback(ctx context.Context, id string) error {
	return tghelpers.AnswerCallback(ctx, m.bot, id)
}

func renderMarkup(msg relay.Message) *tele.ReplyMarkup {
	switch {
	case len(msg.Actions) > 0:
		btns := make([]keyboard.InlineBtn, len(msg.Actions))
		for i, a := range msg.Actions {
			btns[i] = keyboard.InlineBtn{Text: a.Text, Data: a.Data}
		}
		return keyboard.InlineButtons(btns)
	case len(msg.Keyboard) > 0:
		return keyboard.ReplyButtons(msg.Keyboard...)
	default:
		return nil
	}
}
