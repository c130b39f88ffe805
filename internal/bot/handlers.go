package bot

import (
	tg "github.com/m3rciful/nfcrelay/core/telegram"
	"github.com/m3rciful/nfcrelay/core/telegram/commands"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"
	"github.com/m3rciful/nfcrelay/core/telegram/middleware"
	"github.com/m3rciful/nfcrelay/internal/relay"

	tele "gopkg.in/telebot.v4"
)

// Register binds the relay dispatcher to the bot commands, free text and the
// operator's Reply button. b answers callbacks rejected before the dispatcher.
func Register(reg *tg.Registry, d *relay.Dispatcher, adminID int64, b tghelpers.Bot) error {
	cmds := []struct {
		name   string
		desc   string
		hidden bool
	}{
		{relay.CommandStart, "Open the main menu", false},
		{relay.CommandEnd, "End the live chat", false},
		{relay.CommandEndChat, "Close the current reply session", true},
	}
	for _, c := range cmds {
		reg.RegisterCommand(c.name, commands.Command{
			Handler:     commandHandler(d, c.name),
			Description: c.desc,
			Hidden:      c.hidden,
		})
	}
	reg.SetTextFallback(textHandler(d))

	guard := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID: adminID,
		OnReject: func(c tele.Context) error {
			if cb := c.Callback(); cb != nil {
				return tghelpers.AnswerCallback(tghelpers.BuildContext(c), b, cb.ID)
			}
			return nil
		},
	})
	return reg.RegisterCallback(relay.CallbackReply, guard(callbackHandler(d)))
}

// commandHandler passes the full text with the matched command, so
// "/start@relaybot" and "/start promo" both dispatch as /start while an
// operator reply such as "/end of story" still reaches the customer whole.
func commandHandler(d *relay.Dispatcher, name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ev := eventFrom(c)
		ev.Command = name
		return d.HandleMessage(tghelpers.BuildContext(c), ev)
	}
}

func textHandler(d *relay.Dispatcher) tele.HandlerFunc {
	return func(c tele.Context) error {
		return d.HandleMessage(tghelpers.BuildContext(c), eventFrom(c))
	}
}

func callbackHandler(d *relay.Dispatcher) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		ev := relay.CallbackEvent{ID: cb.ID, Data: cb.Data, ActorID: middleware.ActorID(c)}
		return d.HandleCallback(tghelpers.BuildContext(c), ev)
	}
}

// eventFrom keys the sender by chat, the same identity callbacks use, so a
// group operator chat is one session.
func eventFrom(c tele.Context) relay.Event {
	ev := relay.Event{Text: c.Text(), SenderID: middleware.ActorID(c)}
	if u := c.Sender(); u != nil {
		ev.SenderName = u.FirstName
	}
	return ev
}
