// Package relay routes inbound chat messages through each user's session:
// collecting NFC card orders, answering tracking lookups and bridging live
// chats between customers and the operator.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/events"
	"github.com/m3rciful/nfcrelay/internal/order"
	"github.com/m3rciful/nfcrelay/internal/session"
)

// Commands understood by the dispatcher.
const (
	CommandStart   = "/start"
	CommandEnd     = "/end"
	CommandEndChat = "/endchat"
)

// CallbackReply is the routing key of the operator's Reply button; its data is reply_<customer id>.
const CallbackReply = "reply"

// Main menu labels. They double as the reply keyboard buttons.
const (
	LabelOrder    = "📦 Order NFC Card"
	LabelTrack    = "📍 Track Order"
	LabelLiveChat = "💬 Live Chat"
)

// Action is an inline button. Data is delivered back verbatim in CallbackEvent.Data.
type Action struct {
	Text string
	Data string
}

// Message is an outbound message with optional rendering hints.
type Message struct {
	Text string
	// Markdown enables Telegram legacy Markdown parsing.
	Markdown bool
	// Keyboard rows replace the user's reply keyboard.
	Keyboard [][]string
	// Actions are rendered as an inline keyboard, one per row.
	Actions []Action
}

// Messenger delivers messages to chat identities.
type Messenger interface {
	Send(ctx context.Context, to int64, msg Message) error
	AnswerCallback(ctx context.Context, id string) error
}

// Event is an inbound text message. Text is always the full message as
// typed; Command, when set, is the bare command the transport matched it to
// ("/end" for "/end@relaybot now").
type Event struct {
	SenderID   int64
	SenderName string
	Text       string
	Command    string
}

// command is the token used for command and menu matching.
func (ev Event) command() string {
	if ev.Command != "" {
		return ev.Command
	}
	return ev.Text
}

// CallbackEvent is an inline button press.
type CallbackEvent struct {
	ID      string
	ActorID int64
	Data    string
}

// Options wires the dispatcher. Sessions, Relays, Orders, ChatLog and Messenger are required.
type Options struct {
	// AdminID is the operator chat. Zero disables operator notifications.
	AdminID int64

	Sessions  *session.Store
	Relays    *session.RelayMap
	Orders    order.Repository
	ChatLog   chatlog.Log
	Messenger Messenger
	Events    events.Publisher

	NewOrderID func() string
	Now        func() time.Time
}

// Dispatcher is the entry point for every inbound event.
type Dispatcher struct {
	adminID  int64
	sessions *session.Store
	relays   *session.RelayMap
	orders   order.Repository
	chatlog  chatlog.Log
	out      Messenger
	events   events.Publisher
	newID    func() string
	now      func() time.Time
	log      *slog.Logger
}

// New validates opts and builds a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Sessions == nil:
		return nil, errors.New("relay: nil session store")
	case opts.Relays == nil:
		return nil, errors.New("relay: nil relay map")
	case opts.Orders == nil:
		return nil, errors.New("relay: nil order repository")
	case opts.ChatLog == nil:
		return nil, errors.New("relay: nil chat log")
	case opts.Messenger == nil:
		return nil, errors.New("relay: nil messenger")
	}

	d := &Dispatcher{
		adminID:  opts.AdminID,
		sessions: opts.Sessions,
		relays:   opts.Relays,
		orders:   opts.Orders,
		chatlog:  opts.ChatLog,
		out:      opts.Messenger,
		events:   opts.Events,
		newID:    opts.NewOrderID,
		now:      opts.Now,
		log:      logger.Relay,
	}
	if d.events == nil {
		d.events = events.Nop{}
	}
	if d.newID == nil {
		d.newID = order.NewID
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// send is best-effort: failures are logged and never change session state.
func (d *Dispatcher) send(ctx context.Context, to int64, msg Message) {
	if to == 0 {
		return
	}
	if err := d.out.Send(ctx, to, msg); err != nil {
		logger.LogEvent(ctx, d.log, slog.LevelWarn, "send.fail",
			slog.Int64("chat_id", to),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) showMenu(ctx context.Context, id int64) {
	d.sessions.Reset(id)
	d.send(ctx, id, menuMessage())
}

func menuMessage() Message {
	return Message{
		Text:     textMenu,
		Keyboard: [][]string{{LabelOrder}, {LabelTrack}, {LabelLiveChat}},
	}
}

func displayName(name string) string {
	if name == "" {
		return "User"
	}
	return name
}
