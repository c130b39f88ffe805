package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/nfcrelay/core/telegram"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"
	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/relay"
	"github.com/m3rciful/nfcrelay/internal/session"
	"github.com/m3rciful/nfcrelay/internal/storage/memory"

	tele "gopkg.in/telebot.v4"
)

const (
	adminID    int64 = 1000
	customerID int64 = 42
)

type sent struct {
	to   string
	text string
	opts *tele.SendOptions
}

type fakeBot struct {
	mu        sync.Mutex
	sent      []sent
	responded []string
}

func (f *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := sent{to: to.Recipient(), text: what.(string)}
	if len(opts) > 0 {
		s.opts, _ = opts[0].(*tele.SendOptions)
	}
	f.sent = append(f.sent, s)
	return &tele.Message{}, nil
}

func (f *fakeBot) Respond(c *tele.Callback, _ ...*tele.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responded = append(f.responded, c.ID)
	return nil
}

func (f *fakeBot) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeBot) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	reg      *tg.Registry
	out      *fakeBot
	tb       *tele.Bot
	sessions *session.Store
	relays   *session.RelayMap
	store    *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessFor(t, adminID)
}

func newHarnessFor(t *testing.T, admin int64) *harness {
	t.Helper()
	tghelpers.SetDispatcher(nil)

	tb, err := tele.NewBot(tele.Settings{Token: "test", Offline: true})
	require.NoError(t, err)

	h := &harness{
		reg:      tg.NewRegistry(),
		out:      &fakeBot{},
		tb:       tb,
		sessions: session.NewStore(),
		relays:   session.NewRelayMap(),
		store:    memory.New(),
	}
	d, err := relay.New(relay.Options{
		AdminID:   admin,
		Sessions:  h.sessions,
		Relays:    h.relays,
		Orders:    h.store,
		ChatLog:   h.store,
		Messenger: NewMessenger(h.out),
	})
	require.NoError(t, err)
	require.NoError(t, Register(h.reg, d, admin, h.out))
	return h
}

func (h *harness) state(id int64) session.State {
	sess, _ := h.sessions.Peek(id)
	return sess.State
}

func (h *harness) message(from int64, text string) tele.Context {
	return h.tb.NewContext(tele.Update{
		ID: 1,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: from, FirstName: "Bob"},
			Chat:   &tele.Chat{ID: from, Type: tele.ChatPrivate},
		},
	})
}

func (h *harness) press(from int64, data string) tele.Context {
	return h.tb.NewContext(tele.Update{
		ID: 2,
		Callback: &tele.Callback{
			ID:     "cb-1",
			Data:   data,
			Sender: &tele.User{ID: from},
		},
	})
}

func (h *harness) groupMessage(chat, from int64, text string) tele.Context {
	return h.tb.NewContext(tele.Update{
		ID: 3,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: from, FirstName: "Ops"},
			Chat:   &tele.Chat{ID: chat, Type: tele.ChatSuperGroup},
		},
	})
}

func (h *harness) groupPress(chat, from int64, data string) tele.Context {
	return h.tb.NewContext(tele.Update{
		ID: 4,
		Callback: &tele.Callback{
			ID:      "cb-2",
			Data:    data,
			Sender:  &tele.User{ID: from},
			Message: &tele.Message{Chat: &tele.Chat{ID: chat, Type: tele.ChatSuperGroup}},
		},
	})
}

// command resolves name the way the text route does and runs its handler.
func (h *harness) command(t *testing.T, name string, c tele.Context) {
	t.Helper()
	_, cmd, ok := h.reg.LookupCommand(name)
	require.True(t, ok, name)
	require.NoError(t, cmd.Handler(c))
}

func (h *harness) openReply(t *testing.T) {
	t.Helper()
	require.NoError(t, h.reg.TextFallback()(h.message(customerID, relay.LabelLiveChat)))
	reply, ok := h.reg.GetCallback(relay.CallbackReply)
	require.True(t, ok)
	require.NoError(t, reply(h.press(adminID, "reply_42")))
	require.Equal(t, session.AdminReplying, h.state(adminID))
}

func (h *harness) history(t *testing.T, conversation int64) []chatlog.Entry {
	t.Helper()
	entries, err := h.store.History(context.Background(), conversation)
	require.NoError(t, err)
	return entries
}

func TestMessengerRendersMarkup(t *testing.T) {
	out := &fakeBot{}
	m := NewMessenger(out)
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, customerID, relay.Message{
		Text:     "menu",
		Keyboard: [][]string{{relay.LabelOrder}, {relay.LabelTrack}, {relay.LabelLiveChat}},
	}))
	menu := out.last(t)
	assert.Equal(t, "42", menu.to)
	require.NotNil(t, menu.opts.ReplyMarkup)
	assert.True(t, menu.opts.ReplyMarkup.ResizeKeyboard)
	require.Len(t, menu.opts.ReplyMarkup.ReplyKeyboard, 3)
	assert.Equal(t, relay.LabelLiveChat, menu.opts.ReplyMarkup.ReplyKeyboard[2][0].Text)
	assert.Empty(t, menu.opts.ParseMode)

	require.NoError(t, m.Send(ctx, adminID, relay.Message{
		Text:    "new chat",
		Actions: []relay.Action{{Text: "Reply", Data: "reply_42"}},
	}))
	prompt := out.last(t)
	require.Len(t, prompt.opts.ReplyMarkup.InlineKeyboard, 1)
	assert.Equal(t, "reply_42", prompt.opts.ReplyMarkup.InlineKeyboard[0][0].Data)

	require.NoError(t, m.Send(ctx, customerID, relay.Message{Text: "*Order*", Markdown: true}))
	md := out.last(t)
	assert.Equal(t, tele.ModeMarkdown, md.opts.ParseMode)
	assert.Nil(t, md.opts.ReplyMarkup)

	require.NoError(t, m.AnswerCallback(ctx, "cb-9"))
	assert.Equal(t, []string{"cb-9"}, out.responded)
}

func TestRegisterCommands(t *testing.T) {
	h := newHarness(t)

	visible := h.reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "end", visible[0].Text)
	assert.Equal(t, "start", visible[1].Text)
	_, _, ok := h.reg.LookupCommand(relay.CommandEndChat)
	assert.True(t, ok)
	assert.Equal(t, []string{relay.CallbackReply}, h.reg.ListCallbacks())
}

func TestCommandAndTextReachDispatcher(t *testing.T) {
	h := newHarness(t)

	_, start, ok := h.reg.LookupCommand("/start")
	require.True(t, ok)
	require.NoError(t, start.Handler(h.message(customerID, "/start@relaybot")))
	assert.Equal(t, session.MainMenu, h.state(customerID))
	assert.Len(t, h.out.last(t).opts.ReplyMarkup.ReplyKeyboard, 3)

	text := h.reg.TextFallback()
	require.NotNil(t, text)
	require.NoError(t, text(h.message(customerID, relay.LabelOrder)))
	assert.Equal(t, session.AwaitingName, h.state(customerID))

	require.NoError(t, text(h.message(customerID, "Bob Smith")))
	got, _ := h.sessions.Peek(customerID)
	assert.Equal(t, session.AwaitingPhone, got.State)
	assert.Equal(t, "Bob Smith", got.Name)
}

func TestReplyCallbackBindsOperator(t *testing.T) {
	h := newHarness(t)
	text := h.reg.TextFallback()
	require.NoError(t, text(h.message(customerID, relay.LabelLiveChat)))

	reply, ok := h.reg.GetCallback(relay.CallbackReply)
	require.True(t, ok)
	require.NoError(t, reply(h.press(adminID, "reply_42")))

	admin, _ := h.sessions.Peek(adminID)
	assert.Equal(t, session.AdminReplying, admin.State)
	assert.Equal(t, customerID, admin.CustomerID)
	assert.Equal(t, []string{"cb-1"}, h.out.responded)

	bound, ok := h.relays.Lookup(customerID)
	require.True(t, ok)
	assert.Equal(t, adminID, bound)
}

func TestReplyCallbackFromStrangerIsAnsweredOnly(t *testing.T) {
	h := newHarness(t)
	reply, ok := h.reg.GetCallback(relay.CallbackReply)
	require.True(t, ok)

	before := h.out.count()
	require.NoError(t, reply(h.press(7, "reply_42")))

	assert.Equal(t, []string{"cb-1"}, h.out.responded)
	assert.Equal(t, before, h.out.count())
	assert.True(t, h.state(7).IsZero())
	_, ok = h.relays.Lookup(customerID)
	assert.False(t, ok)
}

func TestOperatorCommandWithTextIsRelayedWhole(t *testing.T) {
	h := newHarness(t)
	h.openReply(t)

	const reply = "/end of story, your card ships today"
	h.command(t, relay.CommandEnd, h.message(adminID, reply))

	last := h.out.last(t)
	assert.Equal(t, "42", last.to)
	assert.Equal(t, "👤 Support: "+reply, last.text)
	assert.Equal(t, session.AdminReplying, h.state(adminID))

	entries := h.history(t, customerID)
	require.NotEmpty(t, entries)
	assert.Equal(t, reply, entries[len(entries)-1].Message)
	assert.Equal(t, chatlog.SenderAdmin, entries[len(entries)-1].Sender)
}

func TestCustomerCommandWithTextIsForwarded(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reg.TextFallback()(h.message(customerID, relay.LabelLiveChat)))

	h.command(t, relay.CommandEndChat, h.message(customerID, "/endchat please"))

	last := h.out.last(t)
	assert.Equal(t, "1000", last.to)
	assert.Equal(t, "📨 Bob: /endchat please", last.text)
	assert.Equal(t, session.Chatting, h.state(customerID))

	entries := h.history(t, customerID)
	require.Len(t, entries, 1)
	assert.Equal(t, "/endchat please", entries[0].Message)
}

func TestOperatorEndChatWithBotSuffix(t *testing.T) {
	h := newHarness(t)
	h.openReply(t)

	h.command(t, "/endchat@relaybot", h.message(adminID, "/endchat@relaybot"))

	assert.True(t, h.state(adminID).IsZero())
	assert.Equal(t, session.MainMenu, h.state(customerID))
	_, ok := h.relays.Lookup(customerID)
	assert.False(t, ok)
}

func TestGroupOperatorChat(t *testing.T) {
	const group int64 = -100500
	h := newHarnessFor(t, group)
	require.NoError(t, h.reg.TextFallback()(h.message(customerID, relay.LabelLiveChat)))

	reply, ok := h.reg.GetCallback(relay.CallbackReply)
	require.True(t, ok)
	require.NoError(t, reply(h.groupPress(group, 7, "reply_42")))

	ops, _ := h.sessions.Peek(group)
	assert.Equal(t, session.AdminReplying, ops.State)
	assert.Equal(t, customerID, ops.CustomerID)
	assert.True(t, h.state(7).IsZero())
	bound, ok := h.relays.Lookup(customerID)
	require.True(t, ok)
	assert.Equal(t, group, bound)

	require.NoError(t, h.reg.TextFallback()(h.groupMessage(group, 8, "hello from the desk")))
	last := h.out.last(t)
	assert.Equal(t, "42", last.to)
	assert.Equal(t, "👤 Support: hello from the desk", last.text)

	require.NoError(t, reply(h.press(7, "reply_42")))
	assert.True(t, h.state(7).IsZero())
}
