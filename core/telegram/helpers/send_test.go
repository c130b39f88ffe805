package helpers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/nfcrelay/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type sentCall struct {
	to   string
	text string
	opts *tele.SendOptions
}

type fakeBot struct {
	mu         sync.Mutex
	calls      []sentCall
	responded  []string
	respondErr error
}

func (f *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := sentCall{to: to.Recipient(), text: what.(string)}
	if len(opts) > 0 {
		call.opts, _ = opts[0].(*tele.SendOptions)
	}
	f.calls = append(f.calls, call)
	return &tele.Message{}, nil
}

func (f *fakeBot) Respond(c *tele.Callback, _ ...*tele.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responded = append(f.responded, c.ID)
	return f.respondErr
}

func TestSendTextInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	b := &fakeBot{}
	ctx := WithSendCounters(context.Background())

	require.NoError(t, SendText(ctx, b, 42, "hi", nil))
	require.NoError(t, SendMD(ctx, b, 42, "*bold*", &tele.ReplyMarkup{ResizeKeyboard: true}))

	require.Len(t, b.calls, 2)
	assert.Equal(t, "42", b.calls[0].to)
	require.NotNil(t, b.calls[0].opts)
	assert.Empty(t, b.calls[0].opts.ParseMode)
	assert.Equal(t, tele.ModeMarkdown, b.calls[1].opts.ParseMode)

	msgs, kb := SendCounters(ctx)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

func TestSendTextThroughDispatcher(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Shards: 2})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	b := &fakeBot{}
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, SendText(context.Background(), b, 7, text, nil))
	}
	d.Close()

	require.Len(t, b.calls, 3)
	assert.Equal(t, "one", b.calls[0].text)
	assert.Equal(t, "three", b.calls[2].text)
}

func TestSendFallsBackWhenQueueClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{})
	d.Close()
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	b := &fakeBot{}
	require.NoError(t, SendText(context.Background(), b, 7, "late", nil))
	assert.Len(t, b.calls, 1)
}

func TestAnswerCallback(t *testing.T) {
	b := &fakeBot{}
	require.NoError(t, AnswerCallback(context.Background(), b, "cb-1"))
	require.NoError(t, AnswerCallback(context.Background(), b, ""))
	assert.Equal(t, []string{"cb-1"}, b.responded)

	b.respondErr = errors.New("query is too old")
	assert.Error(t, AnswerCallback(context.Background(), b, "cb-2"))
}

func TestSendCountersWithoutAttach(t *testing.T) {
	CountSend(context.Background(), true)
	msgs, kb := SendCounters(context.Background())
	assert.Zero(t, msgs)
	assert.False(t, kb)
}
