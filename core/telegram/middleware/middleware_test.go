package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/nfcrelay/core/config"
	"github.com/m3rciful/nfcrelay/core/logger"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "test", Offline: true})
	require.NoError(t, err)
	return b
}

func messageFrom(b *tele.Bot, updateID int, userID int64, text string) tele.Context {
	user := &tele.User{ID: userID, FirstName: "Ann"}
	return b.NewContext(tele.Update{
		ID: updateID,
		Message: &tele.Message{
			Sender: user,
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	})
}

func callbackFrom(b *tele.Bot, userID int64, data string) tele.Context {
	user := &tele.User{ID: userID}
	return b.NewContext(tele.Update{
		ID:       1,
		Callback: &tele.Callback{ID: "cb", Sender: user, Data: data},
	})
}

func TestLimiterAllowAndSweep(t *testing.T) {
	lim := newLimiter(time.Second)
	now := time.Unix(1000, 0)

	assert.True(t, lim.allow(1, now))
	assert.False(t, lim.allow(1, now.Add(500*time.Millisecond)))
	assert.True(t, lim.allow(2, now.Add(500*time.Millisecond)))
	assert.True(t, lim.allow(1, now.Add(time.Second)))

	lim.allow(3, now.Add(5*time.Second))
	lim.mu.Lock()
	defer lim.mu.Unlock()
	assert.Len(t, lim.lastSeen, 1)
	assert.Contains(t, lim.lastSeen, int64(3))
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, config.UpdateCallback, updateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, config.UpdateMessage, updateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, "other", updateKind(tele.Update{}))
}

func TestRateLimitMiddleware(t *testing.T) {
	b := newBot(t)
	limited := 0
	calls := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{config.UpdateCallback: {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(messageFrom(b, 1, 5, "hi")))
	require.NoError(t, h(messageFrom(b, 2, 5, "again")))
	require.NoError(t, h(callbackFrom(b, 5, "reply_5")))
	require.NoError(t, h(messageFrom(b, 3, 6, "other user")))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, limited)
}

func TestRateLimitDisabled(t *testing.T) {
	b := newBot(t)
	calls := 0
	h := RateLimitMiddleware(RateLimitOptions{})(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		require.NoError(t, h(messageFrom(b, i, 5, "hi")))
	}
	assert.Equal(t, 3, calls)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	b := newBot(t)
	var rejected, passed int
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:  99,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(callbackFrom(b, 5, "reply_5")))
	require.NoError(t, h(callbackFrom(b, 99, "reply_5")))
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, passed)

	open := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { passed++; return nil })
	require.NoError(t, open(callbackFrom(b, 5, "reply_5")))
	assert.Equal(t, 2, passed)
}

func TestAdminOnlyMiddlewareGroupChat(t *testing.T) {
	b := newBot(t)
	const group int64 = -100500
	passed := 0
	h := AdminOnlyMiddleware(AdminOptions{AdminID: group})(func(tele.Context) error { passed++; return nil })

	inGroup := b.NewContext(tele.Update{
		ID: 9,
		Callback: &tele.Callback{
			ID:      "cb",
			Sender:  &tele.User{ID: 7},
			Data:    "reply_5",
			Message: &tele.Message{Chat: &tele.Chat{ID: group, Type: tele.ChatSuperGroup}},
		},
	})
	require.NoError(t, h(inGroup))
	assert.Equal(t, 1, passed)
	assert.Equal(t, group, ActorID(inGroup))

	require.NoError(t, h(callbackFrom(b, 7, "reply_5")))
	assert.Equal(t, 1, passed)
	assert.Equal(t, int64(7), ActorID(callbackFrom(b, 7, "reply_5")))
}

func TestRecoverMiddleware(t *testing.T) {
	b := newBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(messageFrom(b, 1, 5, "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(messageFrom(b, 2, 5, "hi")), want)
}

func TestLoggerMiddlewareStoresContextOnce(t *testing.T) {
	b := newBot(t)
	c := messageFrom(b, 77, 5, "hello")

	var first string
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := tghelpers.ContextFrom(c)
		require.True(t, ok)
		first = logger.RIDFrom(ctx)
		meta := logger.MetaFrom(ctx)
		assert.Equal(t, 77, meta.UpdateID)
		assert.Equal(t, int64(5), meta.UserID)
		return nil
	})
	require.NoError(t, h(c))
	assert.NotEmpty(t, first)
	assert.Equal(t, first, c.Get("rid"))

	require.NoError(t, LoggerMiddleware(func(c tele.Context) error {
		ctx, _ := tghelpers.ContextFrom(c)
		assert.Equal(t, first, logger.RIDFrom(ctx))
		return nil
	})(c))
}

func TestMessageMetricsMiddleware(t *testing.T) {
	b := newBot(t)
	c := messageFrom(b, 1, 5, "hi")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		ctx, _ := tghelpers.ContextFrom(c)
		tghelpers.CountSend(ctx, true)
		tghelpers.CountSend(ctx, false)
		return nil
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}
