package helpers

import (
	"context"
	"sync/atomic"

	"github.com/m3rciful/nfcrelay/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

type sendCountersKey struct{}

type sendCounters struct {
	messages atomic.Int64
	keyboard atomic.Bool
}

// WithSendCounters attaches fresh outbound message counters to ctx.
func WithSendCounters(ctx context.Context) context.Context {
	return context.WithValue(ctx, sendCountersKey{}, &sendCounters{})
}

// CountSend records one outbound message on the counters carried by ctx, if any.
func CountSend(ctx context.Context, keyboard bool) {
	if ctx == nil {
		return
	}
	if sc, ok := ctx.Value(sendCountersKey{}).(*sendCounters); ok {
		sc.messages.Add(1)
		if keyboard {
			sc.keyboard.Store(true)
		}
	}
}

// SendCounters returns how many messages were sent under ctx and whether any carried a keyboard.
func SendCounters(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	sc, ok := ctx.Value(sendCountersKey{}).(*sendCounters)
	if !ok {
		return 0, false
	}
	return int(sc.messages.Load()), sc.keyboard.Load()
}

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom telegram context if previously stored by middleware.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if v := c.Get(contextKey); v != nil {
		if ctx, ok := v.(context.Context); ok {
			return ctx, true
		}
	}
	return nil, false
}

// BuildContext constructs a context.Context from tele.Context,
// enriching it with RID and update/user/chat metadata for consistent service logging.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	upd := c.Update()
	user := c.Sender()
	chat := c.Chat()

	var (
		chatID int64
		userID int64
	)
	if chat != nil {
		chatID = chat.ID
	}
	if user != nil {
		userID = user.ID
	}

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := context.Background()
	ctx = logger.WithRID(ctx, rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches stored context with handler metadata for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
