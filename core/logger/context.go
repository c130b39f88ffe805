package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	keyMeta ctxKey = iota
	keyLogger
)

// Meta identifies the Telegram update a log line belongs to.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

// MetaFrom returns the update metadata carried by ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(keyMeta).(Meta)
	return m
}

func withMeta(ctx context.Context, fn func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, keyMeta, m)
}

// WithRID attaches a correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.RID = rid })
}

// RIDFrom extracts the correlation id, if any.
func RIDFrom(ctx context.Context) string {
	return MetaFrom(ctx).RID
}

// WithUpdateMeta attaches update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
	})
}

// WithHandler records the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithLogger stores log in ctx for LogEvent calls that pass no logger.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// appendMeta adds ctx metadata for keys the record did not set itself.
func appendMeta(ctx context.Context, f fields) {
	m := MetaFrom(ctx)
	f.setDefault("rid", m.RID)
	if m.UpdateID != 0 {
		f.setDefault("update_id", int64(m.UpdateID))
	}
	if m.UserID != 0 {
		f.setDefault("user_id", m.UserID)
	}
	if m.ChatID != 0 {
		f.setDefault("chat_id", m.ChatID)
	}
	f.setDefault("handler", m.Handler)
}
