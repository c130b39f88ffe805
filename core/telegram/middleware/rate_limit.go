package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/nfcrelay/core/config"
	"github.com/m3rciful/nfcrelay/core/logger"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds update kinds (config.UpdateCallback, config.UpdateMessage) that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// limiter remembers the last accepted update per user.
type limiter struct {
	interval time.Duration

	mu       sync.Mutex
	lastSeen map[int64]time.Time
	sweptAt  time.Time
}

func newLimiter(interval time.Duration) *limiter {
	return &limiter{interval: interval, lastSeen: make(map[int64]time.Time)}
}

// allow reports whether userID may proceed at now and records the hit when it may.
func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = now
	l.sweep(now)
	return true
}

// sweep drops users idle for longer than the interval, at most once per interval.
func (l *limiter) sweep(now time.Time) {
	if now.Sub(l.sweptAt) < l.interval {
		return
	}
	l.sweptAt = now
	for id, last := range l.lastSeen {
		if now.Sub(last) >= l.interval {
			delete(l.lastSeen, id)
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return config.UpdateCallback
	case upd.Message != nil:
		return config.UpdateMessage
	default:
		return "other"
	}
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := newLimiter(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if lim.allow(user.ID, time.Now()) {
				return next(c)
			}

			attrs := []slog.Attr{
				slog.Int64("user_id", user.ID),
				slog.String("kind", kind),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
