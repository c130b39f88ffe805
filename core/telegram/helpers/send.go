package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Bot is the part of *tele.Bot used for outbound calls.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// sendAsync queues run on the shard for key and runs it inline when no
// dispatcher is wired or the queue cannot take it.
func sendAsync(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	if err := disp.Enqueue(ctx, key, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Event(ctx, "tg.sender", slog.LevelWarn, "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends text to chatID. A nil opts sends plain text without markup.
func SendText(ctx context.Context, b Bot, chatID int64, text string, opts *tele.SendOptions) error {
	if opts == nil {
		opts = &tele.SendOptions{}
	}
	CountSend(ctx, opts.ReplyMarkup != nil)
	return sendAsync(ctx, chatID, "send.text", "sendMessage", func() error {
		_, err := b.Send(tele.ChatID(chatID), text, opts)
		return err
	})
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(ctx context.Context, b Bot, chatID int64, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(ctx, b, chatID, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}

// AnswerCallback acknowledges a callback query by id. It runs inline so the
// client spinner stops without waiting behind queued sends.
func AnswerCallback(ctx context.Context, b Bot, id string) error {
	if id == "" {
		return nil
	}
	if err := b.Respond(&tele.Callback{ID: id}); err != nil {
		logger.Event(ctx, "tg.sender", slog.LevelWarn, "callback.answer",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return err
	}
	return nil
}
