package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/nfcrelay/core/logger"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"
	"github.com/m3rciful/nfcrelay/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary is the handler.handled line written once per routed update.
type summary struct {
	handler string
	start   time.Time
	status  string
	outcome string
	extras  []slog.Attr
}

func newSummary(handler string, start time.Time, extras ...slog.Attr) *summary {
	return &summary{handler: handler, start: start, extras: extras}
}

// skipped marks an update that was routed but had nothing to run.
func (s *summary) skipped() *summary {
	s.status, s.outcome = "skip", "ok"
	return s
}

// run tags the update context with the handler name, runs fn and logs the result.
func (s *summary) run(c tele.Context, fn func() error) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	s.log(c, err)
	return err
}

func (s *summary) log(c tele.Context, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	status, outcome := s.status, s.outcome
	if status == "" {
		status = result
	}
	if outcome == "" {
		outcome = result
	}

	msgs, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.RoundMS(time.Since(s.start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, s.extras...)
	logger.LogEvent(tghelpers.WithHandler(c, s.handler), logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

// handleWithSummary runs fn as handlerName and logs one summary line for it.
func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error, extras ...slog.Attr) error {
	return newSummary(handlerName, start, extras...).run(c, fn)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// deriveErrorCode prefers an explicit Code() on the chain and falls back to
// the error's type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return upperSnake(code)
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return upperSnake(t.Name())
}

func upperSnake(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}
