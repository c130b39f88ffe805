// Package logger provides the process-wide structured slog logger, its
// component loggers and the helpers that attach update metadata to lines.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/nfcrelay/core/buildinfo"
	coreconfig "github.com/m3rciful/nfcrelay/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	writer  *asyncWriter
	closers []io.Closer

	level        slog.LevelVar
	debugSampler = newSampler(1, 50)
	trace        bool

	// L is the base logger. Until InitLogger runs it points at slog.Default.
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// Store logs storage driver activity.
	Store *slog.Logger
	// Events logs order event publishing.
	Events *slog.Logger
	// Relay logs conversation routing.
	Relay *slog.Logger
)

func init() {
	L = slog.Default()
	wireComponents()
}

// InitLogger installs the structured handler described by cfg. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		level.Set(s.level)
		debugSampler.set(s.sampleNum, s.sampleDen)
		trace = envFlag("TRACE") || envFlag("LOG_TRACE")

		var outputs []io.Writer
		outputs, closers = s.outputs()
		writer = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:  &level,
			writer: writer,
			format: s.format,
			order:  s.order,
		}))
		slog.SetDefault(L)
		wireComponents()

		attrs := []slog.Attr{
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		}
		if cfg != nil {
			attrs = append(attrs,
				slog.String("storage", cfg.Storage.Driver),
				slog.Bool("admin_configured", cfg.Telegram.AdminID != 0),
			)
		}
		LogEvent(context.Background(), Component("app"), slog.LevelInfo, "startup", attrs...)
	})
	return nil
}

func wireComponents() {
	DB = Component("db")
	MIG = Component("db.migrate")
	TG = Component("tg")
	TWire = Component("tg.wire")
	Store = Component("store")
	Events = Component("events")
	Relay = Component("relay")
}

// Shutdown flushes buffered lines and closes file sinks. Later calls are no-ops.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		var errs []error
		if writer != nil {
			errs = append(errs, writer.Flush(), writer.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Background returns a fresh root context for log calls outside any update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one event line. A nil logg resolves the logger stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns the base logger tagged with component=name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs under the named component.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), lvl, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
// TRACE=1 or LOG_TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return trace || debugSampler.allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
