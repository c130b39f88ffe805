package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/nfcrelay/core/config"
	"github.com/m3rciful/nfcrelay/core/logger"
	tghelpers "github.com/m3rciful/nfcrelay/core/telegram/helpers"
	tgsender "github.com/m3rciful/nfcrelay/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options

	Middlewares []Middleware
	// Routes receives the constructed bot so handlers can send through it.
	Routes func(bot *tele.Bot) ([]Route, error)

	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

const stopTimeout = 10 * time.Second

// newBot is replaced in tests with an offline constructor.
var newBot = tele.NewBot

// inflight counts running handlers so shutdown can wait for them. Once
// draining starts new updates are dropped.
type inflight struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

func (f *inflight) enter() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draining {
		return false
	}
	f.wg.Add(1)
	return true
}

func (f *inflight) middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !f.enter() {
			return nil
		}
		defer f.wg.Done()
		return next(c)
	}
}

// drain stops admitting handlers and waits for running ones or ctx.
func (f *inflight) drain(ctx context.Context) error {
	f.mu.Lock()
	f.draining = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown waits for in-flight handlers, runs flush and then onStop. It runs
// on every exit path of RunTelegram, so infrastructure opened before the bot
// is released even when startup fails.
func shutdown(ctx context.Context, handlers *inflight, flush func(), onStop func(context.Context) error) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	if err := handlers.drain(stopCtx); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "shutdown.drain",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	if flush != nil {
		flush()
	}
	if onStop == nil {
		return nil
	}
	return onStop(stopCtx)
}

// RunTelegram composes and runs a Telegram bot until ctx is done.
// OnStop runs exactly once after the bot stops or fails to start, and only
// after handlers already running have returned.
func RunTelegram(ctx context.Context, opts RunOptions) (err error) {
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	handlers := &inflight{}
	var flush func()
	defer func() {
		if stopErr := shutdown(ctx, handlers, flush, opts.OnStop); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}()

	poller := BuildPoller(cfg)
	buildStart := time.Now()
	bot, err := newBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(longPollTimeout(cfg.Telegram)),
		OnError: onBotError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	dispatcher := tgsender.NewDispatcher(opts.DispatcherOptions)
	tghelpers.SetDispatcher(dispatcher)
	flush = func() {
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", buildTook),
		)
	case *tele.LongPoller:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("timeout", p.Timeout),
			slog.Duration("duration", buildTook),
		)
		// A leftover webhook makes getUpdates fail with 409.
		if err := bot.RemoveWebhook(false); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}

	bot.Use(handlers.middleware)
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	if opts.Routes != nil {
		routes, err := opts.Routes(bot)
		if err != nil {
			return fmt.Errorf("telegram: routes: %w", err)
		}
		for _, route := range routes {
			if route.Endpoint == nil || route.Handler == nil {
				continue
			}
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	SetupCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// onBotError logs errors returned by handlers and by the poller.
func onBotError(err error, c tele.Context) {
	ctx := logger.Background()
	if c != nil {
		if stored, ok := tghelpers.ContextFrom(c); ok {
			ctx = stored
		}
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error",
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
