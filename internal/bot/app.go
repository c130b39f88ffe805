// Package bot connects the relay dispatcher to the Telegram runtime.
package bot

import (
	"context"
	"fmt"

	"github.com/m3rciful/nfcrelay/core/bootstrap"
	coreconfig "github.com/m3rciful/nfcrelay/core/config"
	tg "github.com/m3rciful/nfcrelay/core/telegram"
	"github.com/m3rciful/nfcrelay/core/telegram/router"
	tgsender "github.com/m3rciful/nfcrelay/core/telegram/sender"
	"github.com/m3rciful/nfcrelay/internal/relay"
	"github.com/m3rciful/nfcrelay/internal/session"

	tele "gopkg.in/telebot.v4"
)

// App owns the in-memory session state for one bot process.
type App struct {
	cfg      *coreconfig.Config
	infra    *bootstrap.Result
	sessions *session.Store
	relays   *session.RelayMap
}

// New builds an App on top of bootstrapped infrastructure.
func New(cfg *coreconfig.Config, infra *bootstrap.Result) *App {
	return &App{
		cfg:      cfg,
		infra:    infra,
		sessions: session.NewStore(),
		relays:   session.NewRelayMap(),
	}
}

// TelegramRunOptions builds the runtime options: default middleware, the
// relay routes and infrastructure shutdown.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.cfg == nil || a.infra == nil {
		return tg.RunOptions{}, fmt.Errorf("bot: app is not initialized")
	}
	reg := tg.NewRegistry()
	return tg.RunOptions{
		Config:            a.cfg,
		Registry:          reg,
		DispatcherOptions: tgsender.Options{MaxRetries: 2},
		Middlewares:       tg.DefaultMiddlewares(a.cfg, nil),
		Routes: func(b *tele.Bot) ([]tg.Route, error) {
			return a.routes(reg, b)
		},
		OnStop: func(context.Context) error {
			return a.infra.Close()
		},
	}, nil
}

func (a *App) dispatcher(m relay.Messenger) (*relay.Dispatcher, error) {
	return relay.New(relay.Options{
		AdminID:   a.cfg.Telegram.AdminID,
		Sessions:  a.sessions,
		Relays:    a.relays,
		Orders:    a.infra.Orders,
		ChatLog:   a.infra.ChatLog,
		Messenger: m,
		Events:    a.infra.Events,
	})
}

func (a *App) routes(reg *tg.Registry, b *tele.Bot) ([]tg.Route, error) {
	d, err := a.dispatcher(NewMessenger(b))
	if err != nil {
		return nil, err
	}
	if err := Register(reg, d, a.cfg.Telegram.AdminID, b); err != nil {
		return nil, err
	}
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID})
	return append(routes, router.TextRoute(reg), router.CallbackRoute(reg)), nil
}
