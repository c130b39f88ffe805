// Package bootstrap initializes logging, storage and event publishing for the relay.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/nfcrelay/core/config"
	coredatabase "github.com/m3rciful/nfcrelay/core/database"
	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/events"
	"github.com/m3rciful/nfcrelay/internal/order"
	"github.com/m3rciful/nfcrelay/internal/storage/memory"
	"github.com/m3rciful/nfcrelay/internal/storage/postgres"
	"github.com/m3rciful/nfcrelay/internal/storage/redis"
)

// Options control the bootstrap pipeline. Nil hooks use the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	DialEvents func(url, queue string) (*events.AMQP, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Orders  order.Repository
	ChatLog chatlog.Log
	Events  events.Publisher

	closers []io.Closer
}

// Close releases storage and broker connections in reverse order of opening.
func (r *Result) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// storage is what every driver in internal/storage provides.
type storage interface {
	order.Repository
	chatlog.Log
	io.Closer
}

// Run initializes the logger, opens the configured storage driver and, when
// a broker URL is set, the order event publisher.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	store, err := openStorage(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Orders: store, ChatLog: store, Events: events.Nop{}, closers: []io.Closer{store}}

	if cfg.Events.RabbitURL != "" {
		dial := opts.DialEvents
		if dial == nil {
			dial = events.DialAMQP
		}
		pub, err := dial(cfg.Events.RabbitURL, cfg.Events.RabbitQueue)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: events init failed: %w", err)
		}
		res.Events = pub
		res.closers = append(res.closers, pub)
	}

	logger.LogEvent(ctx, logger.Store, slog.LevelInfo, "storage.ready",
		slog.String("driver", cfg.Storage.Driver),
		slog.Bool("events", cfg.Events.RabbitURL != ""),
	)
	return res, nil
}

func openStorage(ctx context.Context, cfg *coreconfig.Config, opts Options) (storage, error) {
	switch cfg.Storage.Driver {
	case coreconfig.StorageMemory:
		return memory.New(), nil
	case coreconfig.StorageRedis:
		st, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		return st, nil
	default:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		return postgres.New(db), nil
	}
}
