package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/nfcrelay/core/logger"
)

const (
	driverName     = "postgres"
	connectTimeout = 5 * time.Second
	retryInterval  = 2 * time.Second
)

// Connect opens the order store connection pool and pings it once.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, driverName, DSN(cfg))
	attrs := []slog.Attr{
		slog.String("driver", driverName),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect",
			append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect",
		append(attrs, slog.String("status", "ok"), slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// WaitForPostgres pings dsn every few seconds until it answers, timeout
// elapses, or ctx is done.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for database: %w", errors.Join(err, ctx.Err()))
		case <-ticker.C:
		}
	}
}
