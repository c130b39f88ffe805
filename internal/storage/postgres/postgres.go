// Package postgres stores orders and chat history in SQL tables created by
// the migrations directory.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/order"
)

const (
	putOrderSQL = `INSERT INTO orders (order_id, name, phone, address, status, date)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (order_id) DO UPDATE SET
	name = excluded.name,
	phone = excluded.phone,
	address = excluded.address,
	status = excluded.status,
	date = excluded.date`

	getOrderSQL = `SELECT order_id, name, phone, address, status, date FROM orders WHERE order_id = ?`

	appendChatSQL = `INSERT INTO chat_messages (id, conversation_id, message, sender, sent_at_ms)
VALUES (?, ?, ?, ?, ?)`

	historySQL = `SELECT id, message, sender, sent_at_ms FROM chat_messages
WHERE conversation_id = ? ORDER BY seq`
)

type chatRow struct {
	ID       string `db:"id"`
	Message  string `db:"message"`
	Sender   string `db:"sender"`
	SentAtMS int64  `db:"sent_at_ms"`
}

// Store implements order.Repository, chatlog.Log and chatlog.Reader on sqlx.
// Queries are written with '?' placeholders and rebound for the driver.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Put upserts o keyed by its id.
func (s *Store) Put(ctx context.Context, o order.Order) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(putOrderSQL),
		o.ID, o.Name, o.Phone, o.Address, o.Status, o.Date)
	if err != nil {
		logger.Store.Error("order put failed",
			slog.String("event", "order.put"),
			slog.String("driver", "postgres"),
			slog.String("order_id", o.ID),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("put order %s: %w", o.ID, err)
	}
	return nil
}

// Get loads the order with id or returns order.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, s.db.Rebind(getOrderSQL), id)
	switch {
	case err == nil:
		return o, nil
	case errors.Is(err, sql.ErrNoRows):
		return order.Order{}, order.ErrNotFound
	default:
		return order.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
}

// Append inserts e at the end of the conversation.
func (s *Store) Append(ctx context.Context, conversationID int64, e chatlog.Entry) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(appendChatSQL),
		e.ID, conversationID, e.Message, string(e.Sender), e.Timestamp.UnixMilli())
	if err != nil {
		logger.Store.Error("chat append failed",
			slog.String("event", "chat.append"),
			slog.String("driver", "postgres"),
			slog.Int64("customer_id", conversationID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("append chat %d: %w", conversationID, err)
	}
	return nil
}

// History returns the conversation in insertion order.
func (s *Store) History(ctx context.Context, conversationID int64) ([]chatlog.Entry, error) {
	var rows []chatRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(historySQL), conversationID); err != nil {
		return nil, fmt.Errorf("chat history %d: %w", conversationID, err)
	}
	out := make([]chatlog.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, chatlog.Entry{
			ID:        r.ID,
			Message:   r.Message,
			Sender:    chatlog.Sender(r.Sender),
			Timestamp: time.UnixMilli(r.SentAtMS),
		})
	}
	return out, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
