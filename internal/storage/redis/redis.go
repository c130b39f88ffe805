// Package redis stores orders as JSON values under orders:<id> and chat
// history as JSON lists under chats:<conversation id>.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/order"
)

// Options configures the client.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "nfc" yields nfc:orders:<id>.
	Prefix string
}

type chatRecord struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
}

// Store implements order.Repository, chatlog.Log and chatlog.Reader.
type Store struct {
	client *goredis.Client
	prefix string
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Store.Error("redis connect failed",
			slog.String("event", "redis.connect"),
			slog.String("driver", "redis"),
			slog.String("addr", opts.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	logger.Store.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("driver", "redis"),
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return New(client, opts.Prefix), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	k := ""
	if s.prefix != "" {
		k = s.prefix + ":"
	}
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (s *Store) orderKey(id string) string {
	return s.key("orders", id)
}

func (s *Store) chatKey(conversationID int64) string {
	return s.key("chats", strconv.FormatInt(conversationID, 10))
}

// Put writes o as JSON, replacing any previous value.
func (s *Store) Put(ctx context.Context, o order.Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	if err := s.client.Set(ctx, s.orderKey(o.ID), body, 0).Err(); err != nil {
		logger.Store.Error("order put failed",
			slog.String("event", "order.put"),
			slog.String("driver", "redis"),
			slog.String("order_id", o.ID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("put order %s: %w", o.ID, err)
	}
	return nil
}

// Get reads the order with id or returns order.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (order.Order, error) {
	body, err := s.client.Get(ctx, s.orderKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	var o order.Order
	if err := json.Unmarshal(body, &o); err != nil {
		return order.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	if o.ID == "" {
		o.ID = id
	}
	return o, nil
}

// Append pushes e to the tail of the conversation list.
func (s *Store) Append(ctx context.Context, conversationID int64, e chatlog.Entry) error {
	body, err := json.Marshal(chatRecord{
		ID:        e.ID,
		Message:   e.Message,
		Sender:    string(e.Sender),
		Timestamp: e.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode chat entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.chatKey(conversationID), body).Err(); err != nil {
		logger.Store.Error("chat append failed",
			slog.String("event", "chat.append"),
			slog.String("driver", "redis"),
			slog.Int64("customer_id", conversationID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("append chat %d: %w", conversationID, err)
	}
	return nil
}

// History returns the whole conversation list in push order.
func (s *Store) History(ctx context.Context, conversationID int64) ([]chatlog.Entry, error) {
	raw, err := s.client.LRange(ctx, s.chatKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat history %d: %w", conversationID, err)
	}
	out := make([]chatlog.Entry, 0, len(raw))
	for _, item := range raw {
		var rec chatRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode chat entry: %w", err)
		}
		out = append(out, chatlog.Entry{
			ID:        rec.ID,
			Message:   rec.Message,
			Sender:    chatlog.Sender(rec.Sender),
			Timestamp: time.UnixMilli(rec.Timestamp),
		})
	}
	return out, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
