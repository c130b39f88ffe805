// Package memory keeps orders and chat history in process memory.
// It is meant for local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/order"
)

// Store implements order.Repository, chatlog.Log and chatlog.Reader.
type Store struct {
	mu     sync.RWMutex
	orders map[string]order.Order
	chats  map[int64][]chatlog.Entry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		orders: make(map[string]order.Order),
		chats:  make(map[int64][]chatlog.Entry),
	}
}

// Put stores o under its id, replacing an existing record.
func (s *Store) Put(_ context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

// Get returns the order with id or order.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

// Orders returns a snapshot of all stored orders.
func (s *Store) Orders() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// Append adds e to the end of the conversation.
func (s *Store) Append(_ context.Context, conversationID int64, e chatlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[conversationID] = append(s.chats[conversationID], e)
	return nil
}

// History returns a copy of the conversation in insertion order.
func (s *Store) History(_ context.Context, conversationID int64) ([]chatlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.chats[conversationID]
	out := make([]chatlog.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Close is a no-op so the store fits the same lifecycle as the other drivers.
func (s *Store) Close() error { return nil }
