// Package chatlog defines the append-only history of live chat messages.
package chatlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sender tags who wrote a chat entry.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Entry is one relayed message in a conversation keyed by the customer id.
type Entry struct {
	ID        string
	Message   string
	Sender    Sender
	Timestamp time.Time
}

// NewEntry stamps a message with a fresh key and the given time.
func NewEntry(message string, sender Sender, at time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Message:   message,
		Sender:    sender,
		Timestamp: at,
	}
}

// Log appends entries to a conversation.
type Log interface {
	Append(ctx context.Context, conversationID int64, e Entry) error
}

// Reader returns a conversation in insertion order.
type Reader interface {
	History(ctx context.Context, conversationID int64) ([]Entry, error)
}
