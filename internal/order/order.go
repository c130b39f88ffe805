// Package order defines NFC card orders and the repository they are kept in.
package order

import (
	"context"
	"crypto/rand"
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	// StatusPending is the status of every newly placed order.
	StatusPending = "Pending"
	// DateLayout formats Order.Date in process local time.
	DateLayout = "2006-01-02 15:04:05"
	// IDPrefix starts every order id.
	IDPrefix = "NFC-"

	idLength   = 8
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ErrNotFound is returned by Repository.Get when no order has the id.
var ErrNotFound = errors.New("order: not found")

var idPattern = regexp.MustCompile(`^NFC-[A-Z0-9]{8}$`)

// Order is a placed NFC card order. The id is duplicated into the stored
// record so lookups by field work without the key.
type Order struct {
	ID      string `json:"orderId" db:"order_id"`
	Name    string `json:"name" db:"name"`
	Phone   string `json:"phone" db:"phone"`
	Address string `json:"address" db:"address"`
	Status  string `json:"status" db:"status"`
	Date    string `json:"date" db:"date"`
}

// Repository persists orders by id.
type Repository interface {
	Put(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
}

// New builds a pending order placed at now.
func New(id, name, phone, address string, now time.Time) Order {
	return Order{
		ID:      id,
		Name:    name,
		Phone:   phone,
		Address: address,
		Status:  StatusPending,
		Date:    now.Local().Format(DateLayout),
	}
}

// NewID returns IDPrefix followed by eight random base-36 characters.
// Uniqueness is not checked against stored orders.
func NewID() string {
	id, err := newID(rand.Read)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is gone
		panic("order: read random: " + err.Error())
	}
	return id
}

// idCutoff is the largest multiple of len(idAlphabet) that fits in a byte.
// Bytes at or above it are redrawn so every character is equally likely.
const idCutoff = 256 - 256%len(idAlphabet)

func newID(read func([]byte) (int, error)) (string, error) {
	out := make([]byte, 0, idLength)
	var buf [idLength]byte
	for len(out) < idLength {
		if _, err := read(buf[:]); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= idCutoff {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == idLength {
				break
			}
		}
	}
	return IDPrefix + string(out), nil
}

// NormalizeID trims whitespace and upper-cases a user supplied id.
func NormalizeID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
