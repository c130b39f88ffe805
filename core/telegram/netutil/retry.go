// Package netutil classifies transport failures seen while talking to the Telegram API.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// ShouldRetry reports whether err is a transient network failure.
// API-level errors (bad request, blocked by user) are never retried.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return true
	}
	return false
}
