package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter copies each line to every sink from a single goroutine, so
// callers never block on a slow file or terminal unless the queue is full.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}

	gate   sync.RWMutex
	closed bool

	sinks []*bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(w.flush())
				return
			}
			w.record(w.write(line))
		case ack := <-w.flushes:
			open := w.drain()
			ack <- w.flush()
			if !open {
				return
			}
		}
	}
}

// drain writes lines already queued and reports whether the queue is still open.
func (w *asyncWriter) drain() bool {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return false
			}
			w.record(w.write(line))
		default:
			return true
		}
	}
}

var errWriterClosed = errors.New("logger: writer closed")

// Write queues a copy of p. It blocks only when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return errors.Join(<-ack, w.failure())
	case <-w.done:
		return w.failure()
	}
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.gate.Unlock()
	<-w.done
	return w.failure()
}

func (w *asyncWriter) write(line []byte) error {
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
