package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize bounds pending jobs per shard.
	QueueSize int
	// Shards is the number of workers. Jobs with the same key always land on
	// the same shard, so sends to one chat keep their order.
	Shards       int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	key      int64
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	shards []chan job
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Shards <= 0 {
		opts.Shards = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts:   opts,
		shards: make([]chan job, opts.Shards),
	}

	d.wg.Add(opts.Shards)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}

	return d
}

func (d *Dispatcher) shardFor(key int64) chan job {
	return d.shards[uint64(key)%uint64(len(d.shards))]
}

// Enqueue schedules run on the shard owning key, usually the target chat id.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	j := job{
		ctx:      ctx,
		key:      key,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}

	select {
	case d.shardFor(key) <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			if logger.ShouldSampleDebug() || attempt > 1 {
				logger.Event(ctx, "tg.sender", slog.LevelDebug, "send.success",
					append(jobAttrs(j), slog.Int("attempt", attempt), slog.Duration("elapsed", time.Since(start)))...)
			}
			return
		}
		delay, retry := d.backoff(err, attempt)
		if !retry || attempt == attempts {
			break
		}
		logger.Event(ctx, "tg.sender", slog.LevelDebug, "send.retry",
			append(jobAttrs(j), slog.Int("attempt", attempt), slog.Duration("delay", delay))...)
		if waitErr := sleep(deadlineCtx, delay); waitErr != nil {
			err = errors.Join(err, waitErr)
			break
		}
	}

	d.errs.Add(1)
	logger.Event(ctx, "tg.sender", slog.LevelError, "send.fail",
		append(jobAttrs(j),
			slog.String("status", "fail"),
			slog.String("err", sanitizeErrorMessage(err)),
			slog.String("err_code", classifyError(err)),
			slog.Int("attempts", attempts),
			slog.Duration("elapsed", time.Since(start)),
		)...)
}

// backoff reports how long to wait before retrying err. Flood control
// replies carry their own wait; other errors retry only when transient.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jobAttrs describes j; update metadata comes from the job context.
func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", j.action),
		slog.Int64("target_id", j.key),
	}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// classifyError maps err to a short err_code for send.fail lines.
func classifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	if kind := transportKind(err); kind != "" {
		return kind
	}
	switch status := statusCode(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// transportKind names network failures that happened before Telegram answered.
func transportKind(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return "tls"
	}
	return ""
}

// statusCode extracts the Bot API status from err, falling back to a
// trailing "(NNN)" in the message.
func statusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}

	msg := strings.TrimSpace(err.Error())
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndex(msg, "(")
	if open < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : len(msg)-1]))
	if convErr != nil {
		return 0
	}
	return code
}

// sanitizeErrorMessage redacts bot tokens that net/http embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
