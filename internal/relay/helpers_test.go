package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/nfcrelay/internal/chatlog"
	"github.com/m3rciful/nfcrelay/internal/order"
	"github.com/m3rciful/nfcrelay/internal/session"
	"github.com/m3rciful/nfcrelay/internal/storage/memory"
)

const (
	adminID    int64 = 1000
	customerID int64 = 42
)

type sent struct {
	To  int64
	Msg Message
}

type recorder struct {
	mu       sync.Mutex
	sent     []sent
	answered []string
	failSend bool
}

func (r *recorder) Send(_ context.Context, to int64, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSend {
		return errors.New("transport down")
	}
	r.sent = append(r.sent, sent{To: to, Msg: msg})
	return nil
}

func (r *recorder) AnswerCallback(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answered = append(r.answered, id)
	return nil
}

func (r *recorder) to(id int64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, s := range r.sent {
		if s.To == id {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (r *recorder) texts(id int64) []string {
	var out []string
	for _, m := range r.to(id) {
		out = append(out, m.Text)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.answered = nil
}

type failingOrders struct {
	putErr error
	getErr error
}

func (f failingOrders) Put(context.Context, order.Order) error { return f.putErr }

func (f failingOrders) Get(context.Context, string) (order.Order, error) {
	return order.Order{}, f.getErr
}

type failingLog struct{}

func (failingLog) Append(context.Context, int64, chatlog.Entry) error {
	return errors.New("log down")
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []order.Order
	err    error
}

func (p *recordingPublisher) OrderPlaced(_ context.Context, o order.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, o)
	return p.err
}

type harness struct {
	d        *Dispatcher
	out      *recorder
	store    *memory.Store
	sessions *session.Store
	relays   *session.RelayMap
	events   *recordingPublisher
}

var fixedNow = time.Date(2024, 5, 17, 14, 30, 5, 0, time.Local)

func newHarness(t *testing.T, admin int64, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		out:      &recorder{},
		store:    memory.New(),
		sessions: session.NewStore(),
		relays:   session.NewRelayMap(),
		events:   &recordingPublisher{},
	}
	opts := Options{
		AdminID:   admin,
		Sessions:  h.sessions,
		Relays:    h.relays,
		Orders:    h.store,
		ChatLog:   h.store,
		Messenger: h.out,
		Events:    h.events,
		Now:       func() time.Time { return fixedNow },
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	d, err := New(opts)
	require.NoError(t, err)
	h.d = d
	return h
}

func (h *harness) say(t *testing.T, from int64, text string) {
	t.Helper()
	require.NoError(t, h.d.HandleMessage(context.Background(), Event{SenderID: from, SenderName: "Bob", Text: text}))
}

func (h *harness) press(t *testing.T, actor int64, data string) {
	t.Helper()
	require.NoError(t, h.d.HandleCallback(context.Background(), CallbackEvent{ID: "cb-1", ActorID: actor, Data: data}))
}

func (h *harness) state(id int64) session.State {
	return h.sessions.Get(id).State
}
