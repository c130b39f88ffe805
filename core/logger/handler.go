package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// keyOrder lists the keys written first, in this order. Other keys follow sorted.
var keyOrder = []string{
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"state", "customer_id", "admin_id", "order_id", "cb_key",
	"outcome", "duration_ms", "payload", "driver", "mode", "queue",
	"err", "err_code", "attempts",
}

// outcomes are the only values kept under the outcome key.
var outcomes = []string{"ok", "fail", "cancelled", "rate_limited"}

// fields collects one log line.
type fields map[string]any

func (f fields) setDefault(key string, v any) {
	if s, ok := v.(string); ok && s == "" {
		return
	}
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

// add flattens attr (groups become dotted keys) and normalizes its value.
func (f fields) add(prefix string, attr slog.Attr) {
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	v := attr.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}

	switch v.Kind() {
	case slog.KindString:
		if s := strings.TrimSpace(v.String()); s != "" {
			f[key] = s
		}
	case slog.KindInt64:
		f[key] = v.Int64()
	case slog.KindUint64:
		f[key] = v.Uint64()
	case slog.KindFloat64:
		f[key] = v.Float64()
	case slog.KindBool:
		f[key] = v.Bool()
	case slog.KindDuration:
		f[msKey(key)] = RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		f[key] = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			f[key] = x.Error()
		case fmt.Stringer:
			f[key] = x.String()
		default:
			f[key] = fmt.Sprint(x)
		}
	}
}

// msKey renames duration keys so every duration is logged as integer milliseconds.
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

type handlerConfig struct {
	level  slog.Leveler
	writer *asyncWriter
	format logFormat
	order  []string
}

// structuredHandler writes one flat JSON object or key=value line per record.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if len(cfg.order) == 0 {
		cfg.order = keyOrder
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}

	f := make(fields, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeLayout)
	f["level"] = r.Level.String()
	for _, a := range h.attrs {
		f.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.prefix, a)
		return true
	})
	appendMeta(ctx, f)

	if msg := strings.TrimSpace(r.Message); msg != "" {
		f.setDefault("event", msg)
	}
	f.setDefault("event", "unknown")
	f.setDefault("component", "app")

	if h.cfg.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	h.normalize(f)

	var line []byte
	if h.cfg.format == formatJSON {
		var err error
		if line, err = encodeJSON(f, h.cfg.order); err != nil {
			return err
		}
	} else {
		line = encodeKV(f, h.cfg.order)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) normalize(f fields) {
	if rid := f.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if h.cfg.format == formatJSON {
				f.setDefault("rid_full", rid)
			}
			f["rid"] = compact
		}
	}
	if s := strings.ToLower(f.str("status")); s != "" {
		f["status"] = s
	}
	if o := strings.ToLower(f.str("outcome")); o != "" {
		if slices.Contains(outcomes, o) {
			f["outcome"] = o
		} else {
			delete(f, "outcome")
		}
	}
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.prefix != "" {
		clone.prefix += "."
	}
	clone.prefix += name
	return &clone
}

// orderedKeys returns keys from order present in f, then the rest sorted.
func orderedKeys(f fields, order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(keys))
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func encodeJSON(f fields, order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range orderedKeys(f, order) {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func encodeKV(f fields, order []string) []byte {
	var b strings.Builder
	for i, k := range orderedKeys(f, order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(f[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}
