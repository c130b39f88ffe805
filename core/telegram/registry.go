package telegram

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/nfcrelay/core/logger"
	"github.com/m3rciful/nfcrelay/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands and callback handlers keyed by callback prefix.
type Registry struct {
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry. Unknown callbacks are answered silently.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond()
		},
	}
}

// RegisterCommand adds a new command. Invalid or duplicate entries are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if err := cmd.Validate(name); err != nil {
		wireWarn("register.command.skip", slog.String("name", name), slog.String("reason", err.Error()))
		return
	}
	if _, exists := r.commands[name]; exists {
		wireWarn("register.command.duplicate", slog.String("name", name))
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns commands sorted by name. With visibleOnly set, only
// commands meant for the public menu are returned.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && !cmd.Listed() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves "/end" or "/end@relaybot", including aliases, to
// the registered name.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name := CanonicalCommand(text)
	if name == "" {
		return "", commands.Command{}, false
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		if cmd.HasAlias(name) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// CanonicalCommand strips a "@botname" suffix from a bare command. Text that
// is not a single command token is returned as "".
func CanonicalCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || strings.ContainsAny(text, " \n\t") {
		return ""
	}
	name, _, _ := strings.Cut(text, "@")
	return name
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback maps a callback key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		wireWarn("register.callback.skip", slog.String("key", key), slog.Bool("handler_nil", handler == nil))
		return fmt.Errorf("invalid callback registration %q", key)
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		wireWarn("register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback safely returns handler by key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CallbackNotFound returns the handler for callbacks with no registered key.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that is not a registered command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// SetupCommands publishes the listed commands to the Telegram command menu.
// A failure is logged; the bot keeps working without a menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.LogEvent(logger.Background(), logger.TWire, slog.LevelError, "register.commands",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.LogEvent(logger.Background(), logger.TWire, slog.LevelInfo, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.LogEvent(logger.Background(), logger.TWire, slog.LevelWarn, event, attrs...)
}
