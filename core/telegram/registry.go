package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
)

// Registration errors.
var (
	ErrInvalidCommand  = errors.New("telegram: command needs a /name, a handler and a description")
	ErrInvalidCallback = errors.New("telegram: callback needs a key and a handler")
	ErrDuplicate       = errors.New("telegram: already registered")
)

// Command is a slash command. Aliases match whole message texts such as
// reply keyboard labels.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Registry holds bot commands, callbacks and the text fallback.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry that answers unknown callbacks with
// "Unsupported action".
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			return nil
		},
	}
}

// RegisterCommand adds cmd under name, which must start with "/". Rejected
// registrations are logged and returned as errors.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		return r.rejected("command", name, ErrInvalidCommand)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return r.rejected("command", name, ErrDuplicate)
	}
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			r.aliases[alias] = name
		}
	}
	return nil
}

func (r *Registry) rejected(kind, name string, err error) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register."+kind+".skip",
		slog.String("name", name),
		slog.String("reason", err.Error()),
	)
	return fmt.Errorf("%w: %s %q", err, kind, name)
}

// ListCommands returns commands sorted by name. visibleOnly drops hidden and
// admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand resolves text to a command. A whole-text alias wins;
// otherwise the first word, without any "@botname" suffix, is matched
// against command names and aliases.
func (r *Registry) LookupCommand(text string) (string, Command, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", Command{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.aliases[text]; ok {
		return name, r.commands[name], true
	}

	word, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	bare := strings.TrimPrefix(word, "/")
	for _, candidate := range []string{"/" + bare, bare} {
		if cmd, ok := r.commands[candidate]; ok {
			return candidate, cmd, true
		}
		if name, ok := r.aliases[candidate]; ok {
			return name, r.commands[name], true
		}
	}
	return "", Command{}, false
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Command, len(r.commands))
	for name, cmd := range r.commands {
		out[name] = cmd
	}
	return out
}

// RegisterCallback maps a callback unique key to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return r.rejected("callback", key, ErrInvalidCallback)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return r.rejected("callback", key, ErrDuplicate)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetCallbackNotFound replaces the handler for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that matches no command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// publishCommands sets the command menu shown by Telegram clients.
func publishCommands(bot *tele.Bot, reg *Registry) {
	commands := reg.ListCommands(true)
	if err := bot.SetCommands(commands); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.set",
		slog.Int("count", len(commands)),
	)
}
