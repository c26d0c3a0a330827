// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent records one outbound call made through the context.
type Sent struct {
	What any
	Opts []any
	Edit bool
}

// Text returns the message text when What is a string.
func (s Sent) Text() string {
	str, _ := s.What.(string)
	return str
}

// Markup returns the reply markup passed with the call, if any.
func (s Sent) Markup() *tele.ReplyMarkup {
	for _, o := range s.Opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		}
	}
	return nil
}

// Context implements the parts of tele.Context used by handlers and
// middleware. Calling any other method panics.
type Context struct {
	tele.Context

	Upd tele.Update

	mu        sync.Mutex
	store     map[string]any
	sent      []Sent
	responses []*tele.CallbackResponse
	SendErr   error
}

// New wraps an update.
func New(upd tele.Update) *Context {
	return &Context{Upd: upd, store: make(map[string]any)}
}

// Message builds a context for a text message from userID.
func Message(updateID int, userID int64, text string) *Context {
	return New(tele.Update{
		ID: updateID,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	})
}

// Callback builds a context for an inline button press carrying raw data.
func Callback(updateID int, userID int64, data string) *Context {
	return New(tele.Update{
		ID: updateID,
		Callback: &tele.Callback{
			ID:     "cb",
			Sender: &tele.User{ID: userID},
			Data:   data,
			Message: &tele.Message{
				Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			},
		},
	})
}

func (c *Context) Update() tele.Update { return c.Upd }

func (c *Context) Message() *tele.Message {
	switch {
	case c.Upd.Message != nil:
		return c.Upd.Message
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Message
	}
	return nil
}

func (c *Context) Callback() *tele.Callback { return c.Upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Sender
	case c.Upd.Message != nil:
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if c.Upd.Message != nil {
		return c.Upd.Message.Text
	}
	return ""
}

// Args mimics telebot: words after a command, or the callback payload.
func (c *Context) Args() []string {
	if c.Upd.Message != nil {
		fields := strings.Fields(c.Upd.Message.Text)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
			return fields[1:]
		}
		return nil
	}
	if c.Upd.Callback != nil && c.Upd.Callback.Data != "" {
		return strings.Split(c.Upd.Callback.Data, "|")
	}
	return nil
}

func (c *Context) Send(what any, opts ...any) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Reply(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) EditOrSend(what any, opts ...any) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{What: what, Opts: opts, Edit: c.Upd.Callback != nil})
	return nil
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}

// Sent returns a copy of every outbound call so far.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Responses returns callback answers recorded so far.
func (c *Context) Responses() []*tele.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tele.CallbackResponse(nil), c.responses...)
}
