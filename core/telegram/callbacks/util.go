package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Context keys under which the router stores the resolved callback.
const (
	KeyCtx     = "cb_key"
	PayloadCtx = "cb_payload"
)

// ParseCallbackData splits callback data into a key and payload. It accepts
// Telebot's "\f<unique>|<payload>" encoding and the plain "<key>_<id>" form
// used by older keyboards, e.g. "add_42" -> ("add", "42").
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimSpace(cb.Data)
	if strings.HasPrefix(raw, "\f") {
		key, payload, _ := strings.Cut(raw[1:], "|")
		return strings.TrimSpace(key), payload
	}
	if key, payload, ok := strings.Cut(raw, "|"); ok {
		return strings.TrimSpace(key), payload
	}
	if i := strings.LastIndexByte(raw, '_'); i > 0 && i < len(raw)-1 {
		if _, err := strconv.ParseInt(raw[i+1:], 10, 64); err == nil {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}

// Store records the resolved key and payload on the update context.
func Store(c tele.Context, key, payload string) {
	c.Set(KeyCtx, key)
	c.Set(PayloadCtx, payload)
}

// CallbackPayload returns the callback payload resolved by the router, or parses it.
func CallbackPayload(c tele.Context) string {
	if v, ok := c.Get(PayloadCtx).(string); ok {
		return v
	}
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

const answeredCtx = "cb_answered"

// Answer responds to the callback query once; later calls are no-ops.
func Answer(c tele.Context, resp *tele.CallbackResponse) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredCtx, true)
	if resp == nil {
		return c.Respond()
	}
	return c.Respond(resp)
}

// Answered reports whether Answer already ran for this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredCtx).(bool)
	return v
}
