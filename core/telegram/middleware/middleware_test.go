package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/teletest"
)

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(teletest.Message(1, 10, "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	ok := RecoverMiddleware(func(tele.Context) error { return nil })
	assert.NoError(t, ok(teletest.Message(2, 10, "hi")))
}

func TestRateLimitMiddleware(t *testing.T) {
	var handled, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(teletest.Message(1, 10, "a")))
	require.NoError(t, h(teletest.Message(2, 10, "b")))
	require.NoError(t, h(teletest.Message(3, 11, "c")))
	require.NoError(t, h(teletest.Callback(4, 10, "\fadd|1")))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	var rejected int
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  99,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	sentinel := errors.New("handled")
	h := mw(func(tele.Context) error { return sentinel })

	assert.ErrorIs(t, h(teletest.Message(1, 99, "/stats")), sentinel)
	assert.NoError(t, h(teletest.Message(2, 5, "/stats")))
	assert.Equal(t, 1, rejected)

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { return sentinel })
	assert.NoError(t, closed(teletest.Message(3, 99, "/stats")))
}

func TestMessageMetricsMiddleware(t *testing.T) {
	c := teletest.Message(1, 10, "hi")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		if err := c.Send("plain"); err != nil {
			return err
		}
		return c.Send("with kb", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := teletest.Message(77, 10, "hi")
	h := LoggerMiddleware(func(tele.Context) error { return nil })
	require.NoError(t, h(c))
	assert.Equal(t, "77:10:10", c.Get("rid"))
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "message", UpdateKind(teletest.Message(1, 1, "x").Update()))
	assert.Equal(t, "callback", UpdateKind(teletest.Callback(1, 1, "x").Update()))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}
