package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
)

func chatCtx(chatID int64) context.Context {
	return logger.WithUpdateMeta(context.Background(), 1, chatID, chatID)
}

func TestDispatcherPreservesPerChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 64})

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 20; i++ {
		for _, chat := range []int64{11, 12, 13} {
			i, chat := i, chat
			require.NoError(t, d.Enqueue(chatCtx(chat), "send.text", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	for chat, seq := range got {
		require.Len(t, seq, 20, "chat %d", chat)
		for i := range seq {
			assert.Equal(t, i, seq[i], "chat %d out of order", chat)
		}
	}
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	require.NoError(t, d.Enqueue(chatCtx(1), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return dialErr
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(chatCtx(1), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return errors.New("bot123:SECRET_token failed (400)")
	}))
	d.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Enqueue(context.Background(), "send.text", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestSanitizeAndClassify(t *testing.T) {
	assert.Equal(t, "POST bot<redacted>/sendMessage", sanitizeErrorMessage(errors.New("POST bot123456:AAE-x_y/sendMessage")))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: chat not found (400)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: bad gateway (502)")))
	assert.Equal(t, "http_4xx", classifyError(tele.FloodError{RetryAfter: 3}))
	assert.Equal(t, "dns", classifyError(&net.DNSError{Err: "no such host", Name: "api.telegram.org"}))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Empty(t, classifyError(nil))
}
