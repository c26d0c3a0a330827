package netutil

import (
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestShouldRetry(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad request"), false},
		{"dial", dialErr, true},
		{"wrapped url dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dialErr}, true},
		{"flood", tele.FloodError{RetryAfter: 3}, true},
		{"api error", tele.ErrBlockedByUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, RetryAfter(tele.FloodError{RetryAfter: 3}))
	assert.Zero(t, RetryAfter(errors.New("x")))
}
