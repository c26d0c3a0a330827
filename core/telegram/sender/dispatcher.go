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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tele "gopkg.in/telebot.v4"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

	sendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopbot_tg_send_total",
		Help: "Outbound Telegram calls by action and final status.",
	}, []string{"action", "status"})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopbot_tg_send_queue_depth",
		Help: "Jobs waiting in the outbound dispatcher.",
	})
	sendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopbot_tg_send_duration_seconds",
		Help:    "Time from dequeue to the final outcome of an outbound call, retries included.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 12},
	}, []string{"action"})

	tracer = otel.Tracer("github.com/sdsgks2b79-svg/GG-market-sub000/core/telegram/sender")
)

// Options controls the behaviour of the outbound dispatcher.
// QueueSize is per worker.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Jobs for one chat always land on the same worker, so a chat sees its
// messages in enqueue order.
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
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
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
		shards: make([]chan job, opts.Workers),
	}

	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}

	return d
}

func (d *Dispatcher) shardFor(ctx context.Context) chan job {
	key := logger.ChatIDFrom(ctx)
	if key < 0 {
		key = -key
	}
	return d.shards[key%int64(len(d.shards))]
}

// Enqueue schedules the provided function for asynchronous execution.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	j := job{
		ctx:      ctx,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}

	select {
	case d.shardFor(ctx) <- j:
		queueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops workers and waits for them to finish processing queued jobs.
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
		queueDepth.Dec()
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx, span := tracer.Start(j.ctx, "tg.send "+j.endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("tg.action", j.action)),
	)
	defer span.End()

	deadlineCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", sendLogAttrs(ctx, j)...)

	attempt, err := d.runWithRetry(deadlineCtx, j)
	elapsed := time.Since(start)
	sendDuration.WithLabelValues(j.action).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("tg.attempts", attempt))

	if err != nil {
		d.errs.Add(1)
		sendTotal.WithLabelValues(j.action, "fail").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, classifyError(err))
		logger.Error(ctx, "tg.sender", "send.fail", append(sendLogAttrs(ctx, j),
			slog.String("error", sanitizeErrorMessage(err)),
			slog.String("error_kind", classifyError(err)),
			slog.Int("attempts", attempt),
			slog.Int("elapsed_ms", durationToMS(elapsed)),
		)...)
		return
	}

	sendTotal.WithLabelValues(j.action, "ok").Inc()
	attrs := append(sendLogAttrs(ctx, j), slog.Int("elapsed_ms", durationToMS(elapsed)))
	if attempt > 1 {
		logger.Info(ctx, "tg.sender", "send.retry.success", append(attrs, slog.Int("attempt", attempt))...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

// runWithRetry calls j.run until it succeeds, fails permanently, runs out of
// attempts or ctx expires. It returns the number of attempts made.
func (d *Dispatcher) runWithRetry(ctx context.Context, j job) (int, error) {
	attempts := d.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = j.run()
		if lastErr == nil {
			return attempt, nil
		}
		if !netutil.ShouldRetry(lastErr) || attempt == attempts {
			return attempt, lastErr
		}

		delay := max(d.opts.RetryBackoff*time.Duration(attempt), netutil.RetryAfter(lastErr))
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff", append(sendLogAttrs(j.ctx, j),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return attempts, lastErr
}

func sendLogAttrs(ctx context.Context, j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	return attrs
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}

// errorKinds is checked in order; the first match names the failure.
var errorKinds = []struct {
	kind  string
	match func(error) bool
}{
	{"timeout", isTimeout},
	{"dns", func(err error) bool {
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr)
	}},
	{"dial", func(err error) bool {
		var opErr *net.OpError
		return errors.As(err, &opErr) && opErr.Op == "dial"
	}},
	{"tls", func(err error) bool {
		var alertErr tls.AlertError
		return errors.As(err, &alertErr)
	}},
	{"http_5xx", func(err error) bool { return httpStatusFromError(err) >= 500 }},
	{"http_4xx", func(err error) bool { return httpStatusFromError(err) >= 400 }},
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyError buckets err for the error_kind log attribute.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if k.match(err) {
			return k.kind
		}
	}
	return "unknown"
}

// sanitizeErrorMessage keeps bot tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// httpStatusFromError extracts the Bot API status from typed telebot errors
// or a trailing "(NNN)" in the message.
func httpStatusFromError(err error) int {
	var apiErr *tele.Error
	var floodErr tele.FloodError
	var groupErr tele.GroupError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &floodErr):
		return http.StatusTooManyRequests
	case errors.As(err, &groupErr):
		return http.StatusBadRequest
	}

	msg := err.Error()
	open, end := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if open < 0 || end <= open+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : end]))
	if convErr != nil {
		return 0
	}
	return code
}
