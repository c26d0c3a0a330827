package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

const instrumentation = "github.com/sdsgks2b79-svg/GG-market-sub000/internal/events"

var tracer = otel.Tracer(instrumentation)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures the Kafka publisher.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	Currency     string
	WriteTimeout time.Duration
}

// Kafka publishes ReceiptIssued events keyed by user id, so one user's
// receipts land on one partition in order.
type Kafka struct {
	writer   messageWriter
	topic    string
	currency string
	latency  metric.Float64Histogram
}

// NewKafka returns a publisher writing to opts.Topic.
func NewKafka(opts KafkaOptions) *Kafka {
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	latency, err := otel.Meter(instrumentation).Float64Histogram("shopbot.events.publish.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent writing receipt events to Kafka."),
	)
	if err != nil {
		latency = noop.Float64Histogram{}
	}
	return &Kafka{
		topic:    opts.Topic,
		currency: opts.Currency,
		latency:  latency,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(opts.Brokers...),
			Topic:                  opts.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            3,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			WriteTimeout:           timeout,
		},
	}
}

// Publish writes one event synchronously and injects the trace context into
// the message headers.
func (k *Kafka) Publish(ctx context.Context, order domain.Order) error {
	data, err := json.Marshal(NewReceiptIssued(order, k.currency))
	if err != nil {
		return fmt.Errorf("marshal receipt event: %w", err)
	}
	key := strconv.FormatInt(order.UserID, 10)
	msg := kafka.Message{Key: []byte(key), Value: data, Time: order.CreatedAt}

	ctx, span := tracer.Start(ctx, "send "+k.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(k.topic),
			semconv.MessagingKafkaMessageKey(key),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	start := time.Now()
	err = k.writer.WriteMessages(ctx, msg)
	k.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("topic", k.topic),
		attribute.String("status", logger.Status(err)),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write receipt event: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCEvents, slog.LevelDebug, "events.publish",
		slog.String("status", "ok"),
		slog.String("topic", k.topic),
		slog.String("order", order.Number),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Close flushes pending writes.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// headerCarrier exposes kafka headers to OpenTelemetry propagators.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}
