package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/shop"
)

var (
	_ shop.OrderPublisher = (*Kafka)(nil)
	_ shop.OrderPublisher = Nop{}
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func order(t *testing.T) domain.Order {
	t.Helper()
	o, err := domain.NewOrder("GG-1", domain.User{ID: 42}, &domain.Cart{UserID: 42, Lines: []domain.CartLine{
		{ProductID: 1, Name: "Cola", UnitPrice: 5000, Quantity: 2},
	}}, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return o
}

func TestKafkaPublish(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	w := &recordingWriter{}
	k := NewKafka(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "receipts", Currency: "UZS"})
	k.writer = w

	require.NoError(t, k.Publish(ctx, order(t)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.NotEmpty(t, headerCarrier{msg: &msg}.Get("traceparent"))

	var ev ReceiptIssued
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, TypeReceiptIssued, ev.Type)
	assert.Equal(t, "GG-1", ev.Number)
	assert.Equal(t, int64(10000), ev.Total)
	assert.Equal(t, "UZS", ev.Currency)
	require.Len(t, ev.Lines, 1)
	assert.Equal(t, int64(10000), ev.Lines[0].Subtotal)
}

func TestKafkaPublishError(t *testing.T) {
	boom := errors.New("leader not available")
	k := NewKafka(KafkaOptions{Topic: "receipts"})
	k.writer = &recordingWriter{err: boom}

	err := k.Publish(context.Background(), order(t))
	assert.ErrorIs(t, err, boom)
}

func TestHeaderCarrierOverwrites(t *testing.T) {
	msg := kafka.Message{}
	c := headerCarrier{msg: &msg}
	c.Set("a", "1")
	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), domain.Order{}))
	assert.NoError(t, Nop{}.Close())
}

func TestKafkaPublishRecordsLatency(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	otel.SetMeterProvider(mp)

	k := NewKafka(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "receipts"})
	k.writer = &recordingWriter{}
	require.NoError(t, k.Publish(context.Background(), order(t)))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "shopbot.events.publish.duration" {
				found = true
			}
		}
	}
	assert.True(t, found)
}
