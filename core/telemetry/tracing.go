// Package telemetry installs the global OpenTelemetry providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/buildinfo"
)

// Resource describes this process to exporters.
func Resource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(buildinfo.Version),
	)
}

// InitTracing installs a global tracer provider. With an empty endpoint spans
// are still created so log lines carry trace ids, but nothing is exported.
func InitTracing(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(Resource(serviceName)),
	}
	if endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// Init installs tracing and metrics and returns a combined shutdown.
func Init(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	stopTraces, err := InitTracing(ctx, serviceName, endpoint)
	if err != nil {
		return nil, err
	}
	stopMetrics, err := InitMetrics(serviceName)
	if err != nil {
		_ = stopTraces(ctx)
		return nil, err
	}
	return func(ctx context.Context) error {
		return errors.Join(stopMetrics(ctx), stopTraces(ctx))
	}, nil
}
