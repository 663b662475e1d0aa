// Package telemetry installs the OpenTelemetry tracer provider used by the services.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow-backend/internal/logging"
)

// Config selects where spans go
type Config struct {
	ServiceName string
	Endpoint    string  // OTLP gRPC collector address; empty keeps spans in-process
	SampleRatio float64 // Fraction of new traces sampled
}

// Telemetry owns the tracer provider installed as the global one
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
}

// Setup builds a tracer provider and sets it, with the W3C trace context
// propagator, as the process-wide default.
// Without an endpoint spans are still created, so logs keep their trace_id
// and span_id fields, but nothing is exported.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	logger = logging.OrNop(logger)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(newResource(cfg.ServiceName)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	if cfg.Endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("can't initialize tracer exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("exporting traces", zap.String("endpoint", cfg.Endpoint))
	} else {
		logger.Warn("OTEL_EXPORTER_OTLP_ENDPOINT not set, traces are not exported")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return &Telemetry{TracerProvider: tp}, nil
}

// Shutdown flushes pending spans and stops the provider with its exporter
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("can't shutdown tracer provider: %w", err)
	}
	return nil
}

func newResource(serviceName string) *sdkresource.Resource {
	return sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.TelemetrySDKLanguageGo,
	)
}
