// Package observability exports Genkit traces over OTLP HTTP.
//
// Sankofa ships spans to a local collector agent (Grafana Alloy, the
// OpenTelemetry Collector, or a vendor agent) rather than straight to a
// backend. The agent buffers, batches, and authenticates; the app only
// needs a plaintext localhost endpoint.
//
// Configuration (~/.sankofa/config.yaml):
//
//	telemetry:
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "sankofa"
//
// An empty endpoint disables export entirely. Every ask flow, model
// call, and retriever call already runs inside a Genkit span, so
// attaching a processor to Genkit's TracerProvider is all the wiring
// this package does.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kofiasare/sankofa/internal/log"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the collector's OTLP HTTP address, host:port without
	// a scheme. Empty disables export.
	Endpoint string
	// Environment tags exported spans (dev, staging, prod).
	Environment string
	// ServiceName is the service name shown in the tracing backend.
	ServiceName string
}

// Setup registers an OTLP exporter with Genkit's TracerProvider and
// returns a shutdown function that flushes pending spans. With no
// endpoint configured it is a no-op. Exporter failures disable tracing
// rather than failing startup.
//
// Call before genkit.Init so the processor is attached by the time the
// first span starts.
func Setup(ctx context.Context, cfg Config, logger log.Logger) func(context.Context) error {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.Endpoint == "" {
		logger.Debug("telemetry endpoint not configured, tracing disabled")
		return func(context.Context) error { return nil }
	}

	// Genkit's TracerProvider reads service identity from the OTEL env
	// vars. Set exactly once during startup, before goroutines spawn.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	// The agent handles authentication and forwarding; localhost needs
	// no TLS.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating otlp exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("otlp tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	// One startup span verifies the export pipeline end to end.
	tracer := tracing.TracerProvider().Tracer("sankofa-init")
	_, span := tracer.Start(ctx, "sankofa.init")
	span.End()

	return tracing.TracerProvider().Shutdown
}
