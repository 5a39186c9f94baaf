// Package telemetry wires a tracer provider for the MCP multiplexer's
// tools/call and bridge RPC spans. Modeled on pgollucci-loom's
// internal/telemetry/telemetry.go (resource + TracerProvider + global
// otel.SetTracerProvider), but exporting via stdouttrace rather than an
// OTLP gRPC collector: this server has no bundled collector to point at,
// so the default exporter must work without one, per SPEC_FULL's DOMAIN
// STACK note that the collector dependency is optional.
package telemetry

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the process-wide tracer, set by Init. Before Init is called it
// is the no-op tracer otel.Tracer returns by default, so components can
// call telemetry.Tracer.Start unconditionally.
var Tracer trace.Tracer = otel.Tracer("easy-mcp-server")

// Init installs a TracerProvider exporting spans to os.Stdout as
// pretty-printed JSON, with AlwaysSample so every
// tools/call and bridge RPC gets a span regardless of sampling
// configuration, there being no production collector in front of this to
// protect from cardinality the way a real backend would. It returns a
// shutdown func that flushes and stops the provider.
func Init(ctx context.Context, serviceName, version string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	Tracer = otel.Tracer(serviceName)

	return func(shutdownCtx context.Context) error {
		c, cancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		defer cancel()
		return provider.Shutdown(c)
	}, nil
}
