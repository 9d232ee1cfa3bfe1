// Package telemetry wraps OpenTelemetry tracer setup for the CLI. Unlike
// the teacher's version, which exports to OTLP/gRPC for a distributed
// deployment, corpusdex is a single-machine batch tool (§1 non-goal:
// distribution across machines), so only the stdout exporter is wired.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"
)

// Init sets up a stdout-exporting tracer provider for serviceName and
// returns a shutdown function to call before the process exits. If
// DISABLE_TELEMETRY=true is set, tracing is a no-op.
func Init(ctx context.Context, serviceName string) (func(), error) {
	if os.Getenv("DISABLE_TELEMETRY") == "true" {
		klog.Info("telemetry: disabled via DISABLE_TELEMETRY")
		return func() {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		if err := tp.Shutdown(ctx); err != nil {
			klog.Errorf("telemetry: shutdown: %v", err)
		}
	}, nil
}

// Tracer returns the named tracer, for span creation in cmd-*.go files.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
