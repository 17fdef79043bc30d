// Package telemetry wires optional OpenTelemetry tracing for the CLI.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	DefaultServiceName = "unbun"
	DefaultExporterURL = "http://localhost:4318"
	tracerName         = "unbun"
)

// Config holds OpenTelemetry configuration
type Config struct {
	Enabled     bool
	ExporterURL string
	ServiceName string
	Version     string
}

// Init installs a global tracer provider exporting over OTLP/HTTP. When
// tracing is disabled it returns a no-op cleanup. The exporter connects
// lazily, so an unreachable collector never fails Init.
func Init(ctx context.Context, config Config) (func(), error) {
	if !config.Enabled {
		return func() {}, nil
	}
	if config.ExporterURL == "" {
		config.ExporterURL = DefaultExporterURL
	}
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.ExporterURL),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

// Tracer returns the global tracer; a no-op tracer until Init enables one.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}
