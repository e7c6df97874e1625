// Package telemetry exports the controller's attempt spans.
//
// Tracing is off unless a trace file is configured; spans are then written
// to it as pretty-printed JSON, one batch at a time.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var shutdownFns []func(context.Context) error

// Init installs a tracer provider writing to path. An empty path installs a
// no-op provider.
func Init(serviceName, version, path string) error {
	if path == "" {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("telemetry: trace file: %w", err)
	}
	tp, err := NewProvider(serviceName, version, f)
	if err != nil {
		f.Close()
		return err
	}
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown, func(context.Context) error { return f.Close() })
	return nil
}

// NewProvider samples every span and writes batches to w.
func NewProvider(serviceName, version string, w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
	), nil
}

// Shutdown flushes pending spans and closes the trace file.
func Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range shutdownFns {
		errs = append(errs, fn(ctx))
	}
	shutdownFns = nil
	return errors.Join(errs...)
}
