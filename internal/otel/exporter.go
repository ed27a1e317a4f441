package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// OTLP endpoints and TLS settings come from the standard OTEL_EXPORTER_OTLP_* variables.

func newTraceProvider(ctx context.Context, c *OpenTelemetryTypeConfig, res *resource.Resource) (*trace.TracerProvider, error) {
	var err error
	var traceExporter trace.SpanExporter
	switch {
	case c.Exporter == ExporterStdout:
		traceExporter, err = stdouttrace.New()
	case c.Exporter == ExporterOTLP && c.Protocol == ProtocolGRPC:
		traceExporter, err = otlptracegrpc.New(ctx)
	case c.Exporter == ExporterOTLP:
		traceExporter, err = otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExporter, c.Exporter)
	}
	if err != nil {
		return nil, err
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(traceExporter, trace.WithBatchTimeout(time.Second)),
		trace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, c *OpenTelemetryTypeConfig, res *resource.Resource) (*metric.MeterProvider, error) {
	var err error
	var metricExporter metric.Exporter
	switch {
	case c.Exporter == ExporterStdout:
		metricExporter, err = stdoutmetric.New()
	case c.Exporter == ExporterOTLP && c.Protocol == ProtocolGRPC:
		metricExporter, err = otlpmetricgrpc.New(ctx)
	case c.Exporter == ExporterOTLP:
		metricExporter, err = otlpmetrichttp.New(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExporter, c.Exporter)
	}
	if err != nil {
		return nil, err
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second))),
		metric.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, c *OpenTelemetryTypeConfig, res *resource.Resource) (*log.LoggerProvider, error) {
	var err error
	var logExporter log.Exporter
	switch {
	case c.Exporter == ExporterStdout:
		logExporter, err = stdoutlog.New()
	case c.Exporter == ExporterOTLP && c.Protocol == ProtocolGRPC:
		logExporter, err = otlploggrpc.New(ctx)
	case c.Exporter == ExporterOTLP:
		logExporter, err = otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExporter, c.Exporter)
	}
	if err != nil {
		return nil, err
	}

	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
		log.WithResource(res),
	), nil
}
