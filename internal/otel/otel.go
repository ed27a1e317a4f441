package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"

	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

var ErrUnsupportedExporter = errors.New("unsupported exporter")

type OpenTelemetryTypeConfig struct {
	Exporter string
	Protocol string
}

// OpenTelemetryConfig selects an exporter per signal. A nil signal is not exported.
type OpenTelemetryConfig struct {
	ServiceName string
	Traces      *OpenTelemetryTypeConfig
	Metrics     *OpenTelemetryTypeConfig
	Logs        *OpenTelemetryTypeConfig
}

// SetupOTelSDK installs the global tracer, meter and logger providers.
// The returned shutdown flushes and stops every provider that was started.
func SetupOTelSDK(ctx context.Context, cfg *OpenTelemetryConfig) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	if cfg == nil {
		return shutdown, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Traces != nil {
		tracerProvider, err := newTraceProvider(ctx, cfg.Traces, res)
		if err != nil {
			handleErr(fmt.Errorf("traces: %w", err))
			return nil, err
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	}

	if cfg.Metrics != nil {
		meterProvider, err := newMeterProvider(ctx, cfg.Metrics, res)
		if err != nil {
			handleErr(fmt.Errorf("metrics: %w", err))
			return nil, err
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	if cfg.Logs != nil {
		loggerProvider, err := newLoggerProvider(ctx, cfg.Logs, res)
		if err != nil {
			handleErr(fmt.Errorf("logs: %w", err))
			return nil, err
		}
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		global.SetLoggerProvider(loggerProvider)
	}

	return shutdown, nil
}
