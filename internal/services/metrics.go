package services

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/hookdeck/workerctl/internal/services"

// RegisterWorkerMetrics publishes the active and recently stopped worker
// counts as observable gauges read from reporter at collection time.
func RegisterWorkerMetrics(provider metric.MeterProvider, reporter Reporter) (metric.Registration, error) {
	meter := provider.Meter(meterName)

	active, err := meter.Int64ObservableGauge("workerctl.workers.active",
		metric.WithDescription("Number of registered workers that are running"),
		metric.WithUnit("{worker}"))
	if err != nil {
		return nil, err
	}
	retired, err := meter.Int64ObservableGauge("workerctl.workers.retired",
		metric.WithDescription("Number of recently stopped workers kept for status"),
		metric.WithUnit("{worker}"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		report := reporter.Report()
		o.ObserveInt64(active, int64(len(report.Active())))
		o.ObserveInt64(retired, int64(len(report.Stopped)))
		return nil
	}, active, retired)
}
