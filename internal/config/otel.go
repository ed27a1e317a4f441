package config

import (
	"github.com/hookdeck/workerctl/internal/otel"
)

type OpenTelemetryConfig struct {
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Exporter    string `yaml:"exporter" env:"OTEL_EXPORTER"`
	Protocol    string `yaml:"protocol" env:"OTEL_PROTOCOL"`
	Traces      bool   `yaml:"traces" env:"OTEL_TRACES_ENABLED"`
	Metrics     bool   `yaml:"metrics" env:"OTEL_METRICS_ENABLED"`
	Logs        bool   `yaml:"logs" env:"OTEL_LOGS_ENABLED"`
}

// GetServiceName falls back to "workerctl" for span names when no service name is set.
func (c *OpenTelemetryConfig) GetServiceName() string {
	if c == nil || c.ServiceName == "" {
		return "workerctl"
	}
	return c.ServiceName
}

// ToConfig returns nil when OpenTelemetry is disabled, which it is unless a
// service name is configured.
func (c *OpenTelemetryConfig) ToConfig() *otel.OpenTelemetryConfig {
	if c == nil || c.ServiceName == "" {
		return nil
	}

	signal := func(enabled bool) *otel.OpenTelemetryTypeConfig {
		if !enabled {
			return nil
		}
		return &otel.OpenTelemetryTypeConfig{
			Exporter: c.Exporter,
			Protocol: c.Protocol,
		}
	}

	return &otel.OpenTelemetryConfig{
		ServiceName: c.ServiceName,
		Traces:      signal(c.Traces),
		Metrics:     signal(c.Metrics),
		Logs:        signal(c.Logs),
	}
}
