package config_test

import (
	"testing"

	"github.com/hookdeck/workerctl/internal/config"
	"github.com/stretchr/testify/assert"
)

func validConfig() config.Config {
	return config.Config{
		LogLevel:               "info",
		APIPort:                3333,
		ShutdownTimeoutSeconds: 10,
		StatusIntervalSeconds:  1,
		Sink:                   config.SinkConfig{Type: "file", Dir: "logs"},
		Redis:                  &config.RedisConfig{Host: "127.0.0.1", Port: 6379},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(c *config.Config) {},
		},
		{
			name:    "unknown log level",
			mutate:  func(c *config.Config) { c.LogLevel = "chatty" },
			wantErr: config.ErrInvalidLogLevel,
		},
		{
			name:    "port out of range",
			mutate:  func(c *config.Config) { c.APIPort = 70000 },
			wantErr: config.ErrInvalidAPIPort,
		},
		{
			name:    "negative shutdown timeout",
			mutate:  func(c *config.Config) { c.ShutdownTimeoutSeconds = -1 },
			wantErr: config.ErrInvalidShutdownTimeout,
		},
		{
			name:    "zero status interval",
			mutate:  func(c *config.Config) { c.StatusIntervalSeconds = 0 },
			wantErr: config.ErrInvalidStatusInterval,
		},
		{
			name:    "name prefix with path separator",
			mutate:  func(c *config.Config) { c.Worker.NamePrefix = "jobs/Thread" },
			wantErr: config.ErrInvalidNamePrefix,
		},
		{
			name:    "name prefix with backslash",
			mutate:  func(c *config.Config) { c.Worker.NamePrefix = `a\b` },
			wantErr: config.ErrInvalidNamePrefix,
		},
		{
			name:    "name prefix with parent reference",
			mutate:  func(c *config.Config) { c.Worker.NamePrefix = ".." },
			wantErr: config.ErrInvalidNamePrefix,
		},
		{
			name:   "custom name prefix",
			mutate: func(c *config.Config) { c.Worker.NamePrefix = "Job" },
		},
		{
			name:    "unknown sink",
			mutate:  func(c *config.Config) { c.Sink.Type = "s3" },
			wantErr: config.ErrInvalidSinkType,
		},
		{
			name:    "file sink without dir",
			mutate:  func(c *config.Config) { c.Sink.Dir = "" },
			wantErr: config.ErrMissingSinkDir,
		},
		{
			name: "redis sink without host",
			mutate: func(c *config.Config) {
				c.Sink.Type = "redis"
				c.Redis.Host = ""
			},
			wantErr: config.ErrMissingRedis,
		},
		{
			name:   "memory sink needs nothing else",
			mutate: func(c *config.Config) { c.Sink = config.SinkConfig{Type: "memory"} },
		},
		{
			name:   "otel exporter ignored while disabled",
			mutate: func(c *config.Config) { c.OpenTelemetry.Exporter = "zipkin" },
		},
		{
			name: "unknown otel exporter",
			mutate: func(c *config.Config) {
				c.OpenTelemetry = config.OpenTelemetryConfig{ServiceName: "workerctl", Exporter: "zipkin"}
			},
			wantErr: config.ErrInvalidOTelExporter,
		},
		{
			name: "unknown otlp protocol",
			mutate: func(c *config.Config) {
				c.OpenTelemetry = config.OpenTelemetryConfig{ServiceName: "workerctl", Exporter: "otlp", Protocol: "udp"}
			},
			wantErr: config.ErrInvalidOTelProtocol,
		},
		{
			name: "stdout exporter needs no protocol",
			mutate: func(c *config.Config) {
				c.OpenTelemetry = config.OpenTelemetryConfig{ServiceName: "workerctl", Exporter: "stdout"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
