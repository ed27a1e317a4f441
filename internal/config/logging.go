package config

import (
	"go.uber.org/zap"
)

// LogConfigurationSummary returns zap fields with a configuration summary,
// masking sensitive data.
//
// When adding configuration fields, add them here too so they show up in the
// startup log. Secrets are reported as "<field>_configured" booleans.
func (c *Config) LogConfigurationSummary() []zap.Field {
	fields := []zap.Field{
		zap.String("config_file_path", func() string {
			if c.configPath != "" {
				return c.configPath
			}
			return "none (using defaults and environment variables)"
		}()),
		zap.String("log_level", c.LogLevel),

		// API
		zap.Int("api_port", c.APIPort),
		zap.Bool("api_key_configured", c.APIKey != ""),
		zap.String("gin_mode", c.GinMode),

		// Lifecycle
		zap.Int("shutdown_timeout_seconds", c.ShutdownTimeoutSeconds),
		zap.Int("status_interval_seconds", c.StatusIntervalSeconds),
		zap.String("worker_name_prefix", c.Worker.NamePrefix),
		zap.Int("worker_retain_stopped", c.Worker.RetainStopped),

		// Sink
		zap.String("sink_type", c.Sink.Type),
	}

	switch c.Sink.Type {
	case "file":
		fields = append(fields, zap.String("sink_dir", c.Sink.Dir))
	case "redis":
		fields = append(fields,
			zap.String("sink_redis_key_prefix", c.Sink.RedisKeyPrefix),
			zap.String("redis_host", c.Redis.Host),
			zap.Int("redis_port", c.Redis.Port),
			zap.Bool("redis_password_configured", c.Redis.Password != ""),
			zap.Int("redis_database", c.Redis.Database),
			zap.Bool("redis_tls_enabled", c.Redis.TLSEnabled),
		)
	}

	if otelConfig := c.OpenTelemetry.ToConfig(); otelConfig != nil {
		fields = append(fields,
			zap.String("otel_service_name", otelConfig.ServiceName),
			zap.String("otel_exporter", c.OpenTelemetry.Exporter),
			zap.String("otel_protocol", c.OpenTelemetry.Protocol),
			zap.Bool("otel_traces", otelConfig.Traces != nil),
			zap.Bool("otel_metrics", otelConfig.Metrics != nil),
			zap.Bool("otel_logs", otelConfig.Logs != nil),
		)
	} else {
		fields = append(fields, zap.Bool("otel_enabled", false))
	}

	return fields
}
