package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/logsink"
	"github.com/hookdeck/workerctl/internal/otel"
)

var (
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrInvalidAPIPort         = errors.New("api_port must be between 1 and 65535")
	ErrInvalidSinkType        = errors.New("sink type must be one of: file, memory, redis")
	ErrMissingSinkDir         = errors.New("sink dir is required for the file sink")
	ErrMissingRedis           = errors.New("redis host is required for the redis sink")
	ErrInvalidShutdownTimeout = errors.New("shutdown_timeout_seconds must not be negative")
	ErrInvalidStatusInterval  = errors.New("status_interval_seconds must be positive")
	ErrInvalidNamePrefix      = errors.New("worker name_prefix must not contain path separators or \"..\"")
	ErrInvalidOTelExporter    = errors.New("otel exporter must be one of: otlp, stdout")
	ErrInvalidOTelProtocol    = errors.New("otel protocol must be one of: grpc, http/protobuf")
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}

	if c.APIPort < 1 || c.APIPort > 65535 {
		return ErrInvalidAPIPort
	}

	if c.ShutdownTimeoutSeconds < 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.StatusIntervalSeconds <= 0 {
		return ErrInvalidStatusInterval
	}

	// Worker names double as log names in every sink.
	if strings.ContainsAny(c.Worker.NamePrefix, `/\`) || strings.Contains(c.Worker.NamePrefix, "..") {
		return ErrInvalidNamePrefix
	}

	if err := c.validateSink(); err != nil {
		return err
	}

	return c.validateOpenTelemetry()
}

func (c *Config) validateSink() error {
	switch c.Sink.Type {
	case logsink.TypeFile:
		if c.Sink.Dir == "" {
			return ErrMissingSinkDir
		}
	case logsink.TypeMemory:
	case logsink.TypeRedis:
		if c.Redis == nil || c.Redis.Host == "" {
			return ErrMissingRedis
		}
	default:
		return ErrInvalidSinkType
	}
	return nil
}

func (c *Config) validateOpenTelemetry() error {
	if c.OpenTelemetry.ServiceName == "" {
		return nil
	}
	switch c.OpenTelemetry.Exporter {
	case otel.ExporterOTLP:
		if c.OpenTelemetry.Protocol != otel.ProtocolGRPC && c.OpenTelemetry.Protocol != otel.ProtocolHTTP {
			return ErrInvalidOTelProtocol
		}
	case otel.ExporterStdout:
	default:
		return ErrInvalidOTelExporter
	}
	return nil
}
