package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	r "github.com/redis/go-redis/v9"
)

// Reexport go-redis's Nil constant for DX purposes.
const (
	Nil = r.Nil
)

type (
	Cmdable = r.Cmdable
)

type Client interface {
	Cmdable
	Close() error
}

// New connects to a single Redis node, verifies connectivity and instruments
// the client with OpenTelemetry tracing.
func New(ctx context.Context, config *RedisConfig) (Client, error) {
	options := &r.Options{
		Addr:     config.Addr(),
		Password: config.Password,
		DB:       config.Database,
	}

	if config.TLSEnabled {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := r.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if err := redisotel.InstrumentTracing(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis tracing instrumentation failed: %w", err)
	}

	return client, nil
}
