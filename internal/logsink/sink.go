// Package logsink stores the per-worker append-only log streams.
//
// Every worker owns one stream, keyed by the worker name. Lines are appended
// whole: a concurrent reader never observes a partially written line, and an
// Append only returns once the line has been handed to the backend.
package logsink

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookdeck/workerctl/internal/redis"
)

const (
	TypeFile   = "file"
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

var (
	ErrLogNotFound     = errors.New("log not found")
	ErrInvalidLogName  = errors.New("invalid log name")
	ErrUnknownSinkType = errors.New("unknown sink type")
)

// Sink is an append-only store of text lines per worker.
type Sink interface {
	// Append writes line, without its trailing newline, to the stream for name.
	Append(ctx context.Context, name, line string) error
	// Lines returns every line of the stream in append order.
	Lines(ctx context.Context, name string) ([]string, error)
	Close() error
}

type Config struct {
	Type           string
	Dir            string
	RedisKeyPrefix string
	Redis          *redis.RedisConfig
}

func New(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Type {
	case TypeFile:
		return NewFileSink(cfg.Dir)
	case TypeMemory:
		return NewMemorySink(), nil
	case TypeRedis:
		if cfg.Redis == nil {
			return nil, errors.New("redis sink requires redis config")
		}
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisSink(client, WithKeyPrefix(cfg.RedisKeyPrefix), WithOwnedClient()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSinkType, cfg.Type)
	}
}
