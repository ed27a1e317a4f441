package logsink

import (
	"context"

	"github.com/hookdeck/workerctl/internal/redis"
)

const defaultKeyPrefix = "workerctl:log:"

// redisSink stores each stream as a Redis list.
type redisSink struct {
	client    redis.Cmdable
	keyPrefix string
	owned     bool
}

var _ Sink = (*redisSink)(nil)

type RedisOption func(*redisSink)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *redisSink) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithOwnedClient makes Close also close the Redis client.
func WithOwnedClient() RedisOption {
	return func(s *redisSink) {
		s.owned = true
	}
}

func NewRedisSink(client redis.Cmdable, opts ...RedisOption) Sink {
	s := &redisSink{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *redisSink) key(name string) string {
	return s.keyPrefix + name
}

func (s *redisSink) Append(ctx context.Context, name, line string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.client.RPush(ctx, s.key(name), line).Err()
}

func (s *redisSink) Lines(ctx context.Context, name string) ([]string, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	n, err := s.client.Exists(ctx, s.key(name)).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrLogNotFound
	}
	return s.client.LRange(ctx, s.key(name), 0, -1).Result()
}

func (s *redisSink) Close() error {
	if !s.owned {
		return nil
	}
	if closer, ok := s.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
