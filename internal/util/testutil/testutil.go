package testutil

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hookdeck/workerctl/internal/logging"
	internalredis "github.com/hookdeck/workerctl/internal/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// WaitTimeout bounds how long tests wait for a worker goroutine to react.
const WaitTimeout = 2 * time.Second

func CreateTestRedisConfig(t *testing.T) *internalredis.RedisConfig {
	mr := miniredis.RunT(t)

	port, _ := strconv.Atoi(mr.Port())
	return &internalredis.RedisConfig{
		Host:     mr.Host(),
		Port:     port,
		Password: "",
		Database: 0,
	}
}

func CreateTestRedisClient(t *testing.T) internalredis.Client {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func CreateTestLogger(t *testing.T) *logging.Logger {
	return logging.NewFromZap(zaptest.NewLogger(t), zap.InfoLevel)
}
