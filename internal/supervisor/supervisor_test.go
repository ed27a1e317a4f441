package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockService struct {
	name    string
	runFunc func(ctx context.Context) error
	mu      sync.Mutex
	started bool
}

func newMockService(name string, runFunc func(ctx context.Context) error) *mockService {
	return &mockService{
		name:    name,
		runFunc: runFunc,
	}
}

func (m *mockService) Name() string {
	return m.name
}

func (m *mockService) Run(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()

	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	<-ctx.Done()
	return nil
}

func (m *mockService) WasStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func newMockLogger() *mockLogger {
	return &mockLogger{}
}

func (l *mockLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *mockLogger) Info(msg string, fields ...zap.Field)  { l.log("INFO", msg) }
func (l *mockLogger) Error(msg string, fields ...zap.Field) { l.log("ERROR", msg) }
func (l *mockLogger) Debug(msg string, fields ...zap.Field) { l.log("DEBUG", msg) }
func (l *mockLogger) Warn(msg string, fields ...zap.Field)  { l.log("WARN", msg) }

func (l *mockLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, msg := range l.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestHealthTracker_MarkHealthy(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker()
	tracker.MarkHealthy("svc-1")

	status := tracker.GetStatus()
	assert.Equal(t, ServiceStatusHealthy, status.Status)
	assert.Len(t, status.Services, 1)
	assert.Equal(t, ServiceStatusHealthy, status.Services["svc-1"].Status)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthTracker_MarkFailed(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker()
	tracker.MarkHealthy("svc-1")
	tracker.MarkFailed("svc-2")

	assert.False(t, tracker.IsHealthy())
	status := tracker.GetStatus()
	assert.Equal(t, ServiceStatusFailed, status.Status)
	assert.Equal(t, ServiceStatusFailed, status.Services["svc-2"].Status)
}

func TestHealthTracker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	tracker := NewHealthTracker()

	var wg sync.WaitGroup
	n := 100
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("svc-%d", i)
			if i%2 == 0 {
				tracker.MarkHealthy(name)
			} else {
				tracker.MarkFailed(name)
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = tracker.IsHealthy()
			_ = tracker.GetStatus()
		}()
	}
	wg.Wait()

	assert.Len(t, tracker.GetStatus().Services, n)
}

func TestSupervisor_RegisterDuplicate(t *testing.T) {
	logger := newMockLogger()
	s := New(logger)

	s.Register(newMockService("registry", nil))
	assert.True(t, logger.Contains("service registered"))

	assert.Panics(t, func() {
		s.Register(newMockService("registry", nil))
	})
}

func TestSupervisor_Run_NoServices(t *testing.T) {
	logger := newMockLogger()
	s := New(logger)

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoServices)
	assert.True(t, logger.Contains("no services registered"))
}

func TestSupervisor_Run_GracefulShutdown(t *testing.T) {
	logger := newMockLogger()
	s := New(logger)

	svc1 := newMockService("svc-1", nil)
	svc2 := newMockService("svc-2", nil)
	s.Register(svc1)
	s.Register(svc2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return svc1.WasStarted() && svc2.WasStarted()
	}, time.Second, 10*time.Millisecond)
	assert.True(t, s.GetHealthTracker().IsHealthy())

	cancel()
	assert.ErrorIs(t, <-errChan, context.Canceled)
}

func TestSupervisor_Run_FailedServiceKeepsOthersRunning(t *testing.T) {
	logger := newMockLogger()
	s := New(logger)

	s.Register(newMockService("healthy", nil))
	s.Register(newMockService("failing", func(ctx context.Context) error {
		return errors.New("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return !s.GetHealthTracker().IsHealthy()
	}, time.Second, 10*time.Millisecond)

	status := s.GetHealthTracker().GetStatus()
	assert.Equal(t, ServiceStatusFailed, status.Services["failing"].Status)
	assert.Equal(t, ServiceStatusHealthy, status.Services["healthy"].Status)

	select {
	case <-errChan:
		t.Fatal("Run returned before context was cancelled")
	default:
	}

	cancel()
	assert.ErrorIs(t, <-errChan, context.Canceled)
}

func TestSupervisor_Run_AllServicesExit(t *testing.T) {
	logger := newMockLogger()
	s := New(logger)

	s.Register(newMockService("a", func(ctx context.Context) error { return errors.New("a failed") }))
	s.Register(newMockService("b", func(ctx context.Context) error { return nil }))

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAllServicesExited)
	assert.True(t, logger.Contains("all services have exited"))
}

func TestSupervisor_Run_ShutdownTimeout(t *testing.T) {
	logger := newMockLogger()
	s := New(logger, WithShutdownTimeout(100*time.Millisecond))

	release := make(chan struct{})
	defer close(release)
	s.Register(newMockService("slow", func(ctx context.Context) error {
		<-ctx.Done()
		<-release
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	cancel()

	err := <-errChan
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestSupervisor_Run_ShutdownWithinTimeout(t *testing.T) {
	logger := newMockLogger()
	s := New(logger, WithShutdownTimeout(2*time.Second))

	s.Register(newMockService("fast", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errChan, context.Canceled)
	assert.True(t, logger.Contains("all services shut down gracefully"))
}
