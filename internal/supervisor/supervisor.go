package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoServices        = errors.New("no services registered")
	ErrAllServicesExited = errors.New("all services have exited unexpectedly")
	ErrShutdownTimeout   = errors.New("shutdown timeout exceeded")
)

// Logger is a minimal logging interface for structured logging with zap.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Supervisor runs a fixed set of services, tracks their health and
// coordinates graceful shutdown.
type Supervisor struct {
	services        []Service
	names           map[string]struct{}
	health          *HealthTracker
	logger          Logger
	shutdownTimeout time.Duration // 0 means no timeout
}

type Option func(*Supervisor)

// WithShutdownTimeout bounds how long Run waits for services after ctx is cancelled.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Supervisor) {
		s.shutdownTimeout = timeout
	}
}

func New(logger Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		names:  make(map[string]struct{}),
		health: NewHealthTracker(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a service. Services start in registration order.
// Panics if a service with the same name is already registered.
func (s *Supervisor) Register(svc Service) {
	if _, exists := s.names[svc.Name()]; exists {
		panic(fmt.Sprintf("service %s already registered", svc.Name()))
	}
	s.names[svc.Name()] = struct{}{}
	s.services = append(s.services, svc)
	s.logger.Debug("service registered", zap.String("service", svc.Name()))
}

func (s *Supervisor) GetHealthTracker() *HealthTracker {
	return s.health
}

// Run starts every registered service and blocks until ctx is cancelled or
// all services have exited on their own.
//
// A failing service is marked failed but does not bring the others down, so
// the health endpoint can keep reporting it.
//
// Returns ctx.Err() after a graceful shutdown, ErrShutdownTimeout when
// services outlive the shutdown timeout, and ErrAllServicesExited when every
// service returned before ctx was cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.services) == 0 {
		s.logger.Warn("no services registered")
		return ErrNoServices
	}

	s.logger.Info("starting services", zap.Int("count", len(s.services)))

	var wg sync.WaitGroup
	for _, svc := range s.services {
		wg.Add(1)
		s.health.MarkHealthy(svc.Name())
		go func(svc Service) {
			defer wg.Done()
			name := svc.Name()

			s.logger.Info("service starting", zap.String("service", name))
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("service failed", zap.String("service", name), zap.Error(err))
				s.health.MarkFailed(name)
				return
			}
			s.logger.Info("service stopped gracefully", zap.String("service", name))
		}(svc)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down services")
		if s.shutdownTimeout > 0 {
			if err := s.waitWithTimeout(&wg, s.shutdownTimeout); err != nil {
				return err
			}
			return ctx.Err()
		}
		wg.Wait()
		return ctx.Err()
	case <-waitForGroup(&wg):
		s.logger.Warn("all services have exited")
		return ErrAllServicesExited
	}
}

func waitForGroup(wg *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (s *Supervisor) waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) error {
	select {
	case <-waitForGroup(wg):
		s.logger.Info("all services shut down gracefully")
		return nil
	case <-time.After(timeout):
		s.logger.Warn("shutdown timeout exceeded, some services may still be running",
			zap.Duration("timeout", timeout))
		return fmt.Errorf("%w (%v)", ErrShutdownTimeout, timeout)
	}
}
