package services

import (
	"context"
	"time"

	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/supervisor"
	"github.com/hookdeck/workerctl/internal/worker"
	"go.uber.org/zap"
)

// RegistryService holds the worker registry open for the life of the
// process and drains it on shutdown.
type RegistryService struct {
	registry        *worker.Registry
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

func NewRegistryService(registry *worker.Registry, shutdownTimeout time.Duration, logger *logging.Logger) supervisor.Service {
	return &RegistryService{
		registry:        registry,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

func (s *RegistryService) Name() string {
	return "registry"
}

func (s *RegistryService) Run(ctx context.Context) error {
	<-ctx.Done()

	logger := s.logger.Ctx(ctx)
	logger.Info("stopping all workers", zap.Int("workers", s.registry.Len()))

	shutdownCtx := context.WithoutCancel(ctx)
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.shutdownTimeout)
		defer cancel()
	}

	if err := s.registry.Shutdown(shutdownCtx); err != nil {
		logger.Error("workers did not stop in time", zap.Error(err))
		return err
	}
	return nil
}
