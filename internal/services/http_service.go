package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/supervisor"
	"go.uber.org/zap"
)

// HTTPService wraps an HTTP server as a supervised service.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

func NewHTTPService(server *http.Server, shutdownTimeout time.Duration, logger *logging.Logger) supervisor.Service {
	return &HTTPService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

func (s *HTTPService) Name() string {
	return "http-server"
}

// Run serves until ctx is cancelled or the server fails.
func (s *HTTPService) Run(ctx context.Context) error {
	logger := s.logger.Ctx(ctx)
	logger.Info("http server listening", zap.String("addr", s.server.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", zap.Error(err))
			return err
		}
		logger.Info("http server shut down")
		return nil

	case err := <-errChan:
		logger.Error("http server error", zap.Error(err))
		return err
	}
}
