package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hookdeck/workerctl/internal/config"
	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/otel"
	"github.com/hookdeck/workerctl/internal/services"
	"github.com/hookdeck/workerctl/internal/version"
	"go.uber.org/zap"
)

type App struct {
	config *config.Config
}

func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	logger, err := logging.NewLogger(logging.WithLogLevel(a.config.LogLevel))
	if err != nil {
		return err
	}
	defer logger.Sync()

	return run(ctx, a.config, logger, nil)
}

// run blocks until a termination signal arrives or the supervisor exits on
// its own. A nil termChan subscribes to SIGINT and SIGTERM.
func run(mainContext context.Context, cfg *config.Config, logger *logging.Logger, termChan chan os.Signal) (exitErr error) {
	logger.Info("starting workerctl", zap.String("version", version.Version()))
	logger.Info("configuration loaded", cfg.LogConfigurationSummary()...)

	ctx, cancel := context.WithCancel(mainContext)
	defer cancel()

	if otelConfig := cfg.OpenTelemetry.ToConfig(); otelConfig != nil {
		otelShutdown, err := otel.SetupOTelSDK(ctx, otelConfig)
		if err != nil {
			logger.Error("OpenTelemetry setup failed", zap.Error(err))
			return err
		}
		// Flush telemetry after services and cleanup have finished.
		defer func() {
			exitErr = errors.Join(exitErr, otelShutdown(context.Background()))
		}()
	}

	logger.Debug("building services")
	builder := services.NewServiceBuilder(ctx, cfg, logger)

	// Cleanup runs on every exit path; Build may fail after acquiring resources.
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer shutdownCancel()
		builder.Cleanup(shutdownCtx)
		logger.Info("workerctl shutdown complete")
	}()

	supervisor, err := builder.Build()
	if err != nil {
		logger.Error("failed to build services", zap.Error(err))
		return err
	}

	if termChan == nil {
		termChan = make(chan os.Signal, 1)
		signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(termChan)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()

	select {
	case <-termChan:
		logger.Info("shutdown signal received")
		cancel()
		err := <-errChan
		// context.Canceled is expected during graceful shutdown
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("error during graceful shutdown", zap.Error(err))
			exitErr = err
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("services exited unexpectedly", zap.Error(err))
			exitErr = err
		}
	}

	return exitErr
}
