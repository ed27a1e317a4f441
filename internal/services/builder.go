package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hookdeck/workerctl/internal/apirouter"
	"github.com/hookdeck/workerctl/internal/config"
	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/logsink"
	"github.com/hookdeck/workerctl/internal/messagerouter"
	"github.com/hookdeck/workerctl/internal/status"
	"github.com/hookdeck/workerctl/internal/supervisor"
	"github.com/hookdeck/workerctl/internal/worker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// ServiceBuilder constructs the worker registry and the services around it
// from configuration.
type ServiceBuilder struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *logging.Logger
	supervisor *supervisor.Supervisor

	registry     *worker.Registry
	sink         logsink.Sink
	cleanupFuncs []func(context.Context, *logging.LoggerWithCtx)
}

func NewServiceBuilder(ctx context.Context, cfg *config.Config, logger *logging.Logger) *ServiceBuilder {
	return &ServiceBuilder{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		supervisor: supervisor.New(logger,
			supervisor.WithShutdownTimeout(cfg.ShutdownTimeout()),
		),
	}
}

// Build wires the sink, registry, router and reporter, and registers the
// http server, registry and status poller services.
func (b *ServiceBuilder) Build() (*supervisor.Supervisor, error) {
	b.logger.Debug("configuring log sink", zap.String("sink_type", b.cfg.Sink.Type))
	sink, err := logsink.New(b.ctx, b.cfg.ToSinkConfig())
	if err != nil {
		b.logger.Error("log sink initialization failed", zap.Error(err))
		return nil, err
	}
	b.sink = sink
	b.addCleanup(func(ctx context.Context, logger *logging.LoggerWithCtx) {
		if err := sink.Close(); err != nil {
			logger.Error("error closing log sink", zap.Error(err))
		}
	})

	// Workers outlive the process context so the registry service can stop
	// them in order, after which cleanup cancels whatever is left.
	registryCtx, cancelRegistry := context.WithCancel(context.WithoutCancel(b.ctx))
	b.addCleanup(func(ctx context.Context, logger *logging.LoggerWithCtx) {
		cancelRegistry()
		if b.registry == nil {
			return
		}
		if err := b.registry.Wait(ctx); err != nil {
			logger.Error("workers still running after cleanup", zap.Int("workers", b.registry.Len()), zap.Error(err))
		}
	})

	b.logger.Debug("creating worker registry",
		zap.String("name_prefix", b.cfg.Worker.NamePrefix),
		zap.Int("retain_stopped", b.cfg.Worker.RetainStopped))
	b.registry = worker.NewRegistry(registryCtx, sink, b.logger,
		worker.WithNamePrefix(b.cfg.Worker.NamePrefix),
		worker.WithRetainStopped(b.cfg.Worker.RetainStopped),
	)

	router := messagerouter.New(b.registry, b.logger)
	reporter := status.NewReporter(b.registry)

	registration, err := RegisterWorkerMetrics(otel.GetMeterProvider(), reporter)
	if err != nil {
		b.logger.Error("worker metrics registration failed", zap.Error(err))
		return nil, err
	}
	b.addCleanup(func(ctx context.Context, logger *logging.LoggerWithCtx) {
		if err := registration.Unregister(); err != nil {
			logger.Error("error unregistering worker metrics", zap.Error(err))
		}
	})

	b.logger.Debug("creating HTTP server")
	handler := apirouter.NewRouter(
		apirouter.RouterConfig{
			ServiceName: b.cfg.OpenTelemetry.GetServiceName(),
			APIKey:      b.cfg.APIKey,
			GinMode:     b.cfg.GinMode,
		},
		b.logger,
		b.registry,
		sink,
		router,
		reporter,
		b.supervisor.GetHealthTracker(),
	)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", b.cfg.APIPort),
		Handler: handler,
	}

	b.supervisor.Register(NewHTTPService(httpServer, b.cfg.ShutdownTimeout(), b.logger))
	b.supervisor.Register(NewRegistryService(b.registry, b.cfg.ShutdownTimeout(), b.logger))
	b.supervisor.Register(NewStatusPoller(reporter, b.cfg.StatusInterval(), b.logger))

	b.logger.Info("services built successfully")
	return b.supervisor, nil
}

// Registry is nil until Build succeeds.
func (b *ServiceBuilder) Registry() *worker.Registry {
	return b.registry
}

func (b *ServiceBuilder) Sink() logsink.Sink {
	return b.sink
}

func (b *ServiceBuilder) addCleanup(fn func(context.Context, *logging.LoggerWithCtx)) {
	b.cleanupFuncs = append(b.cleanupFuncs, fn)
}

// Cleanup releases resources in reverse order of acquisition.
func (b *ServiceBuilder) Cleanup(ctx context.Context) {
	logger := b.logger.Ctx(ctx)
	for i := len(b.cleanupFuncs) - 1; i >= 0; i-- {
		b.cleanupFuncs[i](ctx, &logger)
	}
	b.cleanupFuncs = nil
}
