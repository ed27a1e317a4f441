package supervisor

import "context"

// Service is a long-running part of the process supervised by a Supervisor,
// such as the HTTP server or the worker registry.
//
// Services should:
// - Block in Run() until ctx is cancelled or a fatal error occurs
// - Return nil or context.Canceled for graceful shutdown
// - Return non-nil error only for fatal failures
type Service interface {
	// Name returns a unique identifier for this service (e.g., "http-server", "registry")
	Name() string

	// Run executes the service and blocks until ctx is cancelled or an error occurs.
	Run(ctx context.Context) error
}
