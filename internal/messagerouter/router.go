// Package messagerouter delivers user messages to the logs of one or all
// registered workers.
package messagerouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hookdeck/workerctl/internal/worker"
	"go.uber.org/zap"
)

// TargetAll addresses every registered worker.
const TargetAll = "all"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrTargetNotFound = errors.New("target not found")
)

// Registry is the part of worker.Registry the router needs.
type Registry interface {
	List() []*worker.Worker
	FindByName(name string) (*worker.Worker, bool)
}

type Result struct {
	Delivered []string `json:"delivered"`
	Failed    []string `json:"failed,omitempty"`
}

type Router struct {
	registry Registry
	logger   worker.Logger
}

func New(registry Registry, logger worker.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger,
	}
}

// Route appends message to the log of target, which is either TargetAll or a
// worker name. Blank messages are rejected before anything is written.
//
// When some appends fail the result still lists what was delivered and the
// returned error matches worker.ErrLogWrite.
//
// TargetAll resolves against a snapshot of the registry, so a worker that
// exits between the snapshot and its delivery can get the message line
// after its stopped line. Delivery is best effort.
func (r *Router) Route(ctx context.Context, target, message string) (Result, error) {
	if strings.TrimSpace(message) == "" {
		return Result{}, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return Result{}, fmt.Errorf("%w: target is empty", ErrInvalidInput)
	}

	var targets []*worker.Worker
	if target == TargetAll {
		targets = r.registry.List()
	} else {
		w, ok := r.registry.FindByName(target)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
		}
		targets = []*worker.Worker{w}
	}

	result := Result{Delivered: []string{}}
	var errs []error
	for _, w := range targets {
		if err := w.Deliver(ctx, message); err != nil {
			result.Failed = append(result.Failed, w.Name())
			errs = append(errs, err)
			continue
		}
		result.Delivered = append(result.Delivered, w.Name())
	}

	r.logger.Debug("message routed",
		zap.String("target", target),
		zap.Int("delivered", len(result.Delivered)),
		zap.Int("failed", len(result.Failed)))

	return result, errors.Join(errs...)
}
