package worker

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultNamePrefix    = "Thread"
	DefaultRetainStopped = 16
)

// Registry owns the set of live workers in creation order.
//
// A single mutex covers the whole slice: every mutation and every walk over it
// happens under that lock, and the lock is never held during log I/O.
type Registry struct {
	ctx           context.Context
	sink          Sink
	logger        Logger
	namePrefix    string
	retainStopped int
	onLogError    func(error)
	now           func() time.Time

	seq atomic.Uint64

	mu      sync.Mutex
	workers []*Worker
	retired []Info
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Registry)

// WithNamePrefix changes the "Thread" part of generated worker names.
func WithNamePrefix(prefix string) Option {
	return func(r *Registry) {
		if prefix != "" {
			r.namePrefix = prefix
		}
	}
}

// WithRetainStopped sets how many exited workers are kept for Retired.
func WithRetainStopped(n int) Option {
	return func(r *Registry) {
		r.retainStopped = max(n, 0)
	}
}

// WithLogErrorHandler is called with a *LogWriteError whenever a worker log append fails.
func WithLogErrorHandler(fn func(error)) Option {
	return func(r *Registry) {
		r.onLogError = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry. Cancelling ctx stops every worker
// as if RequestStop had been called on each.
func NewRegistry(ctx context.Context, sink Sink, logger Logger, opts ...Option) *Registry {
	r := &Registry{
		ctx:           ctx,
		sink:          sink,
		logger:        logger,
		namePrefix:    DefaultNamePrefix,
		retainStopped: DefaultRetainStopped,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) nextName() string {
	return fmt.Sprintf("%s-%d", r.namePrefix, r.seq.Add(1))
}

// CreateAndStart creates a worker under the next sequential name, writes its
// started line, registers it and launches its goroutine. The worker is not
// visible to other callers until all of that has happened.
func (r *Registry) CreateAndStart(ctx context.Context) (*Worker, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrRegistryClosed
	}

	w := newWorker(r.nextName(), r)
	w.start(context.WithoutCancel(ctx))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		w.abandon(context.WithoutCancel(ctx))
		return nil, ErrRegistryClosed
	}
	r.workers = append(r.workers, w)
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		w.run(r.ctx)
	}()

	r.logger.Info("worker started", zap.String("worker", w.name), zap.String("worker_id", w.id))
	return w, nil
}

// Remove drops w from the registry and asks it to stop. Removing a worker
// that is not present is a no-op. The worker still writes its stopped line
// and is recorded in Retired once its goroutine exits.
func (r *Registry) Remove(w *Worker) bool {
	r.mu.Lock()
	removed := r.removeLocked(w)
	r.mu.Unlock()

	if removed {
		w.RequestStop()
	}
	return removed
}

func (r *Registry) removeLocked(w *Worker) bool {
	i := slices.Index(r.workers, w)
	if i < 0 {
		return false
	}
	r.workers = slices.Delete(r.workers, i, i+1)
	return true
}

// deregister is the exit callback each worker runs as its last step, after
// its status is Stopped.
func (r *Registry) deregister(w *Worker) {
	r.mu.Lock()
	r.removeLocked(w)
	if r.retainStopped > 0 {
		r.retired = append(r.retired, w.Info())
		if over := len(r.retired) - r.retainStopped; over > 0 {
			r.retired = slices.Delete(r.retired, 0, over)
		}
	}
	r.mu.Unlock()

	r.logger.Info("worker stopped", zap.String("worker", w.name), zap.String("worker_id", w.id))
}

// StopMostRecent signals the most recently added worker still registered.
// It reports false when the registry is empty.
func (r *Registry) StopMostRecent() (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.workers) == 0 {
		return nil, false
	}
	w := r.workers[len(r.workers)-1]
	w.RequestStop()
	return w, true
}

// Stop signals the worker with the given name.
func (r *Registry) Stop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.findLocked(name)
	if w == nil {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	w.RequestStop()
	return nil
}

// StopAll signals every registered worker and returns how many were signalled.
// It does not wait for them to exit; see Wait and Shutdown.
func (r *Registry) StopAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopAllLocked()
}

func (r *Registry) stopAllLocked() int {
	for _, w := range r.workers {
		w.RequestStop()
	}
	return len(r.workers)
}

// Snapshot returns a copy of every registered worker's state in creation order.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, len(r.workers))
	for i, w := range r.workers {
		infos[i] = w.Info()
	}
	return infos
}

// Retired returns the most recently exited workers, oldest first.
func (r *Registry) Retired() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.retired)
}

// List returns the registered worker handles in creation order.
func (r *Registry) List() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.workers)
}

func (r *Registry) FindByName(name string) (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.findLocked(name)
	return w, w != nil
}

func (r *Registry) findLocked(name string) *Worker {
	for _, w := range r.workers {
		if w.name == name {
			return w
		}
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Wait blocks until every launched worker goroutine has exited or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown refuses new workers, stops the existing ones and waits for them to drain.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	n := r.stopAllLocked()
	r.mu.Unlock()

	r.logger.Info("registry shutting down", zap.Int("workers", n))
	if err := r.Wait(ctx); err != nil {
		r.logger.Warn("registry shutdown incomplete", zap.Int("remaining", r.Len()), zap.Error(err))
		return err
	}
	r.logger.Info("registry drained")
	return nil
}
