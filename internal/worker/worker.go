package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status represents the lifecycle state of a Worker.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

const (
	opStarted = "started"
	opStopped = "stopped"
	opMessage = "message"
)

// Sink is the append side of the per-worker logs.
type Sink interface {
	Append(ctx context.Context, name, line string) error
}

// Logger is a minimal logging interface for structured logging with zap.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Info is a point-in-time copy of a worker's state.
type Info struct {
	Name      string     `json:"name"`
	ID        string     `json:"id"`
	Running   bool       `json:"running"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	LogErrors int64      `json:"log_errors"`
}

// Worker is a named goroutine owned by a Registry. It idles until asked to
// stop, writing lifecycle lines to its log on the way in and out.
type Worker struct {
	name       string
	id         string
	sink       Sink
	logger     Logger
	now        func() time.Time
	onLogError func(error)
	onExit     func(*Worker)

	started   atomic.Bool
	running   atomic.Bool
	logErrors atomic.Int64

	mu        sync.Mutex
	startedAt time.Time
	stoppedAt time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newWorker(name string, r *Registry) *Worker {
	return &Worker{
		name:       name,
		id:         uuid.New().String(),
		sink:       r.sink,
		logger:     r.logger,
		now:        r.now,
		onLogError: r.onLogError,
		onExit:     r.deregister,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return w.name
}

// ID is unique per worker run and is attached to every structured log entry.
func (w *Worker) ID() string {
	return w.id
}

// IsRunning reports whether the worker loop is still active. It never blocks.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

func (w *Worker) Status() Status {
	if w.IsRunning() {
		return StatusRunning
	}
	return StatusStopped
}

func (w *Worker) LogErrors() int64 {
	return w.logErrors.Load()
}

// RequestStop signals the worker to stop. It does not wait; use Done for that.
// Only the first call has an effect.
func (w *Worker) RequestStop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
}

// Done is closed once the worker has written its stopped line and left the registry.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) Info() Info {
	w.mu.Lock()
	defer w.mu.Unlock()

	info := Info{
		Name:      w.name,
		ID:        w.id,
		Running:   w.running.Load(),
		StartedAt: w.startedAt,
		LogErrors: w.logErrors.Load(),
	}
	if !w.stoppedAt.IsZero() {
		stoppedAt := w.stoppedAt
		info.StoppedAt = &stoppedAt
	}
	return info
}

// Deliver appends a timestamped message line to the worker's log.
func (w *Worker) Deliver(ctx context.Context, message string) error {
	return w.appendLine(ctx, opMessage, MessageLine(message, w.now()))
}

// start marks the worker running and writes its started line. Starting a
// worker twice is a programming error and panics.
func (w *Worker) start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("worker %s already started", w.name))
	}

	at := w.now()
	w.mu.Lock()
	w.startedAt = at
	w.running.Store(true)
	w.mu.Unlock()

	w.appendLine(ctx, opStarted, StartedLine(w.name, at))
}

// run blocks until a stop is requested or ctx is done, then finishes the
// worker and hands it back to the registry.
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	select {
	case <-w.stop:
	case <-ctx.Done():
	}

	w.finish(context.WithoutCancel(ctx))
	if w.onExit != nil {
		w.onExit(w)
	}
}

// abandon finishes a started worker that never made it into the registry.
func (w *Worker) abandon(ctx context.Context) {
	w.finish(ctx)
	close(w.done)
}

// finish writes the stopped line before flipping the status, so a reader
// that sees the worker stopped can rely on the line having been attempted.
func (w *Worker) finish(ctx context.Context) {
	at := w.now()
	w.appendLine(ctx, opStopped, StoppedLine(w.name, at))

	w.mu.Lock()
	w.stoppedAt = at
	w.running.Store(false)
	w.mu.Unlock()
}

func (w *Worker) appendLine(ctx context.Context, op, line string) error {
	if err := w.sink.Append(ctx, w.name, line); err != nil {
		w.logErrors.Add(1)
		logErr := &LogWriteError{Worker: w.name, Op: op, Err: err}
		w.logger.Error("worker log write failed",
			zap.String("worker", w.name),
			zap.String("worker_id", w.id),
			zap.String("op", op),
			zap.Error(err))
		if w.onLogError != nil {
			w.onLogError(logErr)
		}
		return logErr
	}
	return nil
}
