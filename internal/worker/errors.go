package worker

import (
	"errors"
	"fmt"
)

var (
	ErrLogWrite       = errors.New("log write failed")
	ErrWorkerNotFound = errors.New("worker not found")
	ErrRegistryClosed = errors.New("registry closed")
)

// LogWriteError reports a failed append to a worker's log. It matches both
// ErrLogWrite and the underlying sink error with errors.Is.
type LogWriteError struct {
	Worker string
	Op     string
	Err    error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("worker %s: %s log write: %v", e.Worker, e.Op, e.Err)
}

func (e *LogWriteError) Unwrap() []error {
	return []error{ErrLogWrite, e.Err}
}
