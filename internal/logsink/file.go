package logsink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileExt = ".txt"

// fileSink keeps one <dir>/<name>.txt file per worker.
type fileSink struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Sink = (*fileSink)(nil)

func NewFileSink(dir string) (Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file sink requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &fileSink{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *fileSink) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *fileSink) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func (s *fileSink) Append(ctx context.Context, name, line string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *fileSink) Lines(ctx context.Context, name string) ([]string, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func (s *fileSink) Close() error {
	return nil
}

// validateName keeps stream names usable as file names and redis keys.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidLogName, name)
	}
	return nil
}
