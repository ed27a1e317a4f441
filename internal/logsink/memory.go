package logsink

import (
	"context"
	"sync"
)

type memorySink struct {
	mu   sync.RWMutex
	logs map[string][]string
}

var _ Sink = (*memorySink)(nil)

func NewMemorySink() Sink {
	return &memorySink{
		logs: make(map[string][]string),
	}
}

func (s *memorySink) Append(ctx context.Context, name, line string) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[name] = append(s.logs[name], line)
	return nil
}

func (s *memorySink) Lines(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, ok := s.logs[name]
	if !ok {
		return nil, ErrLogNotFound
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *memorySink) Close() error {
	return nil
}
