package services

import (
	"context"
	"slices"
	"time"

	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/status"
	"github.com/hookdeck/workerctl/internal/supervisor"
	"go.uber.org/zap"
)

type Reporter interface {
	Report() status.Report
}

// StatusPoller samples the registry on a fixed interval and logs the set of
// active workers whenever it changes.
type StatusPoller struct {
	reporter Reporter
	interval time.Duration
	logger   *logging.Logger
	onChange func(status.Report)
}

type StatusPollerOption func(*StatusPoller)

// WithOnChange is called from the poller goroutine with every report whose
// active set differs from the previous one.
func WithOnChange(fn func(status.Report)) StatusPollerOption {
	return func(p *StatusPoller) {
		p.onChange = fn
	}
}

func NewStatusPoller(reporter Reporter, interval time.Duration, logger *logging.Logger, opts ...StatusPollerOption) supervisor.Service {
	p := &StatusPoller{
		reporter: reporter,
		interval: interval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StatusPoller) Name() string {
	return "status-poller"
}

func (p *StatusPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last []string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report := p.reporter.Report()
			active := report.Active()
			if slices.Equal(active, last) {
				continue
			}
			last = active

			p.logger.Ctx(ctx).Info("active workers changed",
				zap.Strings("active", active),
				zap.Int("count", len(active)),
				zap.Int("recently_stopped", len(report.Stopped)))
			if p.onChange != nil {
				p.onChange(report)
			}
		}
	}
}
