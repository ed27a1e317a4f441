// Package status produces point-in-time views of the worker registry for
// pollers such as the HTTP API.
package status

import (
	"time"

	"github.com/hookdeck/workerctl/internal/worker"
)

// Source is the part of worker.Registry the reporter reads.
type Source interface {
	Snapshot() []worker.Info
	Retired() []worker.Info
}

// Report is a consistent snapshot. Names and Running are parallel slices.
type Report struct {
	Names       []string      `json:"names"`
	Running     []bool        `json:"running"`
	Workers     []worker.Info `json:"workers"`
	Stopped     []worker.Info `json:"stopped"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Active returns the names of the workers that are still running.
func (r Report) Active() []string {
	active := []string{}
	for i, name := range r.Names {
		if r.Running[i] {
			active = append(active, name)
		}
	}
	return active
}

type Reporter struct {
	source Source
	now    func() time.Time
}

func NewReporter(source Source) *Reporter {
	return &Reporter{
		source: source,
		now:    time.Now,
	}
}

// Report has no side effects and may be called on any schedule.
func (r *Reporter) Report() Report {
	workers := r.source.Snapshot()
	report := Report{
		Names:       make([]string, len(workers)),
		Running:     make([]bool, len(workers)),
		Workers:     workers,
		Stopped:     r.source.Retired(),
		GeneratedAt: r.now(),
	}
	for i, w := range workers {
		report.Names[i] = w.Name
		report.Running[i] = w.Running
	}
	if report.Stopped == nil {
		report.Stopped = []worker.Info{}
	}
	return report
}
