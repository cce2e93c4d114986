// Package exporter owns the output directory and is the only writer of the
// four artifact files. Every tick it snapshots the shared analyzer state
// and rewrites all four files atomically, so an external reader polling
// them never observes a truncated or half-written file (§4.5, §6.2).
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doolan/logicarray/internal/faults"
	"github.com/doolan/logicarray/internal/state"
)

const (
	logicDataFile       = "logic_data.txt"
	timeSlicedDataFile  = "time_sliced_data.txt"
	phaseDataFile       = "phase_data.txt"
	frequencyDataFile   = "frequency_data.txt"
	defaultTickInterval = 500 * time.Millisecond
)

// Exporter periodically renders the shared analyzer state to the output
// directory. It is the output directory's sole writer.
type Exporter struct {
	shared   *state.Shared
	dir      string
	interval time.Duration
	logger   *log.Logger

	duration prometheus.Histogram
	failures prometheus.Counter
}

// New creates an Exporter that writes into dir every interval. A
// non-positive interval falls back to the documented 500ms default.
func New(shared *state.Shared, dir string, interval time.Duration, logger *log.Logger) *Exporter {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Exporter{
		shared:   shared,
		dir:      dir,
		interval: interval,
		logger:   logger.With("component", "exporter"),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logicarray_export_duration_seconds",
			Help:    "Time taken to render and atomically write all four artifact files on one tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logicarray_export_failures_total",
			Help: "Total export ticks that failed to write one or more artifact files.",
		}),
	}
}

// Collectors returns the Exporter's own Prometheus collectors, for a
// caller to register alongside the state.Shared collector.
func (e *Exporter) Collectors() []prometheus.Collector {
	return []prometheus.Collector{e.duration, e.failures}
}

// EnsureDir creates the output directory if it does not already exist.
// Called once at startup, per the "global mutable directory" design note:
// the Exporter is the sole owner of this resource.
func (e *Exporter) EnsureDir() error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("exporter: create output directory: %w", err)
	}
	return nil
}

// Run ticks until ctx is cancelled, rewriting all four files on every
// tick. A failed tick is logged and skipped; the Exporter never exits on
// a write failure, only on context cancellation.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.tick(); err != nil {
				e.logger.Warn("export tick skipped", "err", err)
			}
		}
	}
}

func (e *Exporter) tick() error {
	start := time.Now()
	defer func() { e.duration.Observe(time.Since(start).Seconds()) }()

	snap := e.shared.Snapshot()
	now := time.Now()

	writes := []struct {
		name     string
		contents string
	}{
		{logicDataFile, renderLogicData(snap, now)},
		{timeSlicedDataFile, renderTimeSlicedData(snap)},
		{phaseDataFile, renderPhaseData(snap, now)},
		{frequencyDataFile, renderFrequencyData(snap)},
	}

	for _, w := range writes {
		if err := e.writeAtomic(w.name, w.contents); err != nil {
			e.failures.Inc()
			return fmt.Errorf("%w: %s: %w", faults.ErrIoFail, w.name, err)
		}
	}
	return nil
}

// writeAtomic writes contents to name inside the output directory by
// writing a sibling temp file, flushing it, and renaming it into place.
// Because rename within one directory is atomic, a concurrent reader
// either sees the prior complete file or the new complete file, never a
// partial one.
func (e *Exporter) writeAtomic(name, contents string) error {
	target := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
