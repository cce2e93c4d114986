// Package supervisor owns the process-wide analyzer state, spawns one
// Device Worker per configured device plus the Exporter, and drives
// cooperative shutdown on SIGINT/SIGTERM (§4.6).
package supervisor

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doolan/logicarray/internal/config"
	"github.com/doolan/logicarray/internal/driver"
	"github.com/doolan/logicarray/internal/exporter"
	"github.com/doolan/logicarray/internal/state"
	"github.com/doolan/logicarray/internal/worker"
)

const (
	shutdownJoinTimeout    = 10 * time.Second
	configPollInterval     = 3 * time.Second
	maxExporterRestarts    = 3
	defaultGroupSize       = 6
	defaultGroupSwitchWait = 500 * time.Millisecond
)

// AdapterFactory constructs the Adapter for one device index. Production
// code supplies a constructor that binds the vendor library at
// vendorLibraryPath; tests supply one that hands back driver.Fake values.
type AdapterFactory func(index int, vendorLibraryPath string) driver.Adapter

// Options configures a Supervisor run.
type Options struct {
	DeviceCount       int
	VendorLibraryPath string
	ConfigDir         string
	OutputDir         string
	ExportInterval    time.Duration
	NewAdapter        AdapterFactory
	Logger            *log.Logger

	// Shared, if set, is used instead of a freshly allocated state.Shared —
	// callers that also run a metrics server pass in the same instance so
	// both read the same device slots.
	Shared *state.Shared

	// GroupedConnection splits connected devices into two halves that take
	// turns capturing, for deployments where the devices share a USB bus
	// with enough bandwidth for only one half at once. Off by default:
	// every device captures on every cycle.
	GroupedConnection bool
	GroupSize         int
	GroupSwitchDelay  time.Duration
}

// Supervisor is the process-wide orchestrator: it owns state.Shared, one
// Worker per successfully connected device, and the Exporter.
type Supervisor struct {
	opts    Options
	shared  *state.Shared
	workers []*worker.Worker
	exp     *exporter.Exporter
	logger  *log.Logger
}

// New constructs a Supervisor. Call Run to start the system.
func New(opts Options) *Supervisor {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	shared := opts.Shared
	if shared == nil {
		shared = state.New(opts.DeviceCount)
	}
	return &Supervisor{
		opts:   opts,
		shared: shared,
		exp:    exporter.New(shared, opts.OutputDir, opts.ExportInterval, opts.Logger),
		logger: opts.Logger,
	}
}

// ExporterCollectors exposes the Exporter's Prometheus collectors so a
// caller can register them on the same registry as the state collector
// before Run starts serving the exporter's output.
func (s *Supervisor) ExporterCollectors() []prometheus.Collector {
	return s.exp.Collectors()
}

// Run connects every enabled device, starts its worker and the exporter,
// and blocks until ctx is cancelled or a shutdown signal arrives. It
// returns the exit code per §6.4: 0 for normal shutdown, 1 if no device
// could be connected.
func (s *Supervisor) Run(ctx context.Context) int {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clock := worker.NewConfigClock(ctx, configPollInterval)

	connected := s.connectAll(ctx, clock)
	if connected == 0 {
		s.logger.Error("no device could be connected")
		return 1
	}

	if err := s.exp.EnsureDir(); err != nil {
		s.logger.Error("cannot create output directory", "err", err)
		return 1
	}

	var wg sync.WaitGroup
	if s.opts.GroupedConnection {
		groupSize := s.opts.GroupSize
		if groupSize <= 0 {
			groupSize = defaultGroupSize
		}
		switchDelay := s.opts.GroupSwitchDelay
		if switchDelay <= 0 {
			switchDelay = defaultGroupSwitchWait
		}
		group := worker.NewGroupScheduler(groupSize)
		for _, w := range s.workers {
			w.SetGroup(group)
		}
		s.logger.Info("grouped connection enabled", "group_size", groupSize, "switch_delay", switchDelay)

		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(switchDelay)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					group.Toggle()
				}
			}
		}()
	}

	for _, w := range s.workers {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runExporterWithRestart(ctx, cancel)
	}()

	<-ctx.Done()
	s.logger.Info("shutdown signal received, stopping workers")

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(shutdownJoinTimeout):
		s.logger.Warn("shutdown join timed out, exiting anyway")
	}

	for _, w := range s.workers {
		if err := w.Close(); err != nil {
			s.logger.Warn("error closing adapter", "err", err)
		}
	}

	return 0
}

// connectAll attempts to Connect every device 0..DeviceCount-1 and builds
// the Worker for each success. Per §4.6, only devices whose Open succeeds
// get a worker and a running goroutine.
func (s *Supervisor) connectAll(ctx context.Context, clock *worker.ConfigClock) int {
	connected := 0
	for idx := 0; idx < s.opts.DeviceCount; idx++ {
		cfgPath := filepath.Join(s.opts.ConfigDir, fmt.Sprintf("device_%d.conf", idx))
		cfg := config.Default(cfgPath)
		if loaded, err := config.Load(cfgPath, cfg); err == nil {
			cfg = loaded
		}
		if !cfg.Enabled {
			s.logger.Info("device disabled by configuration", "device", idx)
			continue
		}

		adapter := s.opts.NewAdapter(idx, s.opts.VendorLibraryPath)
		w := worker.New(idx, adapter, s.shared.Slot(idx), s.shared, clock, cfg, s.logger)

		if err := w.Connect(ctx); err != nil {
			s.logger.Error("device connect failed", "device", idx, "err", err)
			_ = adapter.Close()
			continue
		}

		s.workers = append(s.workers, w)
		connected++
	}
	return connected
}

// runExporterWithRestart runs the Exporter, restarting it up to
// maxExporterRestarts times if it panics before forcing a full shutdown.
func (s *Supervisor) runExporterWithRestart(ctx context.Context, cancel context.CancelFunc) {
	restarts := 0
	for {
		if s.runExporterOnce(ctx) {
			return
		}
		restarts++
		if restarts > maxExporterRestarts {
			s.logger.Error("exporter exceeded restart budget, forcing shutdown")
			cancel()
			return
		}
		s.logger.Warn("exporter restarting after panic", "attempt", restarts)
	}
}

// runExporterOnce runs the exporter and recovers a panic if one occurs.
// It returns true if the exporter exited cleanly (context cancellation).
func (s *Supervisor) runExporterOnce(ctx context.Context) (clean bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("exporter panicked", "recovered", r)
			clean = false
		}
	}()
	s.exp.Run(ctx)
	return true
}

// ActiveDeviceCount reports the number of devices still marked active.
func (s *Supervisor) ActiveDeviceCount() int64 {
	return s.shared.ActiveCount()
}
