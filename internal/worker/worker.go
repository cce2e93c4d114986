// Package worker implements the Device Worker: one goroutine per device
// driving an endless capture/analyze/publish cycle through the state
// machine described in §4.3, until shutdown or terminal failure.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/doolan/logicarray/internal/config"
	"github.com/doolan/logicarray/internal/driver"
	"github.com/doolan/logicarray/internal/faults"
	"github.com/doolan/logicarray/internal/state"
)

// Phase is the Device Worker's coarse lifecycle phase.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseReady
	PhaseCapturing
	PhaseTerminated
)

const (
	resetThreshold     = 5
	terminateThreshold = 10
	captureDeadline    = 3 * time.Second
	captureWaitTimeout = 2 * time.Second
	configPollInterval = 3 * time.Second
)

// Worker drives one device through its capture lifecycle. It is the sole
// writer of its Slot and the sole caller of its Adapter.
type Worker struct {
	Index   int
	adapter driver.Adapter
	slot    *state.Slot
	shared  *state.Shared
	clock   *ConfigClock
	group   *GroupScheduler
	logger  *log.Logger

	cfg          config.DeviceConfig
	lastModTime  time.Time
	lastClockGen int64

	consecutiveErrors int
	phase             Phase
}

// New constructs a Worker for one device. cfg is the device's initial,
// already-validated configuration.
func New(index int, adapter driver.Adapter, slot *state.Slot, shared *state.Shared, clock *ConfigClock, cfg config.DeviceConfig, logger *log.Logger) *Worker {
	return &Worker{
		Index:   index,
		adapter: adapter,
		slot:    slot,
		shared:  shared,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With("device", index),
		phase:   PhaseInitializing,
	}
}

// SetGroup assigns the scheduler that gates whether this device's group
// is currently allowed to run a capture cycle. Called by the Supervisor
// only when grouped-connection mode is enabled; otherwise the worker's
// group stays nil and is always active.
func (w *Worker) SetGroup(group *GroupScheduler) {
	w.group = group
}

// Connect attempts open + initialize + initial configuration. The
// Supervisor only spawns a worker's Run loop after Connect succeeds.
func (w *Worker) Connect(ctx context.Context) error {
	id, err := w.adapter.Open(ctx)
	if err != nil {
		return fmt.Errorf("worker %d: open: %w", w.Index, err)
	}

	if err := w.adapter.Initialize(); err != nil {
		return fmt.Errorf("worker %d: initialize: %w", w.Index, err)
	}

	if err := w.applyConfig(w.cfg); err != nil {
		return fmt.Errorf("worker %d: initial configure: %w", w.Index, err)
	}

	w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
		s.Connected = true
		s.Active = true
		s.Serial = id.Serial
		s.Model = id.Model
		s.Firmware = id.Firmware
		s.ChannelNames = w.cfg.ChannelNames
		return s
	})

	w.phase = PhaseReady
	w.shared.MarkActive()
	w.recordConfigModTime()
	return nil
}

// Run executes capture cycles until ctx is cancelled or the worker reaches
// a terminal error count. It returns only on shutdown or termination.
func (w *Worker) Run(ctx context.Context) {
	w.phase = PhaseCapturing
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.maybeReloadConfig(ctx)
		if w.phase == PhaseTerminated {
			return
		}

		if !w.group.Active(w.Index) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(groupPollInterval):
			}
			continue
		}

		terminal := w.runCycle(ctx)
		if terminal {
			w.phase = PhaseTerminated
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(w.cfg.ScanIntervalMs) * time.Millisecond):
		}
	}
}

// runCycle executes one arm/wait/read/analyze/publish cycle and applies
// the error policy from §4.3. It returns true if the worker has reached
// its terminal error threshold and must stop.
func (w *Worker) runCycle(ctx context.Context) bool {
	cycleCtx, cancel := context.WithTimeout(ctx, captureDeadline)
	defer cancel()

	words, err := w.captureOnce(cycleCtx)
	if err != nil {
		return w.recordCycleError(ctx, err)
	}

	sampleRate := driver.SampleRateHz(w.cfg.SampleRateCode)
	now := time.Now()

	w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
		return analyzeCapture(ctx, s, words, now, sampleRate)
	})

	w.consecutiveErrors = 0
	return false
}

func (w *Worker) captureOnce(ctx context.Context) ([]uint32, error) {
	if err := w.adapter.StartCapture(); err != nil {
		return nil, err
	}
	if err := w.adapter.WaitForCapture(ctx, captureWaitTimeout); err != nil {
		return nil, err
	}
	buf := make([]uint32, w.cfg.SampleDepth)
	if err := w.adapter.ReadSamples(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// recordCycleError applies the consecutive-error/recovery/termination
// policy from §4.3's error table. It returns true if the worker must stop.
func (w *Worker) recordCycleError(ctx context.Context, err error) bool {
	w.consecutiveErrors++
	w.logger.Warn("capture cycle failed", "consecutive_errors", w.consecutiveErrors, "err", err)

	w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
		s.TotalErrors++
		s.ConsecutiveErrors = w.consecutiveErrors
		return s
	})

	if w.consecutiveErrors >= terminateThreshold {
		w.logger.Error("terminating after consecutive failures", "consecutive_errors", w.consecutiveErrors)
		w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
			s.Active = false
			return s
		})
		w.shared.MarkInactive()
		return true
	}

	if w.consecutiveErrors >= resetThreshold {
		w.logger.Warn("attempting reset and reconnect")
		if rerr := w.adapter.ResetAndReconnect(ctx); rerr != nil {
			w.logger.Error("reset and reconnect failed", "err", rerr)
			return false
		}
		if cerr := w.applyConfig(w.cfg); cerr != nil {
			w.logger.Error("re-apply configuration after reset failed", "err", cerr)
			return false
		}
		w.consecutiveErrors = 0
		w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
			s.ConsecutiveErrors = 0
			return s
		})
	}

	return false
}

// applyConfig pushes rate/depth/threshold/trigger to the adapter.
func (w *Worker) applyConfig(cfg config.DeviceConfig) error {
	if err := w.adapter.SetSampleRate(cfg.SampleRateCode); err != nil {
		return fmt.Errorf("worker %d: %w", w.Index, err)
	}
	if err := w.adapter.SetSampleDepth(cfg.SampleDepth); err != nil {
		return fmt.Errorf("worker %d: %w", w.Index, err)
	}
	if err := w.adapter.SetVoltageThreshold(cfg.VoltageThreshold); err != nil {
		return fmt.Errorf("worker %d: %w", w.Index, err)
	}
	if err := w.adapter.ConfigureTrigger(driver.TriggerConfig{
		Enabled: cfg.TriggerEnabled,
		Channel: cfg.TriggerChannel,
		Rising:  cfg.TriggerRisingEdge,
	}); err != nil {
		return fmt.Errorf("worker %d: %w", w.Index, err)
	}
	return nil
}

// maybeReloadConfig checks the config file's mtime at most once per shared
// ConfigClock tick, re-applying the device configuration if any
// apply-relevant field changed and reverting on apply failure.
func (w *Worker) maybeReloadConfig(ctx context.Context) {
	if w.cfg.Path == "" {
		return
	}
	gen := w.clock.Generation()
	if gen == w.lastClockGen {
		return
	}
	w.lastClockGen = gen

	info, err := os.Stat(w.cfg.Path)
	if err != nil {
		return
	}
	if !info.ModTime().After(w.lastModTime) {
		return
	}
	w.lastModTime = info.ModTime()

	next, err := config.Load(w.cfg.Path, w.cfg)
	if err != nil {
		w.logger.Warn("config reload failed", "err", err)
		return
	}

	diff := config.Compare(w.cfg, next)
	if !diff.Changed() {
		w.cfg = next
		w.publishChannelNames()
		return
	}

	prev := w.cfg
	w.cfg = next
	if err := w.applyConfig(next); err != nil {
		w.logger.Warn("apply reloaded configuration failed, reverting", "err", err)
		w.cfg = prev
		if rerr := w.applyConfig(prev); rerr != nil {
			w.logger.Error("revert to previous configuration failed, terminating", "err", rerr)
			w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
				s.Active = false
				return s
			})
			w.shared.MarkInactive()
			w.phase = PhaseTerminated
		}
		return
	}

	w.publishChannelNames()
}

// publishChannelNames copies the current config's channel names into the
// slot so the exporter's rendered output reflects renamed channels without
// waiting for the next capture cycle.
func (w *Worker) publishChannelNames() {
	w.slot.Mutate(func(s state.DeviceState) state.DeviceState {
		s.ChannelNames = w.cfg.ChannelNames
		return s
	})
}

func (w *Worker) recordConfigModTime() {
	if w.cfg.Path == "" {
		return
	}
	if info, err := os.Stat(w.cfg.Path); err == nil {
		w.lastModTime = info.ModTime()
	}
}

// Close releases the worker's adapter handle.
func (w *Worker) Close() error {
	return w.adapter.Close()
}

// Phase returns the worker's current lifecycle phase.
func (w *Worker) Phase() Phase {
	return w.phase
}

// IsTerminal reports whether err represents a terminal adapter failure: a
// vendor library load failure or a connect failure.
func IsTerminal(err error) bool {
	return errors.Is(err, faults.ErrLibraryLoad) || errors.Is(err, faults.ErrConnectFail)
}
