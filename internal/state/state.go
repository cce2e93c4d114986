// Package state holds the aggregate analyzer state shared across every
// Device Worker, the Exporter, and (indirectly, through Snapshot) any
// external reader. Each device gets exactly one Slot; the Slot is the unit
// of consistency described in §4.4: a reader sees a complete, coherent
// value from some past cycle, never a mix of two cycles' fields.
//
// The discipline is a sync.RWMutex guarding a value-typed struct:
// Get() copies it out under a read lock, and the one owning writer
// replaces it wholesale under a write lock.
package state

import (
	"sync"
	"time"

	"github.com/doolan/logicarray/internal/analyzer"
	"github.com/doolan/logicarray/internal/config"
)

const ChannelCount = config.ChannelCount

// ChannelMetrics is the derived per-channel analysis result for one device.
type ChannelMetrics struct {
	CurrentLevel           byte
	TransitionsThisCapture int
	CumulativeTransitions  int
	LastChangeTime         time.Time
	SliceTransitions       []int
	SliceActivity          []float64
	MeanPhase              float64
	PhaseVariance          float64
	FrequencyBands         [analyzer.FrequencyBandCount]float64
}

// DeviceState is the complete, coherent view of one device at some instant.
type DeviceState struct {
	Connected         bool
	Active            bool
	ConsecutiveErrors int
	TotalCaptures     int
	TotalErrors       int
	Channels          [ChannelCount]ChannelMetrics
	ChannelNames      [ChannelCount]string
	RecentlyChanged   map[int]time.Time
	Serial            string
	Model             string
	Firmware          string
	LastCaptureTime   time.Time
}

// Slot is one device's exclusively-owned, concurrently-readable state cell.
type Slot struct {
	mu    sync.RWMutex
	state DeviceState
}

// Get returns a copy of the slot's current state. Safe for any goroutine.
func (s *Slot) Get() DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update replaces the slot's state wholesale. Must only be called by the
// slot's owning Device Worker.
func (s *Slot) Update(next DeviceState) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Mutate reads the current state, applies fn, and writes the result back
// while holding the write lock for the whole operation — used by the owning
// worker to make one cycle's changes visible atomically.
func (s *Slot) Mutate(fn func(DeviceState) DeviceState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
}

// Shared is the aggregate of all per-device slots for the process lifetime.
type Shared struct {
	slots       []*Slot
	activeCount activeCounter
}

// New creates a Shared state with deviceCount empty slots.
func New(deviceCount int) *Shared {
	slots := make([]*Slot, deviceCount)
	for i := range slots {
		slots[i] = &Slot{}
	}
	return &Shared{slots: slots}
}

// Slot returns the slot for device index idx.
func (s *Shared) Slot(idx int) *Slot {
	return s.slots[idx]
}

// DeviceCount returns the number of configured device slots.
func (s *Shared) DeviceCount() int {
	return len(s.slots)
}

// ActiveCount returns the current number of active devices.
func (s *Shared) ActiveCount() int64 {
	return s.activeCount.load()
}

// MarkActive increments the active-device counter. Called once, when a
// worker successfully reaches READY.
func (s *Shared) MarkActive() {
	s.activeCount.inc()
}

// MarkInactive decrements the active-device counter. The counter is
// monotonically non-increasing afterward: a worker that terminates never
// re-increments it.
func (s *Shared) MarkInactive() {
	s.activeCount.dec()
}

// Snapshot is a copy-on-read clone of every slot at one instant, with no
// torn reads within any single slot.
type Snapshot struct {
	Devices     []DeviceState
	ActiveCount int64
}

// Snapshot clones every slot's current value under its own consistency
// discipline. Used once per Exporter tick.
func (s *Shared) Snapshot() Snapshot {
	devices := make([]DeviceState, len(s.slots))
	for i, slot := range s.slots {
		devices[i] = slot.Get()
	}
	return Snapshot{Devices: devices, ActiveCount: s.ActiveCount()}
}
