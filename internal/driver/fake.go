package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/doolan/logicarray/internal/faults"
)

// FakeCapture is one scripted capture result for Fake.ReadSamples.
type FakeCapture struct {
	Words []uint32
	Err   error // if set, ReadSamples returns this instead of filling buf
}

// Fake is a scriptable test double for Adapter. Each call to ReadSamples
// advances through Captures in order; once exhausted the last entry repeats.
// Failures are injected per-call-count via the *Fails counters, giving the
// recovery state machine's tests a wide failure surface to script.
type Fake struct {
	Identity     Identity
	Captures     []FakeCapture
	OpenErr      error
	InitErr      error
	ConfigureErr error

	// StartCaptureFails is the number of leading StartCapture calls that
	// fail before subsequent calls succeed. Used to script consecutive-
	// failure recovery scenarios.
	StartCaptureFails int

	// WaitTimeoutAfter, if >0, makes WaitForCapture time out for this many
	// calls before succeeding.
	WaitTimeoutAfter int

	// ResetAndReconnectErr, if set, makes ResetAndReconnect fail.
	ResetAndReconnectErr error

	captureIndex      int
	startCaptureCalls int
	waitCalls         int
	opened            bool
	closed            bool
	resetCount        int

	LastRate    int
	LastDepth   int
	LastVoltage float64
	LastTrigger TriggerConfig
}

// NewFake returns a Fake adapter that, absent any scripted error, succeeds
// at every call.
func NewFake() *Fake {
	return &Fake{Identity: Identity{Serial: "FAKE-0001", Model: "FakeAnalyzer", Firmware: "0.0.0"}}
}

func (f *Fake) Open(ctx context.Context) (Identity, error) {
	if f.OpenErr != nil {
		return Identity{}, fmt.Errorf("driver: fake open: %w", f.OpenErr)
	}
	f.opened = true
	f.closed = false
	return f.Identity, nil
}

func (f *Fake) Initialize() error {
	if f.InitErr != nil {
		return fmt.Errorf("driver: fake init: %w", f.InitErr)
	}
	return nil
}

func (f *Fake) SetSampleRate(code int) error {
	if f.ConfigureErr != nil {
		return fmt.Errorf("driver: fake configure: %w", f.ConfigureErr)
	}
	f.LastRate = code
	return nil
}

func (f *Fake) SetSampleDepth(depth int) error {
	if f.ConfigureErr != nil {
		return fmt.Errorf("driver: fake configure: %w", f.ConfigureErr)
	}
	f.LastDepth = depth
	return nil
}

func (f *Fake) SetVoltageThreshold(v float64) error {
	if f.ConfigureErr != nil {
		return fmt.Errorf("driver: fake configure: %w", f.ConfigureErr)
	}
	f.LastVoltage = v
	return nil
}

func (f *Fake) ConfigureTrigger(cfg TriggerConfig) error {
	if f.ConfigureErr != nil {
		return fmt.Errorf("driver: fake configure: %w", f.ConfigureErr)
	}
	f.LastTrigger = cfg
	return nil
}

func (f *Fake) SetPreTrigger(percent int) error { return nil }

func (f *Fake) StartCapture() error {
	f.startCaptureCalls++
	if f.startCaptureCalls <= f.StartCaptureFails {
		return fmt.Errorf("driver: fake start capture: %w", faults.ErrReadFail)
	}
	return nil
}

func (f *Fake) WaitForCapture(ctx context.Context, timeout time.Duration) error {
	f.waitCalls++
	if f.waitCalls <= f.WaitTimeoutAfter {
		return fmt.Errorf("driver: fake wait: %w", faults.ErrCaptureTimeout)
	}
	return nil
}

func (f *Fake) ReadSamples(buf []uint32) error {
	if len(f.Captures) == 0 {
		return fmt.Errorf("driver: fake read: no captures scripted: %w", faults.ErrReadFail)
	}
	next := f.Captures[f.captureIndex]
	if f.captureIndex < len(f.Captures)-1 {
		f.captureIndex++
	}
	if next.Err != nil {
		return fmt.Errorf("driver: fake read: %w", next.Err)
	}
	if len(next.Words) != len(buf) {
		return fmt.Errorf("driver: fake read: scripted capture length %d != buffer length %d: %w", len(next.Words), len(buf), faults.ErrReadFail)
	}
	copy(buf, next.Words)
	return nil
}

func (f *Fake) ResetAndReconnect(ctx context.Context) error {
	f.resetCount++
	if f.ResetAndReconnectErr != nil {
		return fmt.Errorf("driver: fake reset: %w", f.ResetAndReconnectErr)
	}
	return nil
}

func (f *Fake) Close() error {
	f.closed = true
	return nil
}

// ResetCount reports how many times ResetAndReconnect was invoked.
func (f *Fake) ResetCount() int { return f.resetCount }

// Closed reports whether Close was called.
func (f *Fake) Closed() bool { return f.closed }
