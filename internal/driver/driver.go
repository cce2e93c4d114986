// Package driver presents the vendor acquisition library as a typed,
// panic-safe, per-device handle. It is the only package that calls native
// entry points; everything above it speaks this interface.
//
// The real implementation binds the vendor shared library through cgo
// (real.go, build tag cgo); a stub satisfies the same interface without a C
// toolchain (stub.go, build tag !cgo); a scriptable Fake drives deterministic
// tests (fake.go, always built).
package driver

import (
	"context"
	"time"
)

// TriggerConfig is the trigger setup an adapter applies to the device.
// Enabled switches the trigger on or off; Channel and Rising fill the
// edge_signal and edge_slope fields of the vendor ABI's trigger parameter
// struct, whose remaining reserved bytes stay zeroed on the wire.
type TriggerConfig struct {
	Enabled bool
	Channel int
	Rising  bool
}

// Identity holds the device identification strings surfaced by the adapter
// once a device has been opened.
type Identity struct {
	Serial   string
	Model    string
	Firmware string
}

// Adapter is the capability surface of one device's vendor library handle.
// Every method is safe to call from exactly one goroutine at a time for one
// device index, returns a structured error, and never panics across the
// boundary: native faults are converted to faults.ErrNativeFault internally.
type Adapter interface {
	// Open attempts the native connect, retrying once after 200ms within a
	// 1s total budget. Must be called, and succeed, before any other method.
	Open(ctx context.Context) (Identity, error)

	Initialize() error

	SetSampleRate(code int) error
	SetSampleDepth(depth int) error
	SetVoltageThreshold(volts float64) error
	ConfigureTrigger(cfg TriggerConfig) error
	SetPreTrigger(percent int) error

	StartCapture() error

	// WaitForCapture polls native status every 10ms until the device
	// reports completion or the timeout elapses.
	WaitForCapture(ctx context.Context, timeout time.Duration) error

	// ReadSamples fills buf, which must be exactly the configured depth.
	ReadSamples(buf []uint32) error

	// ResetAndReconnect closes, waits 1s, reopens, re-initializes, and
	// re-applies the last-known-good rate/depth/trigger configuration.
	ResetAndReconnect(ctx context.Context) error

	// Close releases the underlying library handle.
	Close() error
}

// sampleRateHz maps a sample-rate code to a frequency in Hz. This
// preserves the vendor's incomplete mapping verbatim: only codes 0, 1, and 2
// are distinct, every other code (including the unused middle range)
// collapses to the 100MHz default. This is a known vendor deficiency, not
// a bug to be fixed by guessing intermediate values.
func sampleRateHz(code int) float64 {
	switch code {
	case 0:
		return 1_000_000
	case 1:
		return 2_000_000
	case 2:
		return 5_000_000
	default:
		return 100_000_000
	}
}

// SampleRateHz exposes the code-to-Hz mapping to callers (worker, analyzer)
// that need the device's effective sample rate without reaching into the
// adapter implementation.
func SampleRateHz(code int) float64 {
	return sampleRateHz(code)
}
