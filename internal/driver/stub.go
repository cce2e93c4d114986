//go:build !cgo

package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/doolan/logicarray/internal/faults"
)

// RealAdapter is unavailable in builds without cgo. This stub keeps the
// package linkable (so a pure-Go build still produces a binary that can run
// against the fake adapter in tests) while refusing every operation with a
// clear error.
type RealAdapter struct{}

// NewRealAdapter always fails on a non-cgo build.
func NewRealAdapter(index int, libPath string) (*RealAdapter, error) {
	return nil, fmt.Errorf("driver: vendor library binding requires a cgo build: %w", faults.ErrLibraryLoad)
}

func (a *RealAdapter) Open(ctx context.Context) (Identity, error) {
	return Identity{}, fmt.Errorf("driver: not supported in this build: %w", faults.ErrLibraryLoad)
}

func (a *RealAdapter) Initialize() error                     { return notSupported() }
func (a *RealAdapter) SetSampleRate(code int) error           { return notSupported() }
func (a *RealAdapter) SetSampleDepth(depth int) error         { return notSupported() }
func (a *RealAdapter) SetVoltageThreshold(v float64) error    { return notSupported() }
func (a *RealAdapter) ConfigureTrigger(c TriggerConfig) error { return notSupported() }
func (a *RealAdapter) SetPreTrigger(percent int) error        { return notSupported() }
func (a *RealAdapter) StartCapture() error                    { return notSupported() }

func (a *RealAdapter) WaitForCapture(ctx context.Context, timeout time.Duration) error {
	return notSupported()
}

func (a *RealAdapter) ReadSamples(buf []uint32) error              { return notSupported() }
func (a *RealAdapter) ResetAndReconnect(ctx context.Context) error { return notSupported() }
func (a *RealAdapter) Close() error                                { return nil }

func notSupported() error {
	return fmt.Errorf("driver: not supported in this build: %w", faults.ErrLibraryLoad)
}
