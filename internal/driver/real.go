//go:build cgo

package driver

/*
#cgo LDFLAGS: -ldl
#include "vendor_shim.h"
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/doolan/logicarray/internal/faults"
)

// pollInterval is how often WaitForCapture polls native status.
const pollInterval = 10 * time.Millisecond

// RealAdapter binds one device index to the vendor shared library through
// cgo. It is the only type in this repository that touches the C ABI.
type RealAdapter struct {
	index        int
	opened       bool
	lastRate     int
	lastDepth    int
	lastVoltage  float64
	lastTrigger  TriggerConfig
	havePrevious bool
}

// NewRealAdapter dlopen's the vendor shared object at libPath (RTLD_NOW)
// and resolves every la_* entry point via dlsym, through vendor_shim.c.
// The load happens once per process; a later call with a handle already
// open is a no-op, so constructing one RealAdapter per device index is
// safe even though they all share the same vendor library.
func NewRealAdapter(index int, libPath string) (*RealAdapter, error) {
	if libPath == "" {
		return nil, fmt.Errorf("driver: vendor library path required: %w", faults.ErrLibraryLoad)
	}

	cPath := C.CString(libPath)
	defer C.free(unsafe.Pointer(cPath))

	switch C.la_shim_load(cPath) {
	case -1:
		return nil, fmt.Errorf("driver: dlopen %s: %s: %w", libPath, C.GoString(C.la_shim_error()), faults.ErrLibraryLoad)
	case -2:
		return nil, fmt.Errorf("driver: resolve vendor symbols in %s: %s: %w", libPath, C.GoString(C.la_shim_error()), faults.ErrLibraryLoad)
	}

	return &RealAdapter{index: index}, nil
}

func (a *RealAdapter) Open(ctx context.Context) (id Identity, err error) {
	defer recoverNativeFault(&err)

	deadline := time.Now().Add(1 * time.Second)
	var ok C.int
	for attempt := 0; attempt < 2; attempt++ {
		ok = C.la_connect(C.int(a.index))
		if ok != 0 {
			break
		}
		if attempt == 0 {
			select {
			case <-ctx.Done():
				return Identity{}, ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
		if time.Now().After(deadline) {
			break
		}
	}
	if ok == 0 {
		return Identity{}, fmt.Errorf("driver: connect device %d: %w", a.index, faults.ErrConnectFail)
	}

	a.opened = true
	return Identity{
		Serial:   C.GoString(C.la_get_serial(C.int(a.index))),
		Model:    C.GoString(C.la_get_model(C.int(a.index))),
		Firmware: C.GoString(C.la_get_firmware(C.int(a.index))),
	}, nil
}

func (a *RealAdapter) Initialize() (err error) {
	defer recoverNativeFault(&err)
	if !a.opened {
		return fmt.Errorf("driver: initialize before open: %w", faults.ErrConnectFail)
	}
	if C.la_init(C.int(a.index)) == 0 {
		return fmt.Errorf("driver: init device %d: %w", a.index, faults.ErrConfigureFail)
	}
	return nil
}

func (a *RealAdapter) SetSampleRate(code int) (err error) {
	defer recoverNativeFault(&err)
	if C.la_set_sample_rate(C.int(a.index), C.int(code)) < 0 {
		return fmt.Errorf("driver: set sample rate %d: %w", code, faults.ErrConfigureFail)
	}
	a.lastRate = code
	return nil
}

func (a *RealAdapter) SetSampleDepth(depth int) (err error) {
	defer recoverNativeFault(&err)
	if C.la_set_sample_depth(C.int(a.index), C.int(depth)) < 0 {
		return fmt.Errorf("driver: set sample depth %d: %w", depth, faults.ErrConfigureFail)
	}
	a.lastDepth = depth
	return nil
}

func (a *RealAdapter) SetVoltageThreshold(volts float64) (err error) {
	defer recoverNativeFault(&err)
	// Absence of this entry point in a given vendor build is not an error;
	// a negative status here still only maps to ConfigureFail.
	if C.la_set_pwm_voltage(C.int(a.index), C.double(volts), C.double(volts)) < 0 {
		return fmt.Errorf("driver: set voltage threshold %.2f: %w", volts, faults.ErrConfigureFail)
	}
	a.lastVoltage = volts
	return nil
}

func (a *RealAdapter) ConfigureTrigger(cfg TriggerConfig) (err error) {
	defer recoverNativeFault(&err)

	on := C.int(0)
	if cfg.Enabled {
		on = 1
	}
	if C.la_enable_trigger(C.int(a.index), on, 0) < 0 {
		return fmt.Errorf("driver: enable trigger: %w", faults.ErrConfigureFail)
	}

	params := C.la_trigger_params_t{}
	params.edge_signal = C.uint16_t(cfg.Channel)
	if cfg.Rising {
		params.edge_slope = 1
	}
	if C.la_set_trigger_parameter(C.int(a.index), 0, &params) < 0 {
		return fmt.Errorf("driver: set trigger parameter: %w", faults.ErrConfigureFail)
	}

	a.lastTrigger = cfg
	return nil
}

func (a *RealAdapter) SetPreTrigger(percent int) (err error) {
	defer recoverNativeFault(&err)
	if C.la_set_pre_trigger(C.int(a.index), C.int(percent)) < 0 {
		return fmt.Errorf("driver: set pre-trigger %d: %w", percent, faults.ErrConfigureFail)
	}
	return nil
}

func (a *RealAdapter) StartCapture() (err error) {
	defer recoverNativeFault(&err)
	if C.la_start_capture(C.int(a.index)) == 0 {
		return fmt.Errorf("driver: start capture: %w", faults.ErrReadFail)
	}
	return nil
}

func (a *RealAdapter) WaitForCapture(ctx context.Context, timeout time.Duration) (err error) {
	defer recoverNativeFault(&err)

	deadline := time.Now().Add(timeout)
	for {
		if uint(C.la_read_status(C.int(a.index))) >= 1 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("driver: wait for capture: %w", faults.ErrCaptureTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (a *RealAdapter) ReadSamples(buf []uint32) (err error) {
	defer recoverNativeFault(&err)
	if len(buf) == 0 {
		return fmt.Errorf("driver: read samples: empty buffer: %w", faults.ErrReadFail)
	}
	ptr := (*C.uint32_t)(unsafe.Pointer(&buf[0]))
	ok := C.la_read_samples(C.int(a.index), ptr, C.int(len(buf)), 0)
	if ok == 0 {
		return fmt.Errorf("driver: read samples: %w", faults.ErrReadFail)
	}
	return nil
}

func (a *RealAdapter) ResetAndReconnect(ctx context.Context) (err error) {
	defer recoverNativeFault(&err)

	C.la_disconnect(C.int(a.index))
	a.opened = false

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Second):
	}

	if _, err := a.Open(ctx); err != nil {
		return err
	}
	if err := a.Initialize(); err != nil {
		return err
	}
	if err := a.SetSampleRate(a.lastRate); err != nil {
		return err
	}
	if err := a.SetSampleDepth(a.lastDepth); err != nil {
		return err
	}
	if err := a.ConfigureTrigger(a.lastTrigger); err != nil {
		return err
	}
	return nil
}

func (a *RealAdapter) Close() (err error) {
	defer recoverNativeFault(&err)
	if a.opened {
		C.la_disconnect(C.int(a.index))
		a.opened = false
	}
	return nil
}

// recoverNativeFault converts a panic raised while crossing the cgo
// boundary (e.g. a misused cgo pointer or an unexpected vendor-library
// trap surfaced as a Go panic by the runtime) into faults.ErrNativeFault,
// matching the "structured recovery boundary" required of every adapter
// entry point.
func recoverNativeFault(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("driver: native fault: %v: %w", r, faults.ErrNativeFault)
	}
}
