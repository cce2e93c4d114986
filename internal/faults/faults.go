// Package faults defines the sentinel error kinds shared across the
// acquisition pipeline, wrapped with fmt.Errorf("...: %w", ...) at each call
// site and tested with errors.Is by the Device Worker's recovery logic.
package faults

import "errors"

var (
	// ErrLibraryLoad means the vendor library or a required entry point
	// could not be loaded. Terminal for the affected adapter.
	ErrLibraryLoad = errors.New("vendor library load failed")

	// ErrConnectFail means the device was not present or busy at open time.
	ErrConnectFail = errors.New("device connect failed")

	// ErrConfigureFail means the vendor library rejected a rate/depth/
	// trigger parameter.
	ErrConfigureFail = errors.New("device configuration rejected")

	// ErrCaptureTimeout means a capture did not complete within its
	// per-cycle budget.
	ErrCaptureTimeout = errors.New("capture timed out")

	// ErrReadFail means a sample read returned failure.
	ErrReadFail = errors.New("sample read failed")

	// ErrNativeFault means foreign code failed catastrophically; caught at
	// the adapter boundary and treated like ErrReadFail for the cycle.
	ErrNativeFault = errors.New("native fault recovered at adapter boundary")

	// ErrIoFail means an output file write failed.
	ErrIoFail = errors.New("output write failed")

	// ErrConfigParse means a config file line was malformed.
	ErrConfigParse = errors.New("config line malformed")
)
