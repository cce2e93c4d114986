package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doolan/logicarray/internal/driver"
)

func TestClampDeviceCount(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{12, 12},
		{13, 12},
		{1000, 12},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, clampDeviceCount(c.in))
	}
}

func TestParseDeviceCount(t *testing.T) {
	n, err := parseDeviceCount("5")
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = parseDeviceCount("not-a-number")
	assert.Error(t, err)
}

func TestNewVendorAdapter_MissingLibraryPathFailsOnOpen(t *testing.T) {
	adapter := newVendorAdapter(0, "")
	_, err := adapter.Open(context.Background())
	assert.Error(t, err)
}

var _ driver.Adapter = failedAdapter{}

func TestFailedAdapter_EveryMethodReturnsConstructionError(t *testing.T) {
	f := failedAdapter{err: assertErr{}}
	assert.Error(t, f.Initialize())
	assert.Error(t, f.SetSampleRate(0))
	assert.Error(t, f.SetSampleDepth(0))
	assert.Error(t, f.SetVoltageThreshold(0))
	assert.Error(t, f.ConfigureTrigger(driver.TriggerConfig{}))
	assert.Error(t, f.SetPreTrigger(0))
	assert.Error(t, f.StartCapture())
	assert.Error(t, f.WaitForCapture(context.Background(), time.Millisecond))
	assert.Error(t, f.ReadSamples(make([]uint32, 1)))
	assert.Error(t, f.ResetAndReconnect(context.Background()))
	assert.NoError(t, f.Close())
}

type assertErr struct{}

func (assertErr) Error() string { return "scripted failure" }
