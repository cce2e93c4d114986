package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doolan/logicarray/internal/driver"
	"github.com/doolan/logicarray/internal/supervisor"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func squareWaveSamples(depth int) []uint32 {
	words := make([]uint32, depth)
	for i := range words {
		if i%2 == 0 {
			words[i] = 0x00000001
		}
	}
	return words
}

// TestIntegrationFullFlow exercises the full acquire/analyze/export path
// end to end: one device captures a few cycles, and the exported
// logic_data.txt reflects the resulting channel 0 transition count.
func TestIntegrationFullFlow(t *testing.T) {
	outDir := t.TempDir()
	cfgDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(cfgDir, "device_0.conf"),
		[]byte("sample_depth=64\nscan_interval_ms=10\n"),
		0o644,
	))

	fake := driver.NewFake()
	fake.Captures = []driver.FakeCapture{{Words: squareWaveSamples(64)}}

	opts := supervisor.Options{
		DeviceCount:    1,
		ConfigDir:      cfgDir,
		OutputDir:      outDir,
		ExportInterval: 10 * time.Millisecond,
		Logger:         testLogger(),
		NewAdapter: func(index int, vendorLibraryPath string) driver.Adapter {
			return fake
		},
	}
	sv := supervisor.New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- sv.Run(ctx) }()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(outDir, "logic_data.txt"))
		return err == nil && strings.Contains(string(data), "DEVICE,0,")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not shut down in time")
	}

	data, err := os.ReadFile(filepath.Join(outDir, "logic_data.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CHANNEL,0,CH0,")
}

// TestIntegrationRecoveryThenTermination exercises the reset-and-reconnect
// attempts that start at five consecutive failures (scripted to fail here),
// followed by termination at ten, through the supervisor rather than the
// worker package directly.
func TestIntegrationRecoveryThenTermination(t *testing.T) {
	outDir := t.TempDir()
	cfgDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(cfgDir, "device_0.conf"),
		[]byte("sample_depth=64\nscan_interval_ms=5\n"),
		0o644,
	))

	fake := driver.NewFake()
	fake.Captures = []driver.FakeCapture{{Words: squareWaveSamples(64)}}
	fake.StartCaptureFails = 1_000_000 // never recovers once failing
	fake.ResetAndReconnectErr = failAlways{}

	opts := supervisor.Options{
		DeviceCount:    1,
		ConfigDir:      cfgDir,
		OutputDir:      outDir,
		ExportInterval: 10 * time.Millisecond,
		Logger:         testLogger(),
		NewAdapter: func(index int, vendorLibraryPath string) driver.Adapter {
			return fake
		},
	}
	sv := supervisor.New(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	code := sv.Run(ctx)
	assert.Equal(t, 0, code)
	assert.Equal(t, int64(0), sv.ActiveDeviceCount())
}

type failAlways struct{}

func (failAlways) Error() string { return "reset never succeeds" }
