package exporter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doolan/logicarray/internal/state"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func connectedSnapshot() state.Snapshot {
	dev := state.DeviceState{
		Connected:     true,
		Serial:        "SN-1",
		Model:         "M1",
		TotalCaptures: 7,
	}
	dev.Channels[0] = state.ChannelMetrics{
		CurrentLevel:           1,
		TransitionsThisCapture: 2,
		CumulativeTransitions:  5,
		LastChangeTime:         time.Now(),
		SliceActivity:          []float64{10, 20, 30, 40, 50},
		MeanPhase:              1.2,
		PhaseVariance:          0.1,
	}
	dev.ChannelNames[0] = "Probe-A"
	return state.Snapshot{Devices: []state.DeviceState{dev}}
}

func TestRenderLogicData_OmitsDisconnectedAndUntouchedChannels(t *testing.T) {
	snap := connectedSnapshot()
	snap.Devices = append(snap.Devices, state.DeviceState{Connected: false})

	out := renderLogicData(snap, time.Now())

	assert.Contains(t, out, "DEVICE,0,SN-1,M1,7")
	assert.Contains(t, out, "CHANNEL,0,Probe-A,1,2,5,")
	assert.NotContains(t, out, "DEVICE,1,")
	assert.NotContains(t, out, "CHANNEL,1,")
}

func TestRenderLogicData_QuantizesActivityByRecency(t *testing.T) {
	now := time.Now()
	dev := state.DeviceState{Connected: true}
	dev.Channels[0] = state.ChannelMetrics{CumulativeTransitions: 1, LastChangeTime: now.Add(-100 * time.Millisecond)}
	snap := state.Snapshot{Devices: []state.DeviceState{dev}}

	out := renderLogicData(snap, now)
	assert.Contains(t, out, ",100\n")
}

func TestRenderTimeSlicedData_FormatsFiveSlicesPerChannel(t *testing.T) {
	snap := connectedSnapshot()
	out := renderTimeSlicedData(snap)
	assert.Contains(t, out, "0,0,10.0,20.0,30.0,40.0,50.0")
	assert.Equal(t, phaseChannels, strings.Count(out, "\n")-2) // header x2 + one line per channel
}

func TestRenderPhaseData_IncludesMeanAndVariance(t *testing.T) {
	snap := connectedSnapshot()
	out := renderPhaseData(snap, time.Now())
	assert.Contains(t, out, "PHASE,0,Probe-A, 1.200000,0.100000")
}

func TestRenderFrequencyData_HeaderAndOneRowPerPhaseChannel(t *testing.T) {
	snap := connectedSnapshot()
	snap.Devices[0].Channels[3].FrequencyBands[2] = 4.5

	out := renderFrequencyData(snap)
	assert.True(t, strings.HasPrefix(out, "device,channel,band0,band1"))
	assert.Contains(t, out, "0,3,0.00,0.00,4.50,")
	assert.Equal(t, phaseChannels, strings.Count(out, "\n")-1)
}

func TestExporter_WriteAtomicProducesParseableFile(t *testing.T) {
	dir := t.TempDir()
	shared := state.New(1)
	shared.Slot(0).Update(connectedSnapshot().Devices[0])

	e := New(shared, dir, 10*time.Millisecond, testLogger())
	require.NoError(t, e.EnsureDir())
	require.NoError(t, e.tick())

	data, err := os.ReadFile(filepath.Join(dir, logicDataFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEVICE,0,")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.Contains(entry.Name(), ".tmp-"), "leftover temp file: %s", entry.Name())
	}
}

// An external reader polling logic_data.txt while the exporter is
// ticking concurrently never observes a partial file.
func TestExporter_AtomicUnderConcurrentReads(t *testing.T) {
	dir := t.TempDir()
	shared := state.New(2)
	shared.Slot(0).Update(connectedSnapshot().Devices[0])

	e := New(shared, dir, time.Millisecond, testLogger())
	require.NoError(t, e.EnsureDir())
	require.NoError(t, e.tick()) // ensure the file exists before readers start

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.Run(ctx)
	}()

	readErrs := make(chan error, 1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				readErrs <- nil
				return
			default:
			}
			data, err := os.ReadFile(filepath.Join(dir, logicDataFile))
			if err != nil {
				continue // a failed read is retried; only the content of a successful read is checked
			}
			if !strings.Contains(string(data), "DEVICE,0,") || !strings.HasSuffix(string(data), "\n") {
				readErrs <- assert.AnError
				return
			}
		}
	}()

	wg.Wait()
	select {
	case err := <-readErrs:
		assert.NoError(t, err)
	default:
	}
}

// A tick that cannot write (its output directory was removed out from
// under it) records a failure and still observes a duration sample.
func TestExporter_FailedTickIncrementsFailureCounter(t *testing.T) {
	dir := t.TempDir()
	shared := state.New(1)
	shared.Slot(0).Update(connectedSnapshot().Devices[0])

	e := New(shared, dir, 10*time.Millisecond, testLogger())
	require.NoError(t, os.RemoveAll(dir))

	require.Error(t, e.tick())
	assert.Equal(t, float64(1), testutil.ToFloat64(e.failures))
	assert.Equal(t, 1, testutil.CollectAndCount(e.duration))
	assert.Len(t, e.Collectors(), 2)
}
