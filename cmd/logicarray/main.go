// Command logicarray acquires logic samples from an array of vendor analyzer
// devices, runs the per-channel transition, activity and phase analysis,
// and exports the results as a set of flat text files for external tools
// to consume.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/doolan/logicarray/internal/driver"
	"github.com/doolan/logicarray/internal/logx"
	"github.com/doolan/logicarray/internal/metrics"
	"github.com/doolan/logicarray/internal/state"
	"github.com/doolan/logicarray/internal/supervisor"
)

// maxDevices is the hard ceiling on configured devices (§6.4).
const maxDevices = 12

func main() {
	outputDir := flag.String("output-dir", "output", "directory the exporter writes its artifact files to")
	configDir := flag.String("config-dir", "config", "directory containing per-device config files")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	exportInterval := flag.Duration("export-interval", 500*time.Millisecond, "exporter tick interval")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	groupedConnection := flag.Bool("grouped-connection", false, "split devices into two halves that take turns capturing, for a shared USB bus")
	groupSize := flag.Int("group-size", 6, "number of devices in the first group when --grouped-connection is set")
	groupSwitchDelay := flag.Duration("group-switch-delay", 500*time.Millisecond, "how long each group captures before switching, when --grouped-connection is set")

	flag.Parse()

	deviceCount := maxDevices
	vendorLibraryPath := ""
	if flag.NArg() >= 1 {
		if n, err := parseDeviceCount(flag.Arg(0)); err == nil {
			deviceCount = n
		}
	}
	if flag.NArg() >= 2 {
		vendorLibraryPath = flag.Arg(1)
	}

	logger := logx.New(logx.Options{Level: *logLevel})
	os.Exit(run(deviceCount, vendorLibraryPath, *configDir, *outputDir, *exportInterval, *metricsAddr, logger,
		*groupedConnection, *groupSize, *groupSwitchDelay))
}

func parseDeviceCount(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return clampDeviceCount(n), nil
}

func clampDeviceCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxDevices {
		return maxDevices
	}
	return n
}

func run(deviceCount int, vendorLibraryPath, configDir, outputDir string, exportInterval time.Duration, metricsAddr string, logger *log.Logger,
	groupedConnection bool, groupSize int, groupSwitchDelay time.Duration) int {
	shared := state.New(deviceCount)
	sv := supervisor.New(supervisor.Options{
		DeviceCount:       deviceCount,
		VendorLibraryPath: vendorLibraryPath,
		ConfigDir:         configDir,
		OutputDir:         outputDir,
		ExportInterval:    exportInterval,
		NewAdapter:        newVendorAdapter,
		Logger:            logger,
		Shared:            shared,
		GroupedConnection: groupedConnection,
		GroupSize:         groupSize,
		GroupSwitchDelay:  groupSwitchDelay,
	})

	if metricsAddr != "" {
		metricsServer := metrics.New(metricsAddr, shared, sv.ExporterCollectors()...)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
		logger.Info("metrics listening", "addr", metricsAddr)
	}

	return sv.Run(context.Background())
}

// newVendorAdapter binds one device index to the vendor library. A
// construction failure (e.g. a missing library path) is deferred to the
// adapter's first Open call so the supervisor's uniform connect-and-skip
// policy handles it the same way as any other ConnectFail.
func newVendorAdapter(index int, vendorLibraryPath string) driver.Adapter {
	adapter, err := driver.NewRealAdapter(index, vendorLibraryPath)
	if err != nil {
		return failedAdapter{err: err}
	}
	return adapter
}

// failedAdapter satisfies driver.Adapter but fails every call with the
// construction error, so a device whose vendor library could not be bound
// is simply skipped rather than crashing the process.
type failedAdapter struct {
	err error
}

func (f failedAdapter) Open(ctx context.Context) (driver.Identity, error) {
	return driver.Identity{}, f.err
}
func (f failedAdapter) Initialize() error                              { return f.err }
func (f failedAdapter) SetSampleRate(code int) error                   { return f.err }
func (f failedAdapter) SetSampleDepth(depth int) error                 { return f.err }
func (f failedAdapter) SetVoltageThreshold(v float64) error            { return f.err }
func (f failedAdapter) ConfigureTrigger(cfg driver.TriggerConfig) error { return f.err }
func (f failedAdapter) SetPreTrigger(percent int) error                { return f.err }
func (f failedAdapter) StartCapture() error                            { return f.err }
func (f failedAdapter) WaitForCapture(ctx context.Context, timeout time.Duration) error {
	return f.err
}
func (f failedAdapter) ReadSamples(buf []uint32) error              { return f.err }
func (f failedAdapter) ResetAndReconnect(ctx context.Context) error { return f.err }
func (f failedAdapter) Close() error                                { return nil }
