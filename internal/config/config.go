// Package config loads and validates per-device configuration files: plain
// text, one key=value per line, # comments ignored. Values outside the
// documented range are silently rejected; missing keys keep their previous
// value, so a DeviceConfig is always built by applying a file on top of a
// prior value rather than parsed from scratch.
package config

import "strconv"

const ChannelCount = 32

// DeviceConfig is the validated, in-range configuration for one device.
type DeviceConfig struct {
	SampleRateCode    int // 0..=12
	SampleDepth       int // 1_000..=32_000_000
	ScanIntervalMs    int // 10..=5_000
	VoltageThreshold  float64 // 0.5..=5.0
	TriggerEnabled    bool
	TriggerChannel    int // 0..=31
	TriggerRisingEdge bool
	Enabled           bool
	Name              string
	ChannelNames      [ChannelCount]string
	Path              string
}

// Default returns a DeviceConfig with the documented valid defaults. A
// newly discovered device starts here before any config file is applied.
func Default(path string) DeviceConfig {
	var cfg DeviceConfig
	cfg.SampleRateCode = 0
	cfg.SampleDepth = 1_000_000
	cfg.ScanIntervalMs = 100
	cfg.VoltageThreshold = 1.8
	cfg.TriggerEnabled = false
	cfg.TriggerChannel = 0
	cfg.TriggerRisingEdge = true
	cfg.Enabled = true
	cfg.Name = "device"
	cfg.Path = path
	for i := range cfg.ChannelNames {
		cfg.ChannelNames[i] = defaultChannelName(i)
	}
	return cfg
}

func defaultChannelName(i int) string {
	return "CH" + strconv.Itoa(i)
}

// Diff reports which fields changed between two configs that matter to the
// Device Worker's re-apply decision (§4.3 step 1): rate, depth, threshold,
// trigger-enable, trigger-channel, trigger-rising. Name and channel-name
// changes never require a device re-apply.
type Diff struct {
	RateChanged      bool
	DepthChanged     bool
	ThresholdChanged bool
	TriggerChanged   bool
}

// Changed reports whether any field requiring a device re-apply changed.
func (d Diff) Changed() bool {
	return d.RateChanged || d.DepthChanged || d.ThresholdChanged || d.TriggerChanged
}

// Compare computes the re-apply-relevant diff between old and new.
func Compare(old, next DeviceConfig) Diff {
	return Diff{
		RateChanged:      old.SampleRateCode != next.SampleRateCode,
		DepthChanged:     old.SampleDepth != next.SampleDepth,
		ThresholdChanged: old.VoltageThreshold != next.VoltageThreshold,
		TriggerChanged: old.TriggerEnabled != next.TriggerEnabled ||
			old.TriggerChannel != next.TriggerChannel ||
			old.TriggerRisingEdge != next.TriggerRisingEdge,
	}
}
