package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/doolan/logicarray/internal/faults"
)

// Load applies the key=value lines in the file at path on top of prev,
// returning the merged config. Malformed lines and out-of-range values are
// silently rejected (the previous value is kept); only a file-open failure
// is returned as an error.
func Load(path string, prev DeviceConfig) (DeviceConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return prev, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := prev
	cfg.Path = path
	applyLines(f, &cfg)
	return cfg, nil
}

// applyLines scans r for key=value lines and mutates cfg in place,
// ignoring blank lines, #-comments, and any line that fails to parse.
func applyLines(r io.Reader, cfg *DeviceConfig) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue // faults.ErrConfigParse: malformed line, prior value retained
		}
		applyKey(cfg, strings.TrimSpace(key), strings.TrimSpace(value))
	}
}

func applyKey(cfg *DeviceConfig, key, value string) {
	switch {
	case key == "sample_rate_code":
		if v, ok := parseIntRange(value, 0, 12); ok {
			cfg.SampleRateCode = v
		}
	case key == "sample_depth":
		if v, ok := parseIntRange(value, 1_000, 32_000_000); ok {
			cfg.SampleDepth = v
		}
	case key == "scan_interval_ms":
		if v, ok := parseIntRange(value, 10, 5_000); ok {
			cfg.ScanIntervalMs = v
		}
	case key == "voltage_threshold":
		if v, ok := parseFloatRange(value, 0.5, 5.0); ok {
			cfg.VoltageThreshold = v
		}
	case key == "enable_trigger":
		if v, ok := parseBool(value); ok {
			cfg.TriggerEnabled = v
		}
	case key == "trigger_channel":
		if v, ok := parseIntRange(value, 0, 31); ok {
			cfg.TriggerChannel = v
		}
	case key == "trigger_rising_edge":
		if v, ok := parseBool(value); ok {
			cfg.TriggerRisingEdge = v
		}
	case key == "enabled":
		if v, ok := parseBool(value); ok {
			cfg.Enabled = v
		}
	case key == "name":
		if value != "" {
			cfg.Name = value
		}
	case strings.HasPrefix(key, "channel_"):
		if n, ok := parseIntRange(strings.TrimPrefix(key, "channel_"), 0, ChannelCount-1); ok && value != "" {
			cfg.ChannelNames[n] = value
		}
	}
	// Unrecognized keys are ignored, matching faults.ErrConfigParse policy.
}

func parseIntRange(s string, lo, hi int) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

func parseFloatRange(s string, lo, hi float64) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	default:
		return false, false
	}
}

// Validate reports faults.ErrConfigParse if any field of cfg lies outside
// its documented range; it is used when constructing a config from
// scratch (not via Load's field-by-field merge) to fail the whole value.
func Validate(cfg DeviceConfig) error {
	switch {
	case cfg.SampleRateCode < 0 || cfg.SampleRateCode > 12:
		return fmt.Errorf("config: sample_rate_code %d out of range: %w", cfg.SampleRateCode, faults.ErrConfigParse)
	case cfg.SampleDepth < 1_000 || cfg.SampleDepth > 32_000_000:
		return fmt.Errorf("config: sample_depth %d out of range: %w", cfg.SampleDepth, faults.ErrConfigParse)
	case cfg.ScanIntervalMs < 10 || cfg.ScanIntervalMs > 5_000:
		return fmt.Errorf("config: scan_interval_ms %d out of range: %w", cfg.ScanIntervalMs, faults.ErrConfigParse)
	case cfg.VoltageThreshold < 0.5 || cfg.VoltageThreshold > 5.0:
		return fmt.Errorf("config: voltage_threshold %.2f out of range: %w", cfg.VoltageThreshold, faults.ErrConfigParse)
	case cfg.TriggerChannel < 0 || cfg.TriggerChannel > 31:
		return fmt.Errorf("config: trigger_channel %d out of range: %w", cfg.TriggerChannel, faults.ErrConfigParse)
	}
	return nil
}
