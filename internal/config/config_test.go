package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.cfg")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesRecognizedKeys(t *testing.T) {
	path := writeConfig(t, "sample_depth=5000\n# a comment\nenable_trigger=true\nchannel_3=SPI_CLK\n")

	cfg, err := Load(path, Default(path))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.SampleDepth)
	assert.True(t, cfg.TriggerEnabled)
	assert.Equal(t, "SPI_CLK", cfg.ChannelNames[3])
}

func TestLoad_OutOfRangeValuesAreRejectedSilently(t *testing.T) {
	prev := Default("")
	path := writeConfig(t, "sample_depth=999999999\nscan_interval_ms=1\n")

	cfg, err := Load(path, prev)
	require.NoError(t, err)

	assert.Equal(t, prev.SampleDepth, cfg.SampleDepth)
	assert.Equal(t, prev.ScanIntervalMs, cfg.ScanIntervalMs)
}

func TestLoad_MalformedLineKeepsPriorValue(t *testing.T) {
	prev := Default("")
	prev.SampleDepth = 42
	path := writeConfig(t, "not a valid line\nsample_depth\n")

	cfg, err := Load(path, prev)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.SampleDepth)
}

// Changing only a channel name causes no apply-relevant diff; changing
// sample_depth causes exactly one changed field.
func TestCompare_ChannelNameOnlyDoesNotTriggerApply(t *testing.T) {
	old := Default("")
	next := old
	next.ChannelNames[0] = "Foo"

	diff := Compare(old, next)
	assert.False(t, diff.Changed())
}

func TestCompare_SampleDepthTriggersApply(t *testing.T) {
	old := Default("")
	next := old
	next.SampleDepth = old.SampleDepth + 1

	diff := Compare(old, next)
	assert.True(t, diff.Changed())
	assert.True(t, diff.DepthChanged)
	assert.False(t, diff.RateChanged)
	assert.False(t, diff.ThresholdChanged)
	assert.False(t, diff.TriggerChanged)
}

func TestValidate_RejectsOutOfRangeVoltage(t *testing.T) {
	cfg := Default("")
	cfg.VoltageThreshold = 10
	assert.Error(t, Validate(cfg))
}

func TestValidate_AcceptsDefault(t *testing.T) {
	assert.NoError(t, Validate(Default("")))
}
