// Package metrics exposes the shared analyzer state as Prometheus metrics
// over a scrape endpoint, reading directly from state.Shared rather than
// through a template.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/doolan/logicarray/internal/state"
)

// Collector implements prometheus.Collector by reading a fresh
// state.Shared snapshot on every scrape, the same pull-on-read discipline
// the Exporter uses for its output files.
type Collector struct {
	shared *state.Shared

	connected         *prometheus.Desc
	active            *prometheus.Desc
	totalCaptures     *prometheus.Desc
	totalErrors       *prometheus.Desc
	consecutiveErrors *prometheus.Desc
	activeDevices     *prometheus.Desc
	cumulativeTrans   *prometheus.Desc
	phaseVariance     *prometheus.Desc
}

// NewCollector builds a Collector over shared. Call prometheus.MustRegister
// on the result (or register through a dedicated registry) before serving.
func NewCollector(shared *state.Shared) *Collector {
	return &Collector{
		shared: shared,
		connected: prometheus.NewDesc(
			"logicarray_device_connected", "Whether the device is currently connected.",
			[]string{"device"}, nil),
		active: prometheus.NewDesc(
			"logicarray_device_active", "Whether the device's worker is still active.",
			[]string{"device"}, nil),
		totalCaptures: prometheus.NewDesc(
			"logicarray_device_captures_total", "Total completed capture cycles.",
			[]string{"device"}, nil),
		totalErrors: prometheus.NewDesc(
			"logicarray_device_errors_total", "Total capture errors.",
			[]string{"device"}, nil),
		consecutiveErrors: prometheus.NewDesc(
			"logicarray_device_consecutive_errors", "Current consecutive error streak.",
			[]string{"device"}, nil),
		activeDevices: prometheus.NewDesc(
			"logicarray_active_devices", "Number of devices with an active worker.",
			nil, nil),
		cumulativeTrans: prometheus.NewDesc(
			"logicarray_channel_transitions_total", "Cumulative transitions observed on a channel.",
			[]string{"device", "channel"}, nil),
		phaseVariance: prometheus.NewDesc(
			"logicarray_channel_phase_variance", "Most recent phase variance for a channel.",
			[]string{"device", "channel"}, nil),
	}
}

// Describe sends every metric descriptor this collector can emit.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.active
	ch <- c.totalCaptures
	ch <- c.totalErrors
	ch <- c.consecutiveErrors
	ch <- c.activeDevices
	ch <- c.cumulativeTrans
	ch <- c.phaseVariance
}

// Collect gathers one snapshot of shared state and emits it as metrics.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.shared.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.activeDevices, prometheus.GaugeValue, float64(snap.ActiveCount))

	for idx, dev := range snap.Devices {
		label := deviceLabel(idx)

		ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolValue(dev.Connected), label)
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, boolValue(dev.Active), label)
		ch <- prometheus.MustNewConstMetric(c.totalCaptures, prometheus.CounterValue, float64(dev.TotalCaptures), label)
		ch <- prometheus.MustNewConstMetric(c.totalErrors, prometheus.CounterValue, float64(dev.TotalErrors), label)
		ch <- prometheus.MustNewConstMetric(c.consecutiveErrors, prometheus.GaugeValue, float64(dev.ConsecutiveErrors), label)

		if !dev.Connected {
			continue
		}
		for ch2 := 0; ch2 < state.ChannelCount; ch2++ {
			m := dev.Channels[ch2]
			if m.CumulativeTransitions == 0 {
				continue
			}
			chLabel := channelLabel(ch2)
			ch <- prometheus.MustNewConstMetric(c.cumulativeTrans, prometheus.CounterValue, float64(m.CumulativeTransitions), label, chLabel)
			ch <- prometheus.MustNewConstMetric(c.phaseVariance, prometheus.GaugeValue, m.PhaseVariance, label, chLabel)
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func deviceLabel(idx int) string { return strconv.Itoa(idx) }
func channelLabel(ch int) string { return strconv.Itoa(ch) }
