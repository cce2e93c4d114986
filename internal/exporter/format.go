package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/doolan/logicarray/internal/analyzer"
	"github.com/doolan/logicarray/internal/state"
)

// phaseChannels is the number of leading channels carrying phase and
// time-sliced statistics in the exported files (§6.2.2, §6.2.3).
const phaseChannels = 12

// quantizeActivity maps time-since-last-change to the four discrete levels
// logic_data.txt reports (§6.2.1).
func quantizeActivity(age time.Duration) int {
	switch {
	case age < 500*time.Millisecond:
		return 100
	case age < 1000*time.Millisecond:
		return 75
	case age < 2000*time.Millisecond:
		return 50
	default:
		return 25
	}
}

// renderLogicData builds the full contents of logic_data.txt for one
// snapshot, taken at "now".
func renderLogicData(snap state.Snapshot, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Neural Monitor Data - Updated: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("# Format: [device_id],[serial],[model],[channel_id],[state],[transitions],[active]\n\n")

	for id, dev := range snap.Devices {
		if !dev.Connected {
			continue
		}
		fmt.Fprintf(&b, "DEVICE,%d,%s,%s,%d\n", id, dev.Serial, dev.Model, dev.TotalCaptures)
		for ch := 0; ch < state.ChannelCount; ch++ {
			m := dev.Channels[ch]
			if m.CumulativeTransitions <= 0 {
				continue
			}
			age := now.Sub(m.LastChangeTime)
			fmt.Fprintf(&b, "CHANNEL,%d,%s,%d,%d,%d,%d\n",
				ch, dev.ChannelNames[ch], m.CurrentLevel, m.TransitionsThisCapture, m.CumulativeTransitions, quantizeActivity(age))
		}
		for ch := 0; ch < phaseChannels; ch++ {
			m := dev.Channels[ch]
			fmt.Fprintf(&b, "PHASE_DATA,%d,%d,%.6f,%.6f\n", id, ch, m.MeanPhase, m.PhaseVariance)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderTimeSlicedData builds the full contents of time_sliced_data.txt.
func renderTimeSlicedData(snap state.Snapshot) string {
	var b strings.Builder
	b.WriteString("# Time-sliced neural activity data\n")
	b.WriteString("# Format:device_id,channel_id,slice0..slice4_activity\n")

	for id, dev := range snap.Devices {
		if !dev.Connected {
			continue
		}
		for ch := 0; ch < phaseChannels; ch++ {
			m := dev.Channels[ch]
			fmt.Fprintf(&b, "%d,%d", id, ch)
			for i := 0; i < 5; i++ {
				activity := 0.0
				if i < len(m.SliceActivity) {
					activity = m.SliceActivity[i]
				}
				fmt.Fprintf(&b, ",%.1f", activity)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderFrequencyData builds the full contents of frequency_data.txt: one
// header row naming each of the fixed frequency bands, then one row per
// connected device/channel giving that channel's mean spectral magnitude
// in each band.
func renderFrequencyData(snap state.Snapshot) string {
	var b strings.Builder
	b.WriteString("device,channel")
	for band := 0; band < analyzer.FrequencyBandCount; band++ {
		fmt.Fprintf(&b, ",band%d", band)
	}
	b.WriteString("\n")

	for id, dev := range snap.Devices {
		if !dev.Connected {
			continue
		}
		for ch := 0; ch < phaseChannels; ch++ {
			fmt.Fprintf(&b, "%d,%d", id, ch)
			for _, mag := range dev.Channels[ch].FrequencyBands {
				fmt.Fprintf(&b, ",%.2f", mag)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderPhaseData builds the full contents of phase_data.txt.
func renderPhaseData(snap state.Snapshot, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Phase Data - Updated: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("# Format: [device_id],[serial],[model],[channel_id],[meanPhase],[phaseVariance]\n\n")

	for id, dev := range snap.Devices {
		if !dev.Connected {
			continue
		}
		fmt.Fprintf(&b, "DEVICE,%d,%s, %s,%d\n", id, dev.Serial, dev.Model, dev.TotalCaptures)
		for ch := 0; ch < phaseChannels; ch++ {
			m := dev.Channels[ch]
			fmt.Fprintf(&b, "PHASE,%d,%s, %.6f,%.6f\n", ch, dev.ChannelNames[ch], m.MeanPhase, m.PhaseVariance)
		}
	}
	return b.String()
}
