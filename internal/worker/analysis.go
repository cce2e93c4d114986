package worker

import (
	"context"
	"time"

	"github.com/doolan/logicarray/internal/analyzer"
	"github.com/doolan/logicarray/internal/sampleview"
	"github.com/doolan/logicarray/internal/state"
	"golang.org/x/sync/errgroup"
)

// sliceCount is the number of time slices the exporter's time-sliced
// activity output expects per channel (§6.2.2: slice0..slice4).
const sliceCount = 5

// phaseChannels is the number of leading channels that carry phase
// statistics (§4.1.3).
const phaseChannels = 12

// recentWindow is how long a channel stays in the "recently changed" set.
const recentWindow = 3 * time.Second

// analyzeCapture runs the Channel Analyzer over every channel of one
// capture and folds the result into prev, producing the DeviceState that
// becomes this cycle's published slot value. Phase statistics and
// frequency-band spectra for channels 0..11 are fanned out across a
// bounded worker pool and joined before returning, so the result is
// identical whether or not the pool runs any given channel concurrently
// with another.
func analyzeCapture(ctx context.Context, prev state.DeviceState, words []uint32, cycleTime time.Time, sampleRateHz float64) state.DeviceState {
	next := prev
	next.Connected = true
	next.TotalCaptures = prev.TotalCaptures + 1
	next.ConsecutiveErrors = 0
	next.LastCaptureTime = cycleTime

	if next.RecentlyChanged == nil {
		next.RecentlyChanged = make(map[int]time.Time)
	} else {
		clone := make(map[int]time.Time, len(next.RecentlyChanged))
		for k, v := range next.RecentlyChanged {
			clone[k] = v
		}
		next.RecentlyChanged = clone
	}

	phases := make([]analyzer.Phase, phaseChannels)
	freqBands := make([][analyzer.FrequencyBandCount]float64, phaseChannels)
	g, gctx := errgroup.WithContext(ctx)
	for ch := 0; ch < phaseChannels; ch++ {
		ch := ch
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			view := sampleview.New(words, uint(ch))
			phases[ch] = analyzer.ComputePhase(view)
			freqBands[ch] = analyzer.ComputeFrequencyBands(view, sampleRateHz)
			return nil
		})
	}
	// A cancelled context only stops new phase work from starting; it is
	// not itself a capture failure, so the error is intentionally ignored
	// here and the cycle still publishes whatever phases/bands completed.
	_ = g.Wait()

	for ch := 0; ch < state.ChannelCount; ch++ {
		view := sampleview.New(words, uint(ch))
		trans := analyzer.CountTransitions(view)
		slices := analyzer.Slices(view, sliceCount, sampleRateHz)

		m := next.Channels[ch]
		if trans.HasEnd {
			m.CurrentLevel = trans.EndState
		}
		m.TransitionsThisCapture = trans.Transitions
		m.CumulativeTransitions += trans.Transitions
		if trans.Transitions > 0 {
			m.LastChangeTime = cycleTime
			next.RecentlyChanged[ch] = cycleTime
		}

		m.SliceTransitions = make([]int, len(slices))
		m.SliceActivity = make([]float64, len(slices))
		for i, s := range slices {
			m.SliceTransitions[i] = s.Transitions
			m.SliceActivity[i] = s.Activity
		}

		if ch < phaseChannels {
			m.MeanPhase = phases[ch].MeanPhase
			m.PhaseVariance = phases[ch].PhaseVariance
			m.FrequencyBands = freqBands[ch]
		}

		next.Channels[ch] = m
	}

	expireRecentlyChanged(next.RecentlyChanged, cycleTime)

	return next
}

// expireRecentlyChanged removes entries older than recentWindow, in place.
func expireRecentlyChanged(set map[int]time.Time, now time.Time) {
	for ch, t := range set {
		if now.Sub(t) > recentWindow {
			delete(set, ch)
		}
	}
}
