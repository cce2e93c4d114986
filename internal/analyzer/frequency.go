package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/doolan/logicarray/internal/sampleview"
)

// FrequencyWindow is the trailing sample count used for the per-channel
// frequency-band spectrum, the same power-of-two window CountTransitions'
// sibling phase estimator uses for its own transform.
const FrequencyWindow = 2048

// FrequencyBandCount is the number of fixed bands a channel's spectrum is
// folded into, spanning DC through the microwave range so the same
// analysis applies whether a channel is toggled by hand or driven by a
// clock in the gigahertz range.
const FrequencyBandCount = 12

// frequencyBand is a band in Hz. ComputeFrequencyBands averages the FFT
// bins from floor(low/df) through floor(high/df), both ends included
// (df = sampleRateHz/FrequencyWindow, bin 0 never included).
type frequencyBand struct {
	low, high float64
}

// frequencyBands are the fixed analysis bands, in Hz.
var frequencyBands = [FrequencyBandCount]frequencyBand{
	{0, 100},
	{500, 600},
	{2_000, 6_000},
	{10_000, 50_000},
	{100_000, 200_000},
	{500_000, 600_000},
	{800_000, 1_200_000},
	{10_000_000, 50_000_000},
	{100_000_000, 200_000_000},
	{500_000_000, 600_000_000},
	{800_000_000, 1_200_000_000},
	{1_940_000_000, 5_310_000_000},
}

// ComputeFrequencyBands returns the mean spectral magnitude in each of the
// fixed frequency bands for one channel, derived from a Hann-windowed FFT
// of the trailing FrequencyWindow samples. A view shorter than
// FrequencyWindow yields all-zero bands, matching the "not enough samples
// yet" case of the same analysis run against a live capture.
func ComputeFrequencyBands(v sampleview.View, sampleRateHz float64) [FrequencyBandCount]float64 {
	var bands [FrequencyBandCount]float64

	n := v.Len()
	if n < FrequencyWindow || sampleRateHz <= 0 {
		return bands
	}

	window := v.Slice(n-FrequencyWindow, n)
	signal := make([]complex128, FrequencyWindow)
	for i := 0; i < FrequencyWindow; i++ {
		hann := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(FrequencyWindow-1)))
		signal[i] = complex(float64(window.Bit(i))*hann, 0)
	}

	spectrum := fft(signal)
	half := FrequencyWindow / 2
	magnitudes := make([]float64, half+1)
	for k := 0; k <= half; k++ {
		magnitudes[k] = cmplx.Abs(spectrum[k])
	}

	nyquist := sampleRateHz / 2
	df := sampleRateHz / float64(FrequencyWindow)

	for b, band := range frequencyBands {
		if band.low > nyquist {
			continue
		}
		high := math.Min(band.high, nyquist)

		startBin := int(band.low / df)
		if startBin < 1 {
			startBin = 1
		}
		endBin := int(high / df)
		if endBin > len(magnitudes)-1 {
			endBin = len(magnitudes) - 1
		}
		if endBin < startBin {
			continue
		}

		var sum float64
		count := 0
		for bin := startBin; bin <= endBin; bin++ {
			sum += magnitudes[bin]
			count++
		}
		if count > 0 {
			bands[b] = sum / float64(count)
		}
	}

	return bands
}

