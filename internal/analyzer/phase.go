package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/doolan/logicarray/internal/sampleview"
)

// PhaseWindow is the trailing sample count used by the analytic-signal
// phase estimator. Must be a power of two for the radix-2 transform.
const PhaseWindow = 2048

// Phase is the instantaneous-phase summary for one channel over one capture.
type Phase struct {
	MeanPhase     float64 // radians, (-pi, pi]
	PhaseVariance float64 // 0..=1
}

// ComputePhase produces phase statistics for a channel's view. When the view
// is at least PhaseWindow samples long, the trailing window is analyzed via
// a Hilbert transform built from a radix-2 DFT; otherwise a duty-cycle
// fallback is used.
func ComputePhase(v sampleview.View) Phase {
	n := v.Len()
	if n < PhaseWindow {
		return dutyCycleFallback(v)
	}
	return analyticSignalPhase(v.Slice(n-PhaseWindow, n))
}

func dutyCycleFallback(v sampleview.View) Phase {
	n := v.Len()
	if n == 0 {
		return Phase{}
	}
	d := float64(v.HighCount()) / float64(n)
	return Phase{
		MeanPhase:     d * 2 * math.Pi,
		PhaseVariance: d * (1 - d),
	}
}

func analyticSignalPhase(v sampleview.View) Phase {
	const w = PhaseWindow

	signal := make([]float64, w)
	mean := 0.0
	for i := 0; i < w; i++ {
		signal[i] = float64(v.Bit(i))
		mean += signal[i]
	}
	mean /= float64(w)

	windowed := make([]complex128, w)
	for i := 0; i < w; i++ {
		h := hammingWindow(i, w)
		windowed[i] = complex((signal[i]-mean)*h, 0)
	}

	spectrum := fft(windowed)

	// Analytic signal: double positive frequencies (bins 1..w/2-1), zero the
	// negative ones (bins w/2+1..w-1); DC and Nyquist bins are untouched.
	half := w / 2
	for k := 1; k < half; k++ {
		spectrum[k] *= 2
	}
	for k := half + 1; k < w; k++ {
		spectrum[k] = 0
	}

	analytic := ifft(spectrum)

	phases := make([]float64, w)
	for i := 0; i < w; i++ {
		phases[i] = cmplx.Phase(analytic[i])
	}
	unwrapped := unwrap(phases)

	return circularStats(unwrapped)
}

// hammingWindow evaluates the Hamming window coefficient for sample i of n.
func hammingWindow(i, n int) float64 {
	return 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}

// unwrap adjusts a phase sequence so that adjacent differences never exceed
// pi in magnitude, adding/subtracting multiples of 2*pi as needed.
func unwrap(phases []float64) []float64 {
	out := make([]float64, len(phases))
	if len(phases) == 0 {
		return out
	}
	out[0] = phases[0]
	for i := 1; i < len(phases); i++ {
		delta := phases[i] - phases[i-1]
		for delta > math.Pi {
			delta -= 2 * math.Pi
		}
		for delta < -math.Pi {
			delta += 2 * math.Pi
		}
		out[i] = out[i-1] + delta
	}
	return out
}

// circularStats computes the circular mean (via atan2 of summed sin/cos of
// the raw, wrapped phase) and the variance of the unwrapped phase sequence
// normalized to [0,1] by division by pi^2.
func circularStats(unwrapped []float64) Phase {
	n := len(unwrapped)
	if n == 0 {
		return Phase{}
	}

	var sumSin, sumCos, sumPhase float64
	for _, p := range unwrapped {
		sumSin += math.Sin(p)
		sumCos += math.Cos(p)
		sumPhase += p
	}
	meanPhase := math.Atan2(sumSin, sumCos)
	mu := sumPhase / float64(n)

	var variance float64
	for _, p := range unwrapped {
		d := p - mu
		variance += d * d
	}
	variance = (variance / float64(n)) / (math.Pi * math.Pi)
	if variance < 0 {
		variance = 0
	}
	if variance > 1 {
		variance = 1
	}

	return Phase{MeanPhase: meanPhase, PhaseVariance: variance}
}

// fft computes the forward discrete Fourier transform of x, whose length
// must be a power of two, using a recursive radix-2 Cooley-Tukey scheme.
func fft(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		out := make([]complex128, n)
		copy(out, x)
		return out
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}

	fe := fft(even)
	fo := fft(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		twiddle := cmplx.Rect(1, angle) * fo[k]
		out[k] = fe[k] + twiddle
		out[k+n/2] = fe[k] - twiddle
	}
	return out
}

// ifft computes the inverse discrete Fourier transform via conjugation
// around the forward transform, matching the standard FFT/IFFT duality.
func ifft(x []complex128) []complex128 {
	n := len(x)
	conj := make([]complex128, n)
	for i, v := range x {
		conj[i] = cmplx.Conj(v)
	}
	out := fft(conj)
	inv := 1 / float64(n)
	for i, v := range out {
		out[i] = cmplx.Conj(v) * complex(inv, 0)
	}
	return out
}
