package analyzer

import "github.com/doolan/logicarray/internal/sampleview"

// timeWindow is the normalization constant from the activity formula:
// activity = min(100, (1000*transitions) / (sliceLen*sampleRate*timeWindow)).
const timeWindow = 0.001

// Slice is one contiguous run of a capture's worth of transition activity.
type Slice struct {
	Length      int
	Transitions int
	Activity    float64 // 0..=100
}

// Slices partitions v into count contiguous runs of floor(N/count) samples,
// with the trailing slice absorbing the remainder, and computes a
// transition count and clamped activity level for each.
func Slices(v sampleview.View, count int, sampleRateHz float64) []Slice {
	n := v.Len()
	if count <= 0 {
		return nil
	}

	base := n / count
	out := make([]Slice, count)
	start := 0
	for i := 0; i < count; i++ {
		length := base
		if i == count-1 {
			length = n - start
		}
		end := start + length
		sv := v.Slice(start, end)
		res := CountTransitions(sv)
		out[i] = Slice{
			Length:      length,
			Transitions: res.Transitions,
			Activity:    activityLevel(res.Transitions, length, sampleRateHz),
		}
		start = end
	}
	return out
}

// activityLevel normalizes a slice's transition count against its duration
// and clamps the result to [0,100].
func activityLevel(transitions, length int, sampleRateHz float64) float64 {
	if length <= 0 || sampleRateHz <= 0 {
		return 0
	}
	activity := (1000.0 * float64(transitions)) / (float64(length) * sampleRateHz * timeWindow)
	if activity > 100 {
		return 100
	}
	if activity < 0 {
		return 0
	}
	return activity
}
