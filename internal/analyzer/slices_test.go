package analyzer

import (
	"testing"

	"github.com/doolan/logicarray/internal/sampleview"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSlices_E3FiveSlices(t *testing.T) {
	words := make([]uint32, 50)
	for i := range words {
		words[i] = uint32(i % 2)
	}
	slices := Slices(sampleview.New(words, 0), 5, 1_000_000)
	assert.Len(t, slices, 5)
	for _, s := range slices {
		assert.Equal(t, 10, s.Length)
		assert.Equal(t, 9, s.Transitions)
	}
}

func TestSlices_E2AllHighZeroActivity(t *testing.T) {
	words := make([]uint32, 16)
	for i := range words {
		words[i] = 0xFFFFFFFF
	}
	for ch := uint(0); ch < 32; ch++ {
		slices := Slices(sampleview.New(words, ch), 4, 1_000_000)
		for _, s := range slices {
			assert.Zero(t, s.Activity)
		}
	}
}

// The slice partition is total and non-overlapping: slice lengths sum to
// N and the trailing slice absorbs the remainder.
func TestSlices_PartitionIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.Uint32(), 1, 500).Draw(t, "words")
		count := rapid.IntRange(1, 16).Draw(t, "count")

		slices := Slices(sampleview.New(words, 0), count, 1_000_000)
		assert.Len(t, slices, count)

		sum := 0
		for _, s := range slices {
			sum += s.Length
		}
		assert.Equal(t, len(words), sum)

		base := len(words) / count
		expectedLast := len(words) - (count-1)*base
		assert.Equal(t, expectedLast, slices[count-1].Length)
		for i := 0; i < count-1; i++ {
			assert.Equal(t, base, slices[i].Length)
		}
	})
}

// Activity is always clamped to [0,100].
func TestSlices_ActivityClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		transitions := rapid.IntRange(0, 1_000_000).Draw(t, "transitions")
		length := rapid.IntRange(1, 1_000_000).Draw(t, "length")
		sampleRate := rapid.Float64Range(1, 1e9).Draw(t, "sampleRate")

		got := activityLevel(transitions, length, sampleRate)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	})
}
