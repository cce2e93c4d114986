package analyzer

import (
	"testing"

	"github.com/doolan/logicarray/internal/sampleview"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCountTransitions_E1SingleToggle(t *testing.T) {
	words := []uint32{0x00, 0x00, 0x01, 0x01, 0x01, 0x00, 0x00, 0x01}
	res := CountTransitions(sampleview.New(words, 0))
	assert.Equal(t, 3, res.Transitions)
	assert.Equal(t, byte(1), res.EndState)

	for ch := uint(1); ch < 32; ch++ {
		res := CountTransitions(sampleview.New(words, ch))
		assert.Equalf(t, 0, res.Transitions, "channel %d", ch)
	}
}

func TestCountTransitions_E2AllHigh(t *testing.T) {
	words := make([]uint32, 16)
	for i := range words {
		words[i] = 0xFFFFFFFF
	}
	for ch := uint(0); ch < 32; ch++ {
		res := CountTransitions(sampleview.New(words, ch))
		assert.Equal(t, 0, res.Transitions)
		assert.Equal(t, byte(1), res.EndState)
	}
}

func TestCountTransitions_EdgeCases(t *testing.T) {
	assert.Equal(t, 0, CountTransitions(sampleview.New(nil, 0)).Transitions)

	one := CountTransitions(sampleview.New([]uint32{1}, 0))
	assert.Equal(t, 0, one.Transitions)
	assert.Equal(t, byte(1), one.EndState)
}

// Transition counting is exact: the count equals the number of adjacent
// indices whose c-th bit differs, for any channel and buffer.
func TestCountTransitions_MatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOf(rapid.Uint32()).Draw(t, "words")
		channel := rapid.UintRange(0, 31).Draw(t, "channel")

		got := CountTransitions(sampleview.New(words, channel)).Transitions

		want := 0
		for i := 1; i < len(words); i++ {
			prev := (words[i-1] >> channel) & 1
			cur := (words[i] >> channel) & 1
			if prev != cur {
				want++
			}
		}

		assert.Equal(t, want, got)
	})
}
