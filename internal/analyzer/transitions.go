// Package analyzer implements the pure per-channel signal analysis: transition
// counting, time-sliced activity aggregation, and instantaneous phase
// statistics over a bit-packed sample capture.
package analyzer

import "github.com/doolan/logicarray/internal/sampleview"

// TransitionResult is the outcome of counting level changes across a view.
type TransitionResult struct {
	Transitions int
	EndState    byte
	HasEnd      bool
}

// CountTransitions returns the number of indices i in [1,N) where bit(i) !=
// bit(i-1), along with the ending logic level. For N<=1 there are zero
// transitions; the ending state is only defined for N==1.
func CountTransitions(v sampleview.View) TransitionResult {
	n := v.Len()
	if n == 0 {
		return TransitionResult{}
	}
	if n == 1 {
		return TransitionResult{EndState: v.Bit(0), HasEnd: true}
	}

	count := 0
	prev := v.Bit(0)
	for i := 1; i < n; i++ {
		cur := v.Bit(i)
		if cur != prev {
			count++
		}
		prev = cur
	}
	return TransitionResult{Transitions: count, EndState: prev, HasEnd: true}
}
