package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShared_SnapshotIsIndependentCopy(t *testing.T) {
	s := New(2)
	s.Slot(0).Update(DeviceState{Connected: true, TotalCaptures: 1})

	snap := s.Snapshot()
	s.Slot(0).Update(DeviceState{Connected: true, TotalCaptures: 2})

	assert.Equal(t, 1, snap.Devices[0].TotalCaptures)
	assert.Equal(t, 2, s.Slot(0).Get().TotalCaptures)
}

func TestShared_ActiveCounterNeverReincrements(t *testing.T) {
	s := New(1)
	s.MarkActive()
	s.MarkActive()
	assert.Equal(t, int64(2), s.ActiveCount())
	s.MarkInactive()
	assert.Equal(t, int64(1), s.ActiveCount())
	s.MarkInactive()
	assert.Equal(t, int64(0), s.ActiveCount())
}

// A reader that reads a slot between two cycles observes either the
// prior cycle's complete metrics or the new cycle's, never a mix. One
// writer publishes alternating "cycle A" and "cycle B" states against
// many concurrent readers, and every observed state must be exactly one
// of the two, field for field.
func TestSlot_PerSlotConsistencyUnderConcurrentAccess(t *testing.T) {
	slot := &Slot{}

	cycleA := DeviceState{TotalCaptures: 1, ConsecutiveErrors: 0, LastCaptureTime: time.Unix(1, 0)}
	cycleB := DeviceState{TotalCaptures: 2, ConsecutiveErrors: 5, LastCaptureTime: time.Unix(2, 0)}

	stop := make(chan struct{})
	var wg sync.WaitGroup

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := slot.Get()
				switch got.TotalCaptures {
				case 0:
					// not yet published
				case 1:
					assert.Equal(t, cycleA.ConsecutiveErrors, got.ConsecutiveErrors)
					assert.Equal(t, cycleA.LastCaptureTime, got.LastCaptureTime)
				case 2:
					assert.Equal(t, cycleB.ConsecutiveErrors, got.ConsecutiveErrors)
					assert.Equal(t, cycleB.LastCaptureTime, got.LastCaptureTime)
				default:
					t.Errorf("unexpected TotalCaptures %d", got.TotalCaptures)
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		if i%2 == 0 {
			slot.Update(cycleA)
		} else {
			slot.Update(cycleB)
		}
	}
	close(stop)
	wg.Wait()
}
