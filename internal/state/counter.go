package state

import "sync/atomic"

// activeCounter is the active-device counter from §4.4: atomic, and
// monotonically non-increasing once a device has terminated (dec is only
// ever called once per device, from its own worker's exit path).
type activeCounter struct {
	v atomic.Int64
}

func (c *activeCounter) inc() {
	c.v.Add(1)
}

func (c *activeCounter) dec() {
	c.v.Add(-1)
}

func (c *activeCounter) load() int64 {
	return c.v.Load()
}
