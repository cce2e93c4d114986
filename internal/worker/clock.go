package worker

import (
	"context"
	"sync/atomic"
	"time"
)

// ConfigClock is a shared 3-second timer that every Device Worker polls
// instead of each running its own ticker. Per §5, "the timer is shared so
// that only one device incurs the stat cost per interval" — in this
// implementation that means a single goroutine owns the wall-clock wait,
// and each worker performs its own os.Stat only once per tick it observes,
// rather than every worker independently sleeping and statting on its own
// schedule and drifting out of phase with the others.
type ConfigClock struct {
	generation atomic.Int64
}

// NewConfigClock creates a clock and starts its background ticker. The
// ticker stops when ctx is done.
func NewConfigClock(ctx context.Context, interval time.Duration) *ConfigClock {
	c := &ConfigClock{}
	go c.run(ctx, interval)
	return c
}

func (c *ConfigClock) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.generation.Add(1)
		}
	}
}

// Generation returns the current tick count.
func (c *ConfigClock) Generation() int64 {
	return c.generation.Load()
}
