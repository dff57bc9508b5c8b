package controller

import "sync/atomic"

// connCounter is the process-wide connection count. It starts at zero, is
// mutated only by the gateway and is clamped so a defensive decrement can
// never drive it negative. It resets on process restart.
type connCounter struct {
	n atomic.Int64
}

func (c *connCounter) Inc() {
	c.n.Add(1)
}

func (c *connCounter) Dec() {
	for {
		cur := c.n.Load()
		if cur == 0 {
			return
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (c *connCounter) Value() int64 {
	return c.n.Load()
}
