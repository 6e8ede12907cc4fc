// Package fetchpool prefetches the price catalog through a bounded
// worker pool so a cold cache can be warmed without hammering the
// provider pricing APIs.
package fetchpool

import (
	"sync"
	"time"
)

// Controller adjusts warm-up concurrency with AIMD feedback: halve
// when the upstream looks congested, add one worker when it is fast.
type Controller struct {
	mu         sync.Mutex
	limit      int
	min        int
	max        int
	lastChange time.Time
}

const (
	// healthyLatency is the fetch latency under which concurrency grows.
	healthyLatency = 500 * time.Millisecond
	// dampenWindow spaces out adjustments so one burst of feedback does
	// not whipsaw the limit.
	dampenWindow = 250 * time.Millisecond
)

func NewController(start, min, max int) *Controller {
	if start < min {
		start = min
	}
	if start > max {
		start = max
	}
	return &Controller{
		limit:      start,
		min:        min,
		max:        max,
		lastChange: time.Now(),
	}
}

// Limit returns the current concurrency target.
func (c *Controller) Limit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// Observe feeds one completed fetch back into the controller.
func (c *Controller) Observe(latency time.Duration, congested bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastChange) < dampenWindow {
		return
	}

	if congested {
		c.limit /= 2
		if c.limit < c.min {
			c.limit = c.min
		}
		c.lastChange = now
		return
	}

	if latency < healthyLatency {
		c.limit++
		if c.limit > c.max {
			c.limit = c.max
		}
		c.lastChange = now
	}
}
