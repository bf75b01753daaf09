package proctor

import "time"

// countdown is a monotonic count from a fixed duration toward zero.
// Remaining time only decreases while running and is frozen otherwise.
type countdown struct {
	deadline time.Time
	frozen   time.Duration
	running  bool
}

// start begins the countdown from d.
func (c *countdown) start(d time.Duration, now time.Time) {
	c.deadline = now.Add(d)
	c.frozen = d
	c.running = true
}

// remaining returns the time left, clamped at zero.
func (c *countdown) remaining(now time.Time) time.Duration {
	if !c.running {
		return c.frozen
	}
	left := c.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// expired reports whether the countdown has reached zero.
func (c *countdown) expired(now time.Time) bool {
	return c.running && !now.Before(c.deadline)
}

// freeze stops the countdown, pinning the remaining value.
func (c *countdown) freeze(now time.Time) {
	if !c.running {
		return
	}
	c.frozen = c.remaining(now)
	c.running = false
}
