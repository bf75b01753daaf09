package proctor

import "time"

// debouncer turns raw, possibly-flickering monitor signals into a single
// deterministic terminate decision. Fullscreen-exit and backgrounding are
// hard violations handled directly by the session; the debouncer owns the
// soft-violation policy for the presence signal: a grace countdown starts
// the moment presence is lost, is cancelled without record if presence
// recovers in time, and yields a terminate decision when it runs out.
// At most one grace countdown is active per session.
type debouncer struct {
	grace    time.Duration
	deadline time.Time
	active   bool
}

func newDebouncer(grace time.Duration) *debouncer {
	return &debouncer{grace: grace}
}

// observe feeds one presence observation. Returns true when this
// observation started a new grace countdown.
func (d *debouncer) observe(visible bool, now time.Time) bool {
	if visible {
		d.active = false
		return false
	}
	if d.active {
		return false
	}
	d.active = true
	d.deadline = now.Add(d.grace)
	return true
}

// expired reports whether the active grace countdown has run out.
func (d *debouncer) expired(now time.Time) bool {
	return d.active && !now.Before(d.deadline)
}

// remaining returns the time left on the active countdown, or zero when
// no countdown is active. Exposed so the UI can warn the candidate.
func (d *debouncer) remaining(now time.Time) time.Duration {
	if !d.active {
		return 0
	}
	left := d.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
