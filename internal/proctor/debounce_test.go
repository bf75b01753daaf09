package proctor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerStartsCountdownOnce(t *testing.T) {
	now := time.Now()
	d := newDebouncer(10 * time.Second)

	assert.True(t, d.observe(false, now), "first loss starts the countdown")
	assert.False(t, d.observe(false, now.Add(time.Second)), "repeat loss does not restart")
	assert.True(t, d.active)
	assert.Equal(t, 10*time.Second, d.remaining(now))
}

func TestDebouncerRecoveryCancels(t *testing.T) {
	now := time.Now()
	d := newDebouncer(10 * time.Second)

	d.observe(false, now)
	d.observe(true, now.Add(3*time.Second))

	assert.False(t, d.active)
	assert.Zero(t, d.remaining(now.Add(3*time.Second)))
	assert.False(t, d.expired(now.Add(time.Hour)), "cancelled countdown never expires")
}

func TestDebouncerFlappingRestartsFullGrace(t *testing.T) {
	now := time.Now()
	d := newDebouncer(10 * time.Second)

	// Lost at t=0, recovered at t=9, lost again at t=9.5: the new
	// countdown runs the full grace from t=9.5.
	d.observe(false, now)
	d.observe(true, now.Add(9*time.Second))
	d.observe(false, now.Add(9500*time.Millisecond))

	assert.False(t, d.expired(now.Add(19*time.Second)))
	assert.True(t, d.expired(now.Add(19500*time.Millisecond)))
}

func TestDebouncerExpiry(t *testing.T) {
	now := time.Now()
	d := newDebouncer(10 * time.Second)

	d.observe(false, now)
	assert.False(t, d.expired(now.Add(10*time.Second-time.Millisecond)))
	assert.True(t, d.expired(now.Add(10*time.Second)))
}
