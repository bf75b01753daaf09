package proctor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountdownRemaining(t *testing.T) {
	now := time.Now()
	var c countdown

	c.start(time.Minute, now)
	assert.Equal(t, time.Minute, c.remaining(now))
	assert.Equal(t, 30*time.Second, c.remaining(now.Add(30*time.Second)))
	assert.Equal(t, time.Duration(0), c.remaining(now.Add(2*time.Minute)), "clamped at zero")
}

func TestCountdownExpired(t *testing.T) {
	now := time.Now()
	var c countdown

	assert.False(t, c.expired(now), "not running, never expired")

	c.start(time.Minute, now)
	assert.False(t, c.expired(now.Add(59*time.Second)))
	assert.True(t, c.expired(now.Add(time.Minute)))
}

func TestCountdownFreezePinsRemaining(t *testing.T) {
	now := time.Now()
	var c countdown

	c.start(time.Minute, now)
	c.freeze(now.Add(20 * time.Second))

	assert.Equal(t, 40*time.Second, c.remaining(now.Add(time.Hour)))
	assert.False(t, c.expired(now.Add(time.Hour)))
}
