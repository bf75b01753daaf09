package proctor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportedPresenceUnreported(t *testing.T) {
	p := NewReportedPresence(time.Second)

	res := p.Check(context.Background())
	assert.False(t, res.Present)
	assert.Equal(t, FailureDeviceUnavailable, res.Failure)
}

func TestReportedPresencePassThrough(t *testing.T) {
	p := NewReportedPresence(time.Second)

	p.Report(PresenceResult{Present: true})
	assert.True(t, p.Check(context.Background()).Visible())

	p.Report(PresenceResult{Present: false, Failure: FailureDetectionFailed})
	res := p.Check(context.Background())
	assert.False(t, res.Visible())
	assert.Equal(t, FailureDetectionFailed, res.Failure)
}

func TestReportedPresenceStaleness(t *testing.T) {
	p := NewReportedPresence(20 * time.Millisecond)

	p.Report(PresenceResult{Present: true})
	assert.True(t, p.Check(context.Background()).Visible())

	time.Sleep(40 * time.Millisecond)
	res := p.Check(context.Background())
	assert.False(t, res.Present)
	assert.Equal(t, FailureDeviceUnavailable, res.Failure)
}

func TestReportedPresenceClosed(t *testing.T) {
	p := NewReportedPresence(time.Second)

	p.Report(PresenceResult{Present: true})
	p.Close()
	p.Close() // idempotent

	assert.Equal(t, FailureDeviceUnavailable, p.Check(context.Background()).Failure)

	// Reports after close are dropped.
	p.Report(PresenceResult{Present: true})
	assert.False(t, p.Check(context.Background()).Visible())
}

func TestPresenceResultVisible(t *testing.T) {
	assert.True(t, PresenceResult{Present: true}.Visible())
	assert.False(t, PresenceResult{Present: false}.Visible())
	assert.False(t, PresenceResult{Present: true, Failure: FailureModelLoadFailed}.Visible())
}
