package proctor

import (
	"context"
	"sync"
	"time"
)

// FailureKind classifies why a presence check could not be performed.
// The session policy treats every failure kind identically to "no face";
// the kind only matters for candidate-facing diagnostics.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureDeviceUnavailable FailureKind = "device-unavailable"
	FailureModelLoadFailed   FailureKind = "model-load-failed"
	FailureDetectionFailed   FailureKind = "detection-failed"
)

// PresenceResult is one observation of the face presence signal.
type PresenceResult struct {
	Present bool        `json:"present"`
	Failure FailureKind `json:"failure,omitempty"`
}

// Visible reports whether a live face was positively confirmed.
func (r PresenceResult) Visible() bool {
	return r.Present && r.Failure == FailureNone
}

// PresenceSource is the contract the engine requires from a face presence
// signal. Check is polled on a fixed interval while armed and must never
// block longer than the poll interval. Close releases the underlying
// camera resources; it must be safe to call more than once.
type PresenceSource interface {
	Check(ctx context.Context) PresenceResult
	Close()
}

// ReportedPresence adapts a push-style signal (the browser streaming face
// detection snapshots) into the engine's poll-style PresenceSource. A
// report older than the staleness window degrades to DeviceUnavailable:
// a client that stopped reporting is indistinguishable from a dead camera.
type ReportedPresence struct {
	mu       sync.Mutex
	last     PresenceResult
	lastAt   time.Time
	reported bool
	closed   bool
	stale    time.Duration
}

// NewReportedPresence creates an adapter with the given staleness window.
func NewReportedPresence(staleAfter time.Duration) *ReportedPresence {
	return &ReportedPresence{stale: staleAfter}
}

// Report records the latest client-side presence observation.
// Reports after Close are dropped.
func (p *ReportedPresence) Report(r PresenceResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.last = r
	p.lastAt = time.Now()
	p.reported = true
}

// Check returns the most recent report, or a DeviceUnavailable failure
// when nothing fresh has been reported.
func (p *ReportedPresence) Check(_ context.Context) PresenceResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.reported || time.Since(p.lastAt) > p.stale {
		return PresenceResult{Present: false, Failure: FailureDeviceUnavailable}
	}
	return p.last
}

// Close stops the adapter. Subsequent checks report DeviceUnavailable.
func (p *ReportedPresence) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
