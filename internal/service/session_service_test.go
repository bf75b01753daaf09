package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/proctor"
)

func TestScreenGateRequiresReportedFullscreen(t *testing.T) {
	g := &screenGate{}

	assert.Error(t, g.Acquire(context.Background()), "no fullscreen reported yet")

	g.set(true)
	assert.NoError(t, g.Acquire(context.Background()))

	g.set(false)
	assert.Error(t, g.Acquire(context.Background()))
}

func TestScreenGateReleaseNotifiesAndResets(t *testing.T) {
	released := 0
	g := &screenGate{onRelease: func() { released++ }}

	g.set(true)
	g.Release()
	assert.Equal(t, 1, released)
	assert.Error(t, g.Acquire(context.Background()), "release drops the reported state")

	// Release with no callback must not panic.
	(&screenGate{}).Release()
}

func TestQueueStateNeverBlocks(t *testing.T) {
	ls := newLiveSession(time.Second)

	// No consumer attached: pushing far past the buffer must not block,
	// old snapshots are dropped in favor of new ones.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			ls.queueState(proctor.Snapshot{Cursor: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queueState blocked without a consumer")
	}

	// The newest snapshot is still in the queue.
	var last proctor.Snapshot
	for {
		select {
		case snap := <-ls.updates:
			last = snap
			continue
		default:
		}
		break
	}
	require.Equal(t, 499, last.Cursor)
}

func TestQueueReleaseCoalesces(t *testing.T) {
	ls := newLiveSession(time.Second)

	ls.queueRelease()
	ls.queueRelease()
	ls.queueRelease()

	<-ls.release
	select {
	case <-ls.release:
		t.Fatal("release requests must coalesce into one")
	default:
	}
}
