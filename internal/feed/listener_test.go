package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/store"
)

type listenerFixture struct {
	store  *store.Memory
	hub    *Hub
	lis    *Listener
	notify chan *pq.Notification
	errs   chan error
	done   chan struct{}
	cancel context.CancelFunc
}

func startListener(t *testing.T) *listenerFixture {
	t.Helper()

	f := &listenerFixture{
		store:  store.NewMemory(),
		notify: make(chan *pq.Notification, 4),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	f.hub = NewHub(testCollection, f.store)
	f.lis = newListener(f.hub, func(err error) { f.errs <- err })
	f.lis.notify = f.notify

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)

	go func() {
		f.lis.Run(ctx)
		close(f.done)
	}()
	return f
}

func (f *listenerFixture) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenerNotifyBroadcasts(t *testing.T) {
	f := startListener(t)

	sub, err := f.hub.Subscribe(context.Background(), testCollection)
	require.NoError(t, err)
	defer sub.Cancel()
	assert.Empty(t, waitSnapshot(t, sub))

	// A mutation committed by another process: it reaches the store but
	// only the NOTIFY wakes this process's hub.
	_, err = f.store.Create(context.Background(), "remote task", "other-proc")
	require.NoError(t, err)
	f.notify <- &pq.Notification{Channel: store.NotifyChannel}

	snap := waitSnapshot(t, sub)
	require.Len(t, snap, 1)
	assert.Equal(t, "remote task", snap[0].Text)

	f.cancel()
	f.waitDone(t)
	assert.Empty(t, f.errs)
}

func TestListenerRebroadcastsAfterFirstDrop(t *testing.T) {
	f := startListener(t)

	sub, err := f.hub.Subscribe(context.Background(), testCollection)
	require.NoError(t, err)
	defer sub.Cancel()
	waitSnapshot(t, sub)

	// Committed while the transport was down, so no NOTIFY arrives; the
	// post-reconnect re-broadcast has to deliver it.
	_, err = f.store.Create(context.Background(), "missed task", "other-proc")
	require.NoError(t, err)
	f.lis.dropped()

	snap := waitSnapshot(t, sub)
	require.Len(t, snap, 1)
	assert.Equal(t, "missed task", snap[0].Text)

	// One drop is repaired, not terminal.
	assert.Empty(t, f.errs)
	f.cancel()
	f.waitDone(t)
}

func TestListenerSecondDropIsTerminal(t *testing.T) {
	f := startListener(t)

	sub, err := f.hub.Subscribe(context.Background(), testCollection)
	require.NoError(t, err)
	waitSnapshot(t, sub)

	f.lis.dropped()
	waitSnapshot(t, sub) // post-reconnect re-broadcast
	f.lis.dropped()

	f.waitDone(t)

	// The terminal error is surfaced, not just logged away.
	select {
	case err := <-f.errs:
		assert.True(t, errors.Is(err, apperr.ErrFeed), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("terminal feed error never surfaced")
	}

	// Subscribers observe their stream ending rather than a silent,
	// permanently stale feed.
	select {
	case _, ok := <-sub.Snapshots():
		assert.False(t, ok, "snapshot channel must be closed after terminal loss")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription never terminated")
	}

	// And new subscriptions report the failure instead of going stale.
	_, err = f.hub.Subscribe(context.Background(), testCollection)
	assert.True(t, errors.Is(err, apperr.ErrFeed))
}
