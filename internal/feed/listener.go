package feed

import (
	"context"
	"time"

	"github.com/lib/pq"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/store"
)

const (
	listenMinInterval = time.Second
	listenMaxInterval = 30 * time.Second
	listenPingEvery   = 90 * time.Second
)

// Listener bridges Postgres NOTIFY events into hub broadcasts so mutations
// committed by other processes reach this process's subscribers. One
// transport loss is repaired by re-broadcasting a fresh snapshot after
// reconnect; a second loss is terminal: the hub is failed so every
// subscriber observes its stream ending, and onErr is invoked.
type Listener struct {
	hub   *Hub
	onErr func(error)

	disconnects chan struct{}
	notify      <-chan *pq.Notification
	ping        func() error
	shutdown    func() error
}

// NewListener opens a LISTEN connection on the store's notify channel.
// onErr receives the terminal feed error, if any; it must not block.
func NewListener(connString string, hub *Hub, onErr func(error)) (*Listener, error) {
	l := newListener(hub, onErr)

	pql := pq.NewListener(connString, listenMinInterval, listenMaxInterval,
		func(ev pq.ListenerEventType, err error) {
			if ev == pq.ListenerEventDisconnected || ev == pq.ListenerEventConnectionAttemptFailed {
				l.dropped()
			}
		})

	if err := pql.Listen(store.NotifyChannel); err != nil {
		pql.Close()
		return nil, apperr.Feedf("listen %s: %v", store.NotifyChannel, err)
	}

	l.notify = pql.Notify
	l.ping = pql.Ping
	l.shutdown = pql.Close
	return l, nil
}

func newListener(hub *Hub, onErr func(error)) *Listener {
	return &Listener{
		hub:         hub,
		onErr:       onErr,
		disconnects: make(chan struct{}, 4),
		ping:        func() error { return nil },
		shutdown:    func() error { return nil },
	}
}

func (l *Listener) dropped() {
	select {
	case l.disconnects <- struct{}{}:
	default:
	}
}

func (l *Listener) fail(err error) {
	l.hub.Fail(err)
	if l.onErr != nil {
		l.onErr(err)
	}
}

// Run pumps notifications until ctx is cancelled or the transport is lost
// twice. Blocks; callers run it on its own goroutine.
func (l *Listener) Run(ctx context.Context) {
	defer l.shutdown()

	drops := 0
	for {
		select {
		case <-ctx.Done():
			return

		case <-l.disconnects:
			drops++
			if drops > 1 {
				l.fail(apperr.Feedf("notify transport lost after reconnect"))
				return
			}
			// pq.Listener re-establishes the connection itself; once it is
			// back, re-deliver a full snapshot in case notifications were
			// missed while disconnected.
			if err := l.hub.Broadcast(ctx); err != nil {
				l.fail(err)
				return
			}

		case <-l.notify:
			if err := l.hub.Broadcast(ctx); err != nil {
				l.fail(err)
				return
			}

		case <-time.After(listenPingEvery):
			if err := l.ping(); err != nil {
				l.dropped()
			}
		}
	}
}
