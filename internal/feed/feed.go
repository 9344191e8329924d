// Package feed delivers live snapshots of the task collection to any number
// of subscribers. Every subscriber gets the full current snapshot on
// subscribe and a fresh snapshot after each mutation, whichever session
// issued it. Slow subscribers are coalesced to the latest snapshot, so each
// observer converges on the committed state without any guarantee of seeing
// every intermediate one.
package feed

import (
	"context"
	"sync"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/store"
	"tasksync-backend/internal/task"
)

// Hub routes mutations to one store and fans snapshots out to subscribers of
// one collection.
type Hub struct {
	collection string
	store      store.Store

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	failed error
}

func NewHub(collection string, st store.Store) *Hub {
	return &Hub{
		collection: collection,
		store:      st,
		subs:       make(map[*Subscription]struct{}),
	}
}

// Subscription is one live observer. Snapshots arrive on Snapshots();
// Cancel stops delivery and may be called any number of times.
type Subscription struct {
	hub  *Hub
	ch   chan []task.Record
	once sync.Once
}

func (s *Subscription) Snapshots() <-chan []task.Record { return s.ch }

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe registers an observer and queues the current snapshot as its
// first delivery. The lock spans the list-and-register sequence: a mutation
// committed while the initial snapshot is being read broadcasts after the
// subscriber is registered, so no committed state can fall between the
// initial snapshot and the first broadcast.
func (h *Hub) Subscribe(ctx context.Context, collectionID string) (*Subscription, error) {
	if collectionID != h.collection {
		return nil, apperr.Feedf("unknown collection %q", collectionID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failed != nil {
		return nil, h.failed
	}

	snap, err := h.store.List(ctx)
	if err != nil {
		return nil, apperr.Feedf("initial snapshot: %v", err)
	}

	sub := &Subscription{hub: h, ch: make(chan []task.Record, 1)}
	sub.ch <- snap
	h.subs[sub] = struct{}{}
	return sub, nil
}

// OnSnapshot is the callback form of Subscribe. The callback runs on a
// dedicated goroutine until the returned cancel function is called; cancel is
// idempotent.
func (h *Hub) OnSnapshot(ctx context.Context, collectionID string, fn func([]task.Record)) (func(), error) {
	sub, err := h.Subscribe(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	go func() {
		for snap := range sub.Snapshots() {
			fn(snap)
		}
	}()
	return sub.Cancel, nil
}

// Broadcast re-lists the collection and delivers the snapshot to every live
// subscriber. Each subscriber's buffer holds one snapshot; if a previous one
// has not been consumed yet it is replaced, never blocked on. Every
// subscriber gets its own copy: consumers sort snapshots in place, so a
// shared backing array would let them corrupt each other's view.
func (h *Hub) Broadcast(ctx context.Context) error {
	snap, err := h.store.List(ctx)
	if err != nil {
		return apperr.Feedf("snapshot: %v", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failed != nil {
		return h.failed
	}

	for sub := range h.subs {
		dup := make([]task.Record, len(snap))
		copy(dup, snap)
		select {
		case sub.ch <- dup:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- dup:
			default:
			}
		}
	}
	return nil
}

// Fail terminates the feed: every live subscription is cancelled so
// consumers observe their stream closing rather than a healthy-looking feed
// that silently never updates again, and later Subscribe calls report the
// terminal error. Idempotent; the first error wins.
func (h *Hub) Fail(err error) {
	if err == nil {
		err = apperr.Feedf("feed terminated")
	}

	h.mu.Lock()
	if h.failed != nil {
		h.mu.Unlock()
		return
	}
	h.failed = err
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Create writes through to the store and, on success, notifies every
// subscriber. Invalid text never reaches the store and emits nothing.
func (h *Hub) Create(ctx context.Context, text, creatorID string) (task.Record, error) {
	rec, err := h.store.Create(ctx, text, creatorID)
	if err != nil {
		return task.Record{}, err
	}
	if err := h.Broadcast(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

func (h *Hub) Toggle(ctx context.Context, id string) (task.Record, error) {
	rec, err := h.store.Toggle(ctx, id)
	if err != nil {
		return task.Record{}, err
	}
	if err := h.Broadcast(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

func (h *Hub) Delete(ctx context.Context, id, callerID string) error {
	if err := h.store.Delete(ctx, id, callerID); err != nil {
		return err
	}
	return h.Broadcast(ctx)
}

// List returns the current snapshot without touching subscriptions.
func (h *Hub) List(ctx context.Context) ([]task.Record, error) {
	return h.store.List(ctx)
}

// Collection reports the collection path this hub serves.
func (h *Hub) Collection() string { return h.collection }
