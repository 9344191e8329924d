package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/task"
)

// Memory is the reference backend: a mutex-guarded map with a write clock
// that never repeats or goes backwards, so CreatedAt values impose a total
// order consistent with write order even when the wall clock stalls.
type Memory struct {
	mu      sync.Mutex
	records map[string]task.Record

	now  func() time.Time
	last time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]task.Record),
		now:     time.Now,
	}
}

// stamp returns a timestamp strictly after every previous one. Callers must
// hold mu.
func (m *Memory) stamp() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *Memory) Create(ctx context.Context, text, creatorID string) (task.Record, error) {
	trimmed, err := task.ValidateText(text)
	if err != nil {
		return task.Record{}, err
	}
	if creatorID == "" {
		return task.Record{}, apperr.Authenticationf("create requires a resolved identity")
	}
	if err := ctx.Err(); err != nil {
		return task.Record{}, apperr.Writef("create: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := task.Record{
		ID:        uuid.NewString(),
		Text:      trimmed,
		Completed: false,
		CreatorID: creatorID,
		CreatedAt: m.stamp(),
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *Memory) Toggle(ctx context.Context, id string) (task.Record, error) {
	if err := ctx.Err(); err != nil {
		return task.Record{}, apperr.Writef("toggle: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return task.Record{}, apperr.NotFoundf("task %s", id)
	}
	rec.Completed = !rec.Completed
	m.records[id] = rec
	return rec, nil
}

func (m *Memory) Delete(ctx context.Context, id, callerID string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Writef("delete: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return apperr.NotFoundf("task %s", id)
	}
	if rec.CreatorID != callerID {
		return apperr.Authorizationf("task %s belongs to another session", id)
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]task.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Writef("list: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]task.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
