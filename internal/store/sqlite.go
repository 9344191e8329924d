package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/task"
)

const sqliteTimeLayout = time.RFC3339Nano

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	completed  INTEGER NOT NULL DEFAULT 0,
	creator_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
`

// SQLite backs the collection with an embedded database file for single-node
// deployments. SQLite supports one writer at a time, so the pool is capped at
// a single connection; creation timestamps come from the same monotonic guard
// the memory backend uses.
type SQLite struct {
	db *sql.DB

	mu   sync.Mutex
	last time.Time
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *SQLite) Create(ctx context.Context, text, creatorID string) (task.Record, error) {
	trimmed, err := task.ValidateText(text)
	if err != nil {
		return task.Record{}, err
	}
	if creatorID == "" {
		return task.Record{}, apperr.Authenticationf("create requires a resolved identity")
	}

	rec := task.Record{
		ID:        uuid.NewString(),
		Text:      trimmed,
		CreatorID: creatorID,
		CreatedAt: s.stamp(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, text, completed, creator_id, created_at)
		VALUES (?, ?, 0, ?, ?)`,
		rec.ID, rec.Text, rec.CreatorID, rec.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return task.Record{}, apperr.Writef("insert task: %v", err)
	}
	return rec, nil
}

func (s *SQLite) Toggle(ctx context.Context, id string) (task.Record, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return task.Record{}, err
	}

	rec.Completed = !rec.Completed
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ? WHERE id = ?`,
		boolToInt(rec.Completed), id,
	)
	if err != nil {
		return task.Record{}, apperr.Writef("toggle task: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.Record{}, apperr.NotFoundf("task %s", id)
	}
	return rec, nil
}

func (s *SQLite) Delete(ctx context.Context, id, callerID string) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if rec.CreatorID != callerID {
		return apperr.Authorizationf("task %s belongs to another session", id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return apperr.Writef("delete task: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("task %s", id)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]task.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, completed, creator_id, created_at FROM tasks`,
	)
	if err != nil {
		return nil, apperr.Writef("list tasks: %v", err)
	}
	defer rows.Close()

	var out []task.Record
	for rows.Next() {
		rec, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, apperr.Writef("scan task: %v", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Writef("list tasks: %v", err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) get(ctx context.Context, id string) (task.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, completed, creator_id, created_at FROM tasks WHERE id = ?`, id,
	)
	rec, err := scanSQLiteTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Record{}, apperr.NotFoundf("task %s", id)
		}
		return task.Record{}, apperr.Writef("get task: %v", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (task.Record, error) {
	var (
		rec       task.Record
		completed int
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.Text, &completed, &rec.CreatorID, &createdAt); err != nil {
		return task.Record{}, err
	}
	rec.Completed = completed != 0

	t, err := time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return task.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
