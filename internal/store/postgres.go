package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"tasksync-backend/internal/apperr"
	"tasksync-backend/internal/task"
)

// NotifyChannel is raised after every committed mutation so feed bridges in
// other processes know to re-list the collection.
const NotifyChannel = "tasks_changed"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	completed  BOOLEAN NOT NULL DEFAULT FALSE,
	creator_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres backs the collection with a shared database so multiple backend
// processes can serve the same deployment. Creation timestamps come from the
// database server clock; equal timestamps are tie-broken by id downstream.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Create(ctx context.Context, text, creatorID string) (task.Record, error) {
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
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, text, creator_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		rec.ID, rec.Text, rec.CreatorID,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return task.Record{}, apperr.Writef("insert task: %v", err)
	}

	p.notify(ctx)
	return rec, nil
}

func (p *Postgres) Toggle(ctx context.Context, id string) (task.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE tasks SET completed = NOT completed
		WHERE id = $1
		RETURNING id, text, completed, creator_id, created_at`,
		id,
	)

	var rec task.Record
	err := row.Scan(&rec.ID, &rec.Text, &rec.Completed, &rec.CreatorID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Record{}, apperr.NotFoundf("task %s", id)
		}
		return task.Record{}, apperr.Writef("toggle task: %v", err)
	}

	p.notify(ctx)
	return rec, nil
}

func (p *Postgres) Delete(ctx context.Context, id, callerID string) error {
	var creatorID string
	err := p.db.QueryRowContext(ctx,
		`SELECT creator_id FROM tasks WHERE id = $1`, id,
	).Scan(&creatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("task %s", id)
		}
		return apperr.Writef("get task: %v", err)
	}
	if creatorID != callerID {
		return apperr.Authorizationf("task %s belongs to another session", id)
	}

	res, err := p.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return apperr.Writef("delete task: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("task %s", id)
	}

	p.notify(ctx)
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]task.Record, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, text, completed, creator_id, created_at FROM tasks`,
	)
	if err != nil {
		return nil, apperr.Writef("list tasks: %v", err)
	}
	defer rows.Close()

	var out []task.Record
	for rows.Next() {
		var rec task.Record
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Completed, &rec.CreatorID, &rec.CreatedAt); err != nil {
			return nil, apperr.Writef("scan task: %v", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Writef("list tasks: %v", err)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// notify wakes cross-process feed bridges. A failed notify is not a failed
// write: the mutation is already committed, and in-process subscribers are
// broadcast to separately, so the error is dropped.
func (p *Postgres) notify(ctx context.Context) {
	_, _ = p.db.ExecContext(ctx, `SELECT pg_notify($1, '')`, NotifyChannel)
}
