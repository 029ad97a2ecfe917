package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

const taskColumns = `task_id,description,beneficiary_id,campaign_id,status,is_completed,created_at,due_date`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.TaskID, &t.Description, &t.BeneficiaryID, &t.CampaignID, &t.Status, &t.IsCompleted, &t.CreatedAt, &t.DueDate)
	return t, err
}

func (s *Store) GetTask(ctx context.Context, taskID string) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id=$1`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// ListTasks returns every task ordered by beneficiary, then due date. Tasks
// without a due date sort after dated ones within the same beneficiary.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.DB.Query(ctx, `
SELECT `+taskColumns+`
FROM tasks
ORDER BY beneficiary_id ASC, due_date ASC NULLS LAST, task_id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTask inserts the task and its TASK_CREATED event, then runs notify
// while the transaction is still open. A notify error rolls the insert back,
// so the task is only ever observable together with its notification.
func (s *Store) CreateTask(ctx context.Context, t Task, actorUserID string, notify func(Task) error) (Task, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback(ctx)

	created, err := scanTask(tx.QueryRow(ctx, `
INSERT INTO tasks(task_id,description,beneficiary_id,campaign_id,status,is_completed,due_date)
VALUES($1,$2,$3,$4,$5,$6,$7)
RETURNING `+taskColumns, t.TaskID, t.Description, t.BeneficiaryID, t.CampaignID, t.Status, t.IsCompleted, t.DueDate))
	if err != nil {
		return Task{}, err
	}
	if err := insertTaskEvent(ctx, tx, created.TaskID, actorUserID, "TASK_CREATED", map[string]any{
		"description": created.Description,
		"status":      created.Status,
	}); err != nil {
		return Task{}, err
	}
	if notify != nil {
		if err := notify(created); err != nil {
			return Task{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Task{}, err
	}
	return created, nil
}

// UpdateTask locks the row, merges changes and runs decide with both the
// prior and the merged task while the transaction is open. A decide error
// rolls back every field change bundled in the request.
func (s *Store) UpdateTask(ctx context.Context, taskID string, ch TaskChanges, actorUserID string, decide func(prev, next Task) error) (Task, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback(ctx)

	prev, err := scanTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id=$1 FOR UPDATE`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	next := prev
	if ch.Description != nil {
		next.Description = *ch.Description
	}
	if ch.Status != nil {
		next.Status = *ch.Status
	}
	if ch.IsCompleted != nil {
		next.IsCompleted = *ch.IsCompleted
	}
	if ch.DueDate != nil {
		next.DueDate = ch.DueDate
	}
	if ch.ClearDue {
		next.DueDate = nil
	}

	if _, err := tx.Exec(ctx, `
UPDATE tasks
SET description=$2,status=$3,is_completed=$4,due_date=$5
WHERE task_id=$1
`, next.TaskID, next.Description, next.Status, next.IsCompleted, next.DueDate); err != nil {
		return Task{}, err
	}
	if prev.Status != next.Status {
		if err := insertTaskEvent(ctx, tx, next.TaskID, actorUserID, "TASK_STATUS_CHANGED", map[string]any{
			"from": prev.Status,
			"to":   next.Status,
		}); err != nil {
			return Task{}, err
		}
	}
	if decide != nil {
		if err := decide(prev, next); err != nil {
			return Task{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Task{}, err
	}
	return next, nil
}

func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM tasks WHERE task_id=$1`, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertTaskEvent(ctx context.Context, tx pgx.Tx, taskID, actorUserID, eventType string, payload map[string]any) error {
	b, _ := json.Marshal(payload)
	_, err := tx.Exec(ctx, `
INSERT INTO task_events(task_id,actor_user_id,event_type,payload)
VALUES($1,$2,$3,$4::jsonb)
`, taskID, nullable(actorUserID), eventType, string(b))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
