package queries

import (
	"context"
	"database/sql"
	"time"
)

type SyncOperation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

const insertSyncOperation = `
INSERT INTO sync_operations (operation, parameters, started_at, status)
VALUES (?, ?, ?, 'running')
`

type InsertSyncOperationParams struct {
	Operation  string
	Parameters string
	StartedAt  time.Time
}

func (q *Queries) InsertSyncOperation(ctx context.Context, arg InsertSyncOperationParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertSyncOperation, arg.Operation, arg.Parameters, arg.StartedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getSyncOperation = `
SELECT id, operation, parameters, started_at, finished_at, status FROM sync_operations
WHERE id = ?
`

func (q *Queries) GetSyncOperation(ctx context.Context, id int64) (SyncOperation, error) {
	row := q.db.QueryRowContext(ctx, getSyncOperation, id)
	var i SyncOperation
	err := row.Scan(&i.ID, &i.Operation, &i.Parameters, &i.StartedAt, &i.FinishedAt, &i.Status)
	return i, err
}

const finishSyncOperation = `
UPDATE sync_operations SET finished_at = ?, status = ?
WHERE id = ?
`

type FinishSyncOperationParams struct {
	FinishedAt sql.NullTime
	Status     string
	ID         int64
}

func (q *Queries) FinishSyncOperation(ctx context.Context, arg FinishSyncOperationParams) error {
	_, err := q.db.ExecContext(ctx, finishSyncOperation, arg.FinishedAt, arg.Status, arg.ID)
	return err
}

const listSyncOperations = `
SELECT id, operation, parameters, started_at, finished_at, status FROM sync_operations
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListSyncOperations(ctx context.Context, limit int64) ([]SyncOperation, error) {
	rows, err := q.db.QueryContext(ctx, listSyncOperations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SyncOperation
	for rows.Next() {
		var i SyncOperation
		if err := rows.Scan(&i.ID, &i.Operation, &i.Parameters, &i.StartedAt, &i.FinishedAt, &i.Status); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLastSuccessfulSyncOperation = `
SELECT id, operation, parameters, started_at, finished_at, status FROM sync_operations
WHERE operation = ? AND status = 'success'
ORDER BY started_at DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLastSuccessfulSyncOperation(ctx context.Context, operation string) (SyncOperation, error) {
	row := q.db.QueryRowContext(ctx, getLastSuccessfulSyncOperation, operation)
	var i SyncOperation
	err := row.Scan(&i.ID, &i.Operation, &i.Parameters, &i.StartedAt, &i.FinishedAt, &i.Status)
	return i, err
}
