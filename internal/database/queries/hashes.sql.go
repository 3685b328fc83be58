package queries

import (
	"context"
	"time"
)

type Hash struct {
	ResourceID  string
	ContentHash string
	UpdatedAt   time.Time
}

const getHash = `
SELECT resource_id, content_hash, updated_at FROM hashes
WHERE resource_id = ?
`

func (q *Queries) GetHash(ctx context.Context, resourceID string) (Hash, error) {
	row := q.db.QueryRowContext(ctx, getHash, resourceID)
	var i Hash
	err := row.Scan(&i.ResourceID, &i.ContentHash, &i.UpdatedAt)
	return i, err
}

const upsertHash = `
INSERT INTO hashes (resource_id, content_hash, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(resource_id) DO UPDATE SET
    content_hash = excluded.content_hash,
    updated_at = excluded.updated_at
`

type UpsertHashParams struct {
	ResourceID  string
	ContentHash string
	UpdatedAt   time.Time
}

func (q *Queries) UpsertHash(ctx context.Context, arg UpsertHashParams) error {
	_, err := q.db.ExecContext(ctx, upsertHash, arg.ResourceID, arg.ContentHash, arg.UpdatedAt)
	return err
}

const deleteHash = `
DELETE FROM hashes WHERE resource_id = ?
`

func (q *Queries) DeleteHash(ctx context.Context, resourceID string) error {
	_, err := q.db.ExecContext(ctx, deleteHash, resourceID)
	return err
}

const listHashes = `
SELECT resource_id, content_hash, updated_at FROM hashes
ORDER BY resource_id
`

func (q *Queries) ListHashes(ctx context.Context) ([]Hash, error) {
	rows, err := q.db.QueryContext(ctx, listHashes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Hash
	for rows.Next() {
		var i Hash
		if err := rows.Scan(&i.ResourceID, &i.ContentHash, &i.UpdatedAt); err != nil {
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
