package queries

import "context"

type DayCount struct {
	Date  string
	Count int64
}

const countWindowEventsByDay = `
SELECT substr(timestamp, 1, 10) AS date, COUNT(*) AS count FROM aw_currentwindow
GROUP BY date
ORDER BY date
`

func (q *Queries) CountWindowEventsByDay(ctx context.Context) ([]DayCount, error) {
	return q.dayCounts(ctx, countWindowEventsByDay)
}

const listNotAfkMeta = `
SELECT date, count FROM aw_notafkwindow_meta
ORDER BY date
`

func (q *Queries) ListNotAfkMeta(ctx context.Context) ([]DayCount, error) {
	return q.dayCounts(ctx, listNotAfkMeta)
}

func (q *Queries) dayCounts(ctx context.Context, query string) ([]DayCount, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DayCount
	for rows.Next() {
		var i DayCount
		if err := rows.Scan(&i.Date, &i.Count); err != nil {
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

const deleteNotAfkMeta = `
DELETE FROM aw_notafkwindow_meta
`

func (q *Queries) DeleteNotAfkMeta(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteNotAfkMeta)
	return err
}

const insertNotAfkMeta = `
INSERT INTO aw_notafkwindow_meta (date, count) VALUES (?, ?)
`

func (q *Queries) InsertNotAfkMeta(ctx context.Context, arg DayCount) error {
	_, err := q.db.ExecContext(ctx, insertNotAfkMeta, arg.Date, arg.Count)
	return err
}

// Events are selected when [timestamp, timestamp+duration) overlaps the
// range. julianday keeps the end computation exact for fractional seconds.

type WindowEventRow struct {
	ID        string
	BucketID  string
	Hostname  string
	Location  string
	Timestamp string
	Duration  float64
	App       string
	Title     string
}

const listWindowEventsOverlapping = `
SELECT id, bucket_id, hostname, location, timestamp, duration, app, title FROM aw_currentwindow
WHERE timestamp < ?2
  AND julianday(timestamp) + duration / 86400.0 > julianday(?1)
ORDER BY timestamp, id
`

type TimeRangeParams struct {
	Start string
	End   string
}

func (q *Queries) ListWindowEventsOverlapping(ctx context.Context, arg TimeRangeParams) ([]WindowEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listWindowEventsOverlapping, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WindowEventRow
	for rows.Next() {
		var i WindowEventRow
		if err := rows.Scan(&i.ID, &i.BucketID, &i.Hostname, &i.Location, &i.Timestamp, &i.Duration, &i.App, &i.Title); err != nil {
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

type AfkEventRow struct {
	ID        string
	BucketID  string
	Hostname  string
	Location  string
	Timestamp string
	Duration  float64
	Status    bool
}

const listAfkEventsOverlapping = `
SELECT id, bucket_id, hostname, location, timestamp, duration, status FROM aw_afkstatus
WHERE timestamp < ?2
  AND julianday(timestamp) + duration / 86400.0 > julianday(?1)
ORDER BY timestamp, id
`

func (q *Queries) ListAfkEventsOverlapping(ctx context.Context, arg TimeRangeParams) ([]AfkEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listAfkEventsOverlapping, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AfkEventRow
	for rows.Next() {
		var i AfkEventRow
		if err := rows.Scan(&i.ID, &i.BucketID, &i.Hostname, &i.Location, &i.Timestamp, &i.Duration, &i.Status); err != nil {
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

const deleteNotAfkWindowsInRange = `
DELETE FROM aw_notafkwindow WHERE timestamp >= ? AND timestamp < ?
`

func (q *Queries) DeleteNotAfkWindowsInRange(ctx context.Context, arg TimeRangeParams) error {
	_, err := q.db.ExecContext(ctx, deleteNotAfkWindowsInRange, arg.Start, arg.End)
	return err
}

const upsertNotAfkWindow = `
INSERT INTO aw_notafkwindow (id, bucket_id, hostname, location, timestamp, duration, app, title)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    timestamp = excluded.timestamp,
    duration = excluded.duration
`

func (q *Queries) UpsertNotAfkWindow(ctx context.Context, arg WindowEventRow) error {
	_, err := q.db.ExecContext(ctx, upsertNotAfkWindow,
		arg.ID, arg.BucketID, arg.Hostname, arg.Location, arg.Timestamp, arg.Duration, arg.App, arg.Title)
	return err
}

const listNotAfkWindowsByApp = `
SELECT id, bucket_id, hostname, location, timestamp, duration, app, title FROM aw_notafkwindow
WHERE app = ?
ORDER BY timestamp, id
`

func (q *Queries) ListNotAfkWindowsByApp(ctx context.Context, app string) ([]WindowEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listNotAfkWindowsByApp, app)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WindowEventRow
	for rows.Next() {
		var i WindowEventRow
		if err := rows.Scan(&i.ID, &i.BucketID, &i.Hostname, &i.Location, &i.Timestamp, &i.Duration, &i.App, &i.Title); err != nil {
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
