package queries

import "context"

const getSongIDByFile = `
SELECT id FROM mpd_song WHERE file = ?
`

func (q *Queries) GetSongIDByFile(ctx context.Context, file string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getSongIDByFile, file)
	var id int64
	err := row.Scan(&id)
	return id, err
}
