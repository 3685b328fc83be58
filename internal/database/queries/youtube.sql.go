package queries

import "context"

const countYoutubeVideo = `
SELECT COUNT(*) FROM youtube_video WHERE id = ?
`

func (q *Queries) CountYoutubeVideo(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countYoutubeVideo, id)
	var count int64
	err := row.Scan(&count)
	return count, err
}
