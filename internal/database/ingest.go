package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-sqlite3"

	"sqrt-go/internal/database/queries"
	"sqrt-go/internal/model"
	"sqrt-go/internal/sqrt"
)

type ingestMode int

const (
	// modeAppend inserts rows, resolving key conflicts by the update columns.
	modeAppend ingestMode = iota
	// modeReplace clears the table before inserting.
	modeReplace
	// modeReplaceScope deletes the stored rows that share the scope value
	// of a batch row before inserting.
	modeReplaceScope
)

// ingestPolicy describes how rows of one entity are written.
// With no update columns a conflict leaves the stored row untouched.
type ingestPolicy struct {
	table         string
	columns       []string
	conflictKeys  []string
	updateColumns []string
	mode          ingestMode
	scope         string
}

var bucketColumns = []string{"id", "bucket_id", "hostname", "location", "timestamp", "duration"}

var messageColumns = []string{"target", "sender", "is_outgoing", "is_group", "message", "date", "is_edited"}

func bucketPolicy(table string, mode ingestMode, extra ...string) ingestPolicy {
	return ingestPolicy{
		table:        table,
		columns:      append(append([]string{}, bucketColumns...), extra...),
		conflictKeys: []string{"id"},
		mode:         mode,
	}
}

// ingestPolicies is the static upsert table. Column order matches the Row
// methods of the model package.
var ingestPolicies = map[string]ingestPolicy{
	model.EntityAfkStatus:            bucketPolicy("aw_afkstatus", modeAppend, "status"),
	model.EntityCurrentWindow:        bucketPolicy("aw_currentwindow", modeAppend, "app", "title"),
	model.EntityWebTab:               bucketPolicy("aw_webtab", modeAppend, "url", "title", "audible", "incognito", "tab_count", "site", "url_no_params"),
	model.EntityAppEditor:            bucketPolicy("aw_appeditor", modeAppend, "file", "project", "language"),
	model.EntityAndroidCurrentWindow: bucketPolicy("aw_android_currentwindow", modeReplace, "app", "package", "classname"),
	model.EntityAndroidUnlock:        bucketPolicy("aw_android_unlock", modeReplace),
	model.EntityNotAfkWindow: {
		table:         "aw_notafkwindow",
		columns:       []string{"id", "bucket_id", "hostname", "location", "timestamp", "duration", "app", "title"},
		conflictKeys:  []string{"id"},
		updateColumns: []string{"timestamp", "duration"},
	},
	model.EntityAppIntervals: {
		table:        "aw_app_intervals",
		columns:      []string{"app", "date", "seconds"},
		conflictKeys: []string{"app", "date"},
		mode:         modeReplace,
	},
	model.EntityMpdSong: {
		table:         "mpd_song",
		columns:       []string{"file", "duration", "artist", "album_artist", "album", "title", "year", "musicbrainz_trackid"},
		conflictKeys:  []string{"file"},
		updateColumns: []string{"duration", "artist", "album_artist", "album", "title", "year", "musicbrainz_trackid"},
	},
	model.EntitySongListened: {
		table:        "mpd_song_listened",
		columns:      []string{"song_id", "time"},
		conflictKeys: []string{"song_id", "time"},
	},
	model.EntitySleepMain: {
		table: "sleep_main",
		columns: []string{
			"id", "tz", "from_time", "to_time", "sched", "hours", "rating", "comment", "framerate",
			"snore", "noise", "cycles", "deep_sleep", "len_adjust", "geo", "tags", "merged",
		},
		conflictKeys: []string{"id"},
		mode:         modeReplace,
	},
	model.EntitySleepEvents: {
		table:   "sleep_events",
		columns: []string{"sleep_id", "kind", "timestamp", "time", "data"},
		mode:    modeReplace,
	},
	model.EntitySleepTimes: {
		table:        "sleep_times",
		columns:      []string{"sleep_id", "time", "value"},
		conflictKeys: []string{"sleep_id", "time"},
		mode:         modeReplace,
	},
	model.EntityWakaEntries: {
		table:        "waka_entries",
		columns:      []string{"date", "project", "kind", "name", "total_minutes", "percent", "digital", "hours", "minutes"},
		conflictKeys: []string{"date", "project", "kind", "name"},
		mode:         modeReplace,
	},
	model.EntityTelegram: {
		table:        "messengers_telegram",
		columns:      append([]string{"chat_id", "message_id"}, messageColumns...),
		conflictKeys: []string{"chat_id", "message_id"},
		mode:         modeReplace,
	},
	model.EntityVk: {
		table:        "messengers_vk",
		columns:      append([]string{"file", "position"}, messageColumns...),
		conflictKeys: []string{"file", "position"},
		mode:         modeReplaceScope,
		scope:        "file",
	},
	model.EntityNameMapping: {
		table:         "messengers_mapping",
		columns:       []string{"telegram", "vk"},
		conflictKeys:  []string{"telegram"},
		updateColumns: []string{"vk"},
		mode:          modeReplace,
	},
	model.EntityYoutubeChannel: {
		table:         "youtube_channel",
		columns:       []string{"id", "url", "name", "description", "country"},
		conflictKeys:  []string{"id"},
		updateColumns: []string{"url", "name", "description", "country"},
	},
	model.EntityYoutubeVideo: {
		table:         "youtube_video",
		columns:       []string{"id", "channel_id", "category_id", "name", "url", "language", "created", "duration"},
		conflictKeys:  []string{"id"},
		updateColumns: []string{"channel_id", "category_id", "name", "url", "language", "created", "duration"},
	},
	model.EntityYoutubeWatch: {
		table:         "youtube_watch",
		columns:       []string{"file", "video_id", "date", "kind", "duration"},
		conflictKeys:  []string{"file", "video_id", "date", "kind"},
		updateColumns: []string{"duration"},
		mode:          modeReplaceScope,
		scope:         "file",
	},
}

// maxParams is the SQLite limit on bound parameters per statement.
const maxParams = 999

// rowsPerStatement returns how many rows fit in one INSERT.
func (p ingestPolicy) rowsPerStatement() int {
	return max(1, maxParams/len(p.columns))
}

// insertSQL builds a multi-row INSERT for n rows with the conflict clause.
func (p ingestPolicy) insertSQL(n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.table)
	b.WriteString(" (")
	b.WriteString(strings.Join(p.columns, ", "))
	b.WriteString(") VALUES ")

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(p.columns)), ", ") + ")"
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}

	if len(p.conflictKeys) > 0 {
		b.WriteString(" ON CONFLICT(")
		b.WriteString(strings.Join(p.conflictKeys, ", "))
		b.WriteString(")")
		if len(p.updateColumns) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			sets := make([]string, len(p.updateColumns))
			for i, c := range p.updateColumns {
				sets[i] = c + " = excluded." + c
			}
			b.WriteString(" DO UPDATE SET ")
			b.WriteString(strings.Join(sets, ", "))
		}
	}
	return b.String()
}

func lookupPolicy(batch sqrt.Batch) (ingestPolicy, error) {
	policy, ok := ingestPolicies[batch.Entity]
	if !ok {
		return ingestPolicy{}, fmt.Errorf("%w: unknown entity %q", sqrt.ErrSchemaMismatch, batch.Entity)
	}
	for i, row := range batch.Rows {
		if len(row) != len(policy.columns) {
			return ingestPolicy{}, fmt.Errorf("%w: %s row %d has %d values, want %d",
				sqrt.ErrSchemaMismatch, batch.Entity, i, len(row), len(policy.columns))
		}
	}
	return policy, nil
}

// Ingest writes every batch in one transaction. Replace-mode tables are
// cleared once per call, before their first batch.
func (s *SQLiteDatabase) Ingest(ctx context.Context, batches ...sqrt.Batch) (int64, error) {
	policies := make([]ingestPolicy, len(batches))
	for i, batch := range batches {
		policy, err := lookupPolicy(batch)
		if err != nil {
			return 0, err
		}
		policies[i] = policy
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	cleared := make(map[string]bool)
	var affected int64

	for i, batch := range batches {
		policy := policies[i]
		if policy.mode == modeReplace && !cleared[policy.table] {
			if _, err := qtx.Exec(ctx, "DELETE FROM "+policy.table); err != nil {
				return 0, fmt.Errorf("clearing %s: %w", policy.table, classify(err))
			}
			cleared[policy.table] = true
		}
		if policy.mode == modeReplaceScope {
			if err := clearScopes(ctx, qtx, policy, batch.Rows); err != nil {
				return 0, err
			}
		}

		chunk := policy.rowsPerStatement()
		for start := 0; start < len(batch.Rows); start += chunk {
			rows := batch.Rows[start:min(start+chunk, len(batch.Rows))]
			args := make([]any, 0, len(rows)*len(policy.columns))
			for _, row := range rows {
				args = append(args, row...)
			}
			res, err := qtx.Exec(ctx, policy.insertSQL(len(rows)), args...)
			if err != nil {
				return 0, fmt.Errorf("inserting into %s: %w", policy.table, classify(err))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, fmt.Errorf("counting rows of %s: %w", policy.table, err)
			}
			affected += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	for _, batch := range batches {
		if batch.Entity == model.EntityMpdSong {
			s.songs.Flush()
			break
		}
	}
	return affected, nil
}

// clearScopes deletes the rows of every distinct scope value in rows.
func clearScopes(ctx context.Context, q *queries.Queries, policy ingestPolicy, rows [][]any) error {
	idx := slices.Index(policy.columns, policy.scope)
	seen := make(map[any]bool)
	for _, row := range rows {
		value := row[idx]
		if seen[value] {
			continue
		}
		seen[value] = true
		if _, err := q.Exec(ctx, "DELETE FROM "+policy.table+" WHERE "+policy.scope+" = ?", value); err != nil {
			return fmt.Errorf("clearing %s of %s: %w", policy.table, policy.scope, classify(err))
		}
	}
	return nil
}

// classify marks constraint failures, which the upsert policy cannot
// resolve, as schema mismatches.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", sqrt.ErrSchemaMismatch, err)
	}
	return err
}

// TableCounts returns the number of stored rows of every ingest entity.
func (s *SQLiteDatabase) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(ingestPolicies))
	for entity, policy := range ingestPolicies {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+policy.table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", policy.table, err)
		}
		counts[entity] = n
	}
	return counts, nil
}
