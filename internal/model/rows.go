package model

import (
	"strings"
	"time"
)

// Entity names understood by the ingestor. Each Row method below returns
// values in the column order registered for its entity.
const (
	EntityCurrentWindow        = "aw.currentwindow"
	EntityAfkStatus            = "aw.afkstatus"
	EntityWebTab               = "aw.webtab"
	EntityAppEditor            = "aw.appeditor"
	EntityAndroidCurrentWindow = "aw.android_currentwindow"
	EntityAndroidUnlock        = "aw.android_unlock"
	EntityNotAfkWindow         = "aw.notafkwindow"
	EntityAppIntervals         = "aw.app_intervals"
	EntityMpdSong              = "mpd.song"
	EntitySongListened         = "mpd.song_listened"
	EntitySleepMain            = "sleep.main"
	EntitySleepEvents          = "sleep.events"
	EntitySleepTimes           = "sleep.times"
	EntityWakaEntries          = "waka.entries"
	EntityTelegram             = "messengers.telegram"
	EntityVk                   = "messengers.vk"
	EntityNameMapping          = "messengers.mapping"
	EntityYoutubeChannel       = "youtube.channel"
	EntityYoutubeVideo         = "youtube.video"
	EntityYoutubeWatch         = "youtube.watch"
)

// TimeLayout is the storage format of timestamps. It sorts lexically.
const TimeLayout = "2006-01-02 15:04:05.000"

// DateLayout is the storage format of dates.
const DateLayout = "2006-01-02"

// FormatTime formats t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// Seconds converts fractional seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (e BucketEvent) values() []any {
	return []any{e.ID, e.BucketID, e.Hostname, e.Location, FormatTime(e.Timestamp), e.Duration}
}

func (e *AfkEvent) Row() []any {
	return append(e.values(), e.Status)
}

func (e *WindowEvent) Row() []any {
	return append(e.values(), e.App, e.Title)
}

func (e *WebTabEvent) Row() []any {
	return append(e.values(), e.URL, e.Title, e.Audible, e.Incognito, e.TabCount, e.Site, e.URLNoParams)
}

func (e *EditorEvent) Row() []any {
	return append(e.values(), e.File, e.Project, e.Language)
}

func (e *AndroidWindowEvent) Row() []any {
	return append(e.values(), e.App, e.Package, e.ClassName)
}

func (e *AndroidUnlockEvent) Row() []any {
	return e.values()
}

func (i *EffectiveInterval) Row() []any {
	return []any{i.ID, i.BucketID, i.Hostname, i.Location, FormatTime(i.Timestamp), i.Duration, i.App, i.Title}
}

func (i *AppInterval) Row() []any {
	return []any{i.App, i.Date, i.Seconds}
}

func (s *MpdSong) Row() []any {
	return []any{s.File, s.Duration, s.Artist, s.AlbumArtist, s.Album, s.Title, s.Year, s.MusicBrainzTrackID}
}

func (l *SongListened) Row() []any {
	return []any{l.SongID, FormatTime(l.Time)}
}

// Row returns the sleep_main row. Unmeasured cycles and deep sleep become NULL.
func (s *SleepSession) Row() []any {
	return []any{
		s.ID, s.Tz, FormatTime(s.From), FormatTime(s.To), formatOptionalTime(s.Sched),
		s.Hours, s.Rating, s.Comment, s.Framerate, s.Snore, s.Noise,
		positiveOrNil(s.Cycles), positiveOrNil(s.DeepSleep), s.LenAdjust,
		s.Geo, strings.Join(s.Tags, ","), s.Merged,
	}
}

// EventRows returns the sleep_events rows of the session.
func (s *SleepSession) EventRows() [][]any {
	rows := make([][]any, 0, len(s.Events))
	for _, e := range s.Events {
		rows = append(rows, []any{s.ID, e.Kind, e.Timestamp, FormatTime(e.Time()), strings.Join(e.Data, "-")})
	}
	return rows
}

// TimeRows returns the sleep_times rows of the session.
func (s *SleepSession) TimeRows() [][]any {
	rows := make([][]any, 0, len(s.Times))
	for hhmm, value := range s.Times {
		rows = append(rows, []any{s.ID, hhmm, value})
	}
	return rows
}

func (w *WakaEntry) Row() []any {
	return []any{w.Date, w.Project, w.Kind, w.Name, w.TotalMinutes, w.Percent, w.Digital, w.Hours, w.Minutes}
}

func (m Message) values() []any {
	return []any{m.Target, m.Sender, m.IsOutgoing, m.IsGroup, m.Text, FormatTime(m.Date), m.IsEdited}
}

func (m *TelegramMessage) Row() []any {
	return append([]any{m.ChatID, m.MessageID}, m.values()...)
}

func (m *VkMessage) Row() []any {
	return append([]any{m.File, m.Position}, m.values()...)
}

func (m *NameMapping) Row() []any {
	return []any{m.Telegram, m.Vk}
}

func (c *YoutubeChannel) Row() []any {
	return []any{c.ID, c.URL, c.Name, emptyOrNil(c.Description), emptyOrNil(c.Country)}
}

func (v *YoutubeVideo) Row() []any {
	return []any{
		v.ID, v.ChannelID, emptyOrNil(v.CategoryID), v.Name, v.URL,
		emptyOrNil(v.Language), formatOptionalTime(v.Created), v.Duration,
	}
}

func (w *YoutubeWatch) Row() []any {
	return []any{w.File, w.VideoID, w.Date, w.Kind, w.Duration}
}

func emptyOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func positiveOrNil(v float64) any {
	if v > 0 {
		return v
	}
	return nil
}

func formatOptionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}
