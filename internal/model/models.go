package model

import (
	"database/sql"
	"time"
)

// BucketEvent is the common part of every ActivityWatch event.
// The ID is "<bucket_id>-<raw event id>" and is unique within its table.
type BucketEvent struct {
	ID        string
	BucketID  string
	Hostname  string
	Location  string    // resolved by the location matcher, empty if unknown
	Timestamp time.Time // naive wall-clock time of the resolved location
	Duration  float64   // seconds, never negative
}

// End returns Timestamp + Duration.
func (e BucketEvent) End() time.Time {
	return e.Timestamp.Add(Seconds(e.Duration))
}

// AfkEvent is a sample of the AFK watcher.
type AfkEvent struct {
	BucketEvent
	Status bool // true means the user was at the computer ("not-afk")
}

// WindowEvent is a sample of the focused-window watcher.
type WindowEvent struct {
	BucketEvent
	App   string
	Title string
}

// WebTabEvent is a sample of the browser watcher.
type WebTabEvent struct {
	BucketEvent
	URL         string
	Title       string
	Audible     bool
	Incognito   bool
	TabCount    int64
	Site        string // registrable domain of URL
	URLNoParams string // URL without query and fragment
}

// EditorEvent is a sample of an editor watcher.
type EditorEvent struct {
	BucketEvent
	File     string
	Project  string
	Language string
}

// AndroidWindowEvent is a focused-app sample exported from the Android client.
type AndroidWindowEvent struct {
	BucketEvent
	App       string
	Package   string
	ClassName string
}

// AndroidUnlockEvent is a screen unlock exported from the Android client.
type AndroidUnlockEvent struct {
	BucketEvent
}

// EffectiveInterval is a window interval reconciled against AFK status.
// App and Title are "AFK" when the user was away.
type EffectiveInterval struct {
	ID        string // "afkw-<window suffix>-<afk suffix>"
	BucketID  string
	Hostname  string
	Location  string
	Timestamp time.Time
	Duration  float64
	App       string
	Title     string
}

// DayCount is the number of window events recorded on a date.
type DayCount struct {
	Date  string // YYYY-MM-DD
	Count int64
}

// AppInterval is the total time spent in a tracked app on a date.
type AppInterval struct {
	App     string
	Date    string
	Seconds float64
}

// SleepEvent is one entry of the Event columns of a sleep export.
type SleepEvent struct {
	Kind      string
	Timestamp int64    // unix milliseconds
	Data      []string // remaining dash-separated values
}

// Time returns the event timestamp as a UTC time.
func (e SleepEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// SleepSession is one night (or nap) of the sleep export.
// Values <= 0 of Cycles and DeepSleep mean "not measured".
type SleepSession struct {
	ID        int64
	Tz        string
	From      time.Time
	To        time.Time
	Sched     time.Time
	Hours     float64
	Rating    float64
	Framerate float64
	Snore     float64
	Noise     float64
	Cycles    float64
	DeepSleep float64 // fraction of the session spent in deep sleep
	LenAdjust float64
	Geo       string
	Comment   string // with hashtags removed
	Tags      []string
	Events    []SleepEvent
	Times     map[string]float64 // "HH:MM" -> actigraphy value
	Merged    bool
}

// MpdSong is one entry of the MPD library.
type MpdSong struct {
	ID                 int64
	File               string // unique within the library
	Duration           float64
	Artist             string
	AlbumArtist        string
	Album              string
	Title              string
	Year               string
	MusicBrainzTrackID string
}

// SongListen is a raw line of the MPD listening log.
type SongListen struct {
	File        string
	Artist      string
	AlbumArtist string
	Title       string
	Album       string
	Time        time.Time
	Type        string // "listened" or "skipped"
}

// SongListened links a library song to a listening time.
type SongListened struct {
	SongID int64
	Time   time.Time
}

// WakaEntry is a per-day, per-project aggregate from a WakaTime dump.
// Kind is the dump key ("languages", "editors", "grand_total", ...).
type WakaEntry struct {
	Date         string
	Project      string
	Kind         string
	Name         string // empty for grand_total
	TotalMinutes float64
	Percent      float64
	Digital      string
	Hours        int64
	Minutes      int64
}

// Message is one chat message of a messenger export.
type Message struct {
	Target     string // the other person of a personal chat, or the chat name
	Sender     string
	IsOutgoing bool
	IsGroup    bool
	Text       string
	Date       time.Time
	IsEdited   bool
}

// TelegramMessage is a message of the Telegram "machine-readable JSON" export.
type TelegramMessage struct {
	ChatID    int64
	MessageID int64
	Message
}

// VkMessage is a message of a VK archive page. File is relative to the
// messages directory of the archive; Position counts from 0 within it.
type VkMessage struct {
	File     string
	Position int
	Message
}

// NameMapping identifies a Telegram display name with a VK one.
type NameMapping struct {
	Telegram string
	Vk       string
}

// YoutubeChannel is a channel as described by the YouTube Data API.
type YoutubeChannel struct {
	ID          string
	URL         string
	Name        string
	Description string
	Country     string
}

// YoutubeVideo is a video as described by the YouTube Data API.
type YoutubeVideo struct {
	ID         string
	ChannelID  string
	CategoryID string
	Name       string
	URL        string
	Language   string
	Created    time.Time
	Duration   int // seconds
}

// YoutubeWatch is the time spent on one video on one day, as counted from
// the log File.
type YoutubeWatch struct {
	File     string
	VideoID  string
	Date     string // YYYY-MM-DD
	Kind     string // player that wrote the log, "mpv"
	Duration float64
}

// ResourceHash is the stored content hash of an input resource.
type ResourceHash struct {
	ResourceID  string // absolute path
	ContentHash string // lowercase hex SHA-256, or "0" to force reprocessing
	UpdatedAt   time.Time
}

// SyncOperation records one mutating run of a sync job.
type SyncOperation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string // "running", "success" or "error"
}
