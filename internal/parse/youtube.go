package parse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sqrt-go/internal/model"
)

// MpvWatch is the playing time of one YouTube video on one day.
type MpvWatch struct {
	VideoID  string
	Date     string
	Duration float64 // seconds
}

// MpvLog is the result of reading an mpv watch log.
type MpvLog struct {
	Watches []MpvWatch
	Open    string // video still playing when the log ends, or ""
	Skipped int    // lines that are not JSON
}

// MpvWatchLog reads the JSON lines ({"kind", "time", "path"}) that the mpv
// watch script writes. Playing time runs from "loaded" or "play" to "pause",
// "stop" or "end" and is summed per video and day of the closing event.
// Files other than YouTube videos are ignored.
func MpvWatchLog(r io.Reader) (*MpvLog, error) {
	log := &MpvLog{}
	index := make(map[[2]string]int)

	var (
		current string
		since   time.Time // zero while paused
		watched float64
	)
	elapse := func(t time.Time) {
		if !since.IsZero() {
			watched += t.Sub(since).Seconds()
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if !gjson.ValidBytes(raw) {
			log.Skipped++
			continue
		}
		kind, stamp := gjson.GetBytes(raw, "kind"), gjson.GetBytes(raw, "time")
		if !kind.Exists() || !stamp.Exists() {
			continue
		}
		t, err := Timestamp(stamp.String())
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}

		switch kind.String() {
		case "loaded":
			current, since, watched = "", time.Time{}, 0
			if path := gjson.GetBytes(raw, "path").String(); strings.Contains(path, "youtube.com") {
				if id := YoutubeVideoID(path); id != "" {
					current, since = id, t
				}
			}
		case "play":
			if current != "" && since.IsZero() {
				since = t
			}
		case "pause":
			if current != "" {
				elapse(t)
				since = time.Time{}
			}
		case "seek":
			if current != "" && !since.IsZero() {
				elapse(t)
				since = t
			}
		case "stop", "end":
			if current == "" {
				continue
			}
			elapse(t)
			key := [2]string{current, t.Format(model.DateLayout)}
			if i, ok := index[key]; ok {
				log.Watches[i].Duration += watched
			} else {
				index[key] = len(log.Watches)
				log.Watches = append(log.Watches, MpvWatch{VideoID: key[0], Date: key[1], Duration: watched})
			}
			current, since, watched = "", time.Time{}, 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	log.Open = current
	return log, nil
}

// YoutubeVideoID returns the "v" query parameter of a watch URL, or "".
func YoutubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Query().Get("v"), "]")
}

// ISODuration converts an ISO 8601 duration such as "PT1H2M3S" to seconds.
// Years and months have no fixed length and are rejected.
func ISODuration(s string) (int, error) {
	rest, ok := strings.CutPrefix(s, "P")
	if !ok || rest == "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	units := map[byte]int{'W': 7 * 86400, 'D': 86400}
	total, inTime, digits := 0, false, ""
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c >= '0' && c <= '9':
			digits += string(c)
		case c == 'T' && !inTime && digits == "":
			inTime = true
			units = map[byte]int{'H': 3600, 'M': 60, 'S': 1}
		default:
			unit, ok := units[c]
			if !ok || digits == "" {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			n, _ := strconv.Atoi(digits)
			total += n * unit
			digits = ""
		}
	}
	if digits != "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}

// YoutubeVideo decodes a videos.list response with the snippet and
// contentDetails parts. It returns nil when the response has no items.
func YoutubeVideo(data []byte) (*model.YoutubeVideo, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	item := gjson.GetBytes(data, "items.0")
	if !item.Exists() {
		return nil, nil
	}
	id := item.Get("id").String()
	duration, err := ISODuration(item.Get("contentDetails.duration").String())
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", id, err)
	}
	video := &model.YoutubeVideo{
		ID:         id,
		ChannelID:  item.Get("snippet.channelId").String(),
		CategoryID: item.Get("snippet.categoryId").String(),
		Name:       item.Get("snippet.title").String(),
		URL:        "https://youtube.com/watch?v=" + id,
		Language:   item.Get("snippet.defaultLanguage").String(),
		Duration:   duration,
	}
	if video.ChannelID == "" {
		return nil, fmt.Errorf("video %s: missing channel", id)
	}
	if published := item.Get("snippet.publishedAt").String(); published != "" {
		if video.Created, err = Timestamp(published); err != nil {
			return nil, fmt.Errorf("video %s: %w", id, err)
		}
	}
	return video, nil
}

// YoutubeChannel decodes a channels.list response for the channel id.
// A channel the API does not return is kept under the name "unknown".
func YoutubeChannel(data []byte, id string) (*model.YoutubeChannel, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	channel := &model.YoutubeChannel{ID: id, URL: "https://youtube.com/c/" + id, Name: "unknown"}
	if snippet := gjson.GetBytes(data, "items.0.snippet"); snippet.Exists() {
		channel.Name = snippet.Get("title").String()
		channel.Description = snippet.Get("description").String()
		channel.Country = snippet.Get("country").String()
	}
	return channel, nil
}
