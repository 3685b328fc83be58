package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"sqrt-go/internal/model"
)

// SleepDateLayout is the date format of Sleep as Android exports.
const SleepDateLayout = "02. 01. 2006 15:04"

var (
	sleepTimeKey = regexp.MustCompile(`^\d+:\d+$`)
	hashtag      = regexp.MustCompile(`#\S+`)
)

// SleepCSV parses a Sleep as Android export. The file is a sequence of
// header/data line pairs; a header starts with "Id". geos maps raw Geo
// values to location names and may be nil.
func SleepCSV(r io.Reader, geos map[string]string) ([]*model.SleepSession, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		keys     []string
		sessions []*model.SleepSession
	)
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &LineError{Line: pe.Line, Err: pe.Err}
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		if keys == nil {
			if strings.TrimSpace(fields[0]) == "Id" {
				keys = fields
			}
			continue
		}

		session, err := sleepSession(keys, fields, geos)
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		sessions = append(sessions, session)
		keys = nil
	}

	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].From.Before(sessions[j].From) })
	return sessions, nil
}

func sleepSession(keys, fields []string, geos map[string]string) (*model.SleepSession, error) {
	s := &model.SleepSession{Times: make(map[string]float64)}

	n := min(len(keys), len(fields))
	for i := 0; i < n; i++ {
		key := strings.TrimSpace(keys[i])
		value := strings.TrimSpace(fields[i])

		var err error
		switch {
		case key == "Event":
			var evt model.SleepEvent
			if evt, err = SleepEvent(value); err == nil {
				s.Events = append(s.Events, evt)
			}
		case sleepTimeKey.MatchString(key):
			s.Times[key], err = sleepNumber(value)
		case key == "Id":
			s.ID, err = strconv.ParseInt(value, 10, 64)
		case key == "Tz":
			s.Tz = value
		case key == "From":
			s.From, err = sleepDate(value)
		case key == "To":
			s.To, err = sleepDate(value)
		case key == "Sched":
			s.Sched, err = sleepDate(value)
		case key == "Hours":
			s.Hours, err = sleepNumber(value)
		case key == "Rating":
			s.Rating, err = sleepNumber(value)
		case key == "Framerate":
			s.Framerate, err = sleepNumber(value)
		case key == "Snore":
			s.Snore, err = sleepNumber(value)
		case key == "Noise":
			s.Noise, err = sleepNumber(value)
		case key == "Cycles":
			s.Cycles, err = sleepNumber(value)
		case key == "DeepSleep":
			s.DeepSleep, err = sleepNumber(value)
		case key == "LenAdjust":
			s.LenAdjust, err = sleepNumber(value)
		case key == "Comment":
			s.Tags, s.Comment = SleepTags(value)
		case key == "Geo":
			s.Geo = value
			if name, ok := geos[value]; ok {
				s.Geo = name
			}
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", key, err)
		}
	}

	if s.From.IsZero() || s.To.IsZero() {
		return nil, fmt.Errorf("session %d has no From/To", s.ID)
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].Timestamp < s.Events[j].Timestamp })
	return s, nil
}

// SleepEvent parses "KIND-<unix ms>[-data...]".
func SleepEvent(raw string) (model.SleepEvent, error) {
	parts := strings.Split(raw, "-")
	if len(parts) < 2 {
		return model.SleepEvent{}, fmt.Errorf("malformed event %q", raw)
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return model.SleepEvent{}, fmt.Errorf("event %q: %w", raw, err)
	}
	return model.SleepEvent{Kind: parts[0], Timestamp: ms, Data: parts[2:]}, nil
}

// SleepTags extracts the hashtags of a comment and returns them without
// the "#" together with the remaining comment.
func SleepTags(comment string) (tags []string, rest string) {
	for _, tag := range hashtag.FindAllString(comment, -1) {
		tags = append(tags, tag[1:])
	}
	rest = hashtag.ReplaceAllString(comment, "")
	return tags, strings.Join(strings.Fields(rest), " ")
}

func sleepDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(SleepDateLayout, value, time.UTC)
}

func sleepNumber(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
