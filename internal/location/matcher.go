// Package location resolves where the user was when a sample was taken.
package location

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"sqrt-go/internal/config"
	"sqrt-go/internal/parse"
	"sqrt-go/internal/sqrt"
)

type period struct {
	start    time.Time
	location string
	offset   time.Duration
}

type pin struct {
	location string
	offset   time.Duration
}

// Matcher maps samples to locations from three tables: the UTC offset of
// every location, the dated list of stays and the hosts pinned to one place.
// A pinned hostname wins over the list.
type Matcher struct {
	periods []period // ascending by start
	pins    map[string]pin
}

var _ sqrt.LocationResolver = (*Matcher)(nil)

// NewMatcher builds a Matcher from the CSV tables. hostnames may be nil.
// Every location named by the list or the pins must have a timezone.
func NewMatcher(timezones, list, hostnames io.Reader) (*Matcher, error) {
	offsets, err := parse.TimezonesCSV(timezones)
	if err != nil {
		return nil, fmt.Errorf("reading timezones: %w", err)
	}
	offsetOf := func(loc string) (time.Duration, error) {
		hours, ok := offsets[loc]
		if !ok {
			return 0, fmt.Errorf("location %q has no timezone", loc)
		}
		return time.Duration(hours) * time.Hour, nil
	}

	stays, err := parse.LocationListCSV(list)
	if err != nil {
		return nil, fmt.Errorf("reading location list: %w", err)
	}
	m := &Matcher{pins: make(map[string]pin)}
	for _, s := range stays {
		offset, err := offsetOf(s.Location)
		if err != nil {
			return nil, fmt.Errorf("location list: %w", err)
		}
		m.periods = append(m.periods, period{start: s.Start, location: s.Location, offset: offset})
	}
	sort.SliceStable(m.periods, func(i, j int) bool { return m.periods[i].start.Before(m.periods[j].start) })

	if hostnames != nil {
		hosts, err := parse.HostnamesCSV(hostnames)
		if err != nil {
			return nil, fmt.Errorf("reading hostnames: %w", err)
		}
		for _, h := range hosts {
			if _, ok := m.pins[h.Hostname]; ok {
				continue // first pin wins
			}
			offset, err := offsetOf(h.Location)
			if err != nil {
				return nil, fmt.Errorf("hostnames: %w", err)
			}
			m.pins[h.Hostname] = pin{location: h.Location, offset: offset}
		}
	}
	return m, nil
}

// NewMatcherFromConfig loads the tables named by cfg. It returns nil when no
// table is configured, which leaves samples unlocalized.
func NewMatcherFromConfig(cfg config.LocationConfig) (*Matcher, error) {
	if cfg.TzCSV == "" && cfg.ListCSV == "" && cfg.HostnamesCSV == "" {
		return nil, nil
	}
	if cfg.TzCSV == "" || cfg.ListCSV == "" {
		return nil, fmt.Errorf("location requires both tz_csv and list_csv")
	}

	tz, err := os.Open(cfg.TzCSV)
	if err != nil {
		return nil, err
	}
	defer tz.Close()
	list, err := os.Open(cfg.ListCSV)
	if err != nil {
		return nil, err
	}
	defer list.Close()

	var hosts io.Reader
	if cfg.HostnamesCSV != "" {
		f, err := os.Open(cfg.HostnamesCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		hosts = f
	}
	return NewMatcher(tz, list, hosts)
}

// Resolve returns the location of the sample and ts shifted to its wall
// clock. Samples older than the first stay of an unpinned host keep ts and
// get no location.
func (m *Matcher) Resolve(ts time.Time, hostname string) (string, time.Time) {
	if p, ok := m.pins[hostname]; ok && hostname != "" {
		return p.location, ts.Add(p.offset)
	}
	// Index of the first stay starting at or after ts.
	i := sort.Search(len(m.periods), func(i int) bool { return !m.periods[i].start.Before(ts) })
	if i == 0 {
		return "", ts
	}
	p := m.periods[i-1]
	return p.location, ts.Add(p.offset)
}
