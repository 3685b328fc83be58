package parse

import (
	"io"
	"strings"
	"time"
)

// LocationPeriod says the user stayed at Location from Start on.
type LocationPeriod struct {
	Start    time.Time
	Location string
}

// HostPin ties every sample of a host to a fixed location.
type HostPin struct {
	Hostname string
	Location string
}

// TimezonesCSV reads the "location,timezone" table. Offsets are whole hours.
func TimezonesCSV(r io.Reader) (map[string]int, error) {
	out := make(map[string]int)
	err := readTable(r, []string{"location", "timezone"}, func(rec *record) error {
		name := strings.TrimSpace(rec.str("location"))
		if name == "" {
			return rec.errorf("empty location")
		}
		if _, ok := out[name]; ok {
			return rec.errorf("duplicate location %q", name)
		}
		offset, err := rec.integer("timezone")
		if err != nil {
			return err
		}
		if offset < -12 || offset > 14 {
			return rec.errorf("timezone offset %d out of range", offset)
		}
		out[name] = int(offset)
		return nil
	})
	return out, err
}

// LocationListCSV reads the "start_time,location" table in file order.
func LocationListCSV(r io.Reader) ([]LocationPeriod, error) {
	var out []LocationPeriod
	err := readTable(r, []string{"start_time", "location"}, func(rec *record) error {
		start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(rec.str("start_time")), time.UTC)
		if err != nil {
			if start, err = rec.timestamp("start_time"); err != nil {
				return err
			}
		}
		out = append(out, LocationPeriod{Start: start, Location: strings.TrimSpace(rec.str("location"))})
		return nil
	})
	return out, err
}

// HostnamesCSV reads the "hostname,location" table.
func HostnamesCSV(r io.Reader) ([]HostPin, error) {
	var out []HostPin
	err := readTable(r, []string{"hostname", "location"}, func(rec *record) error {
		host := strings.TrimSpace(rec.str("hostname"))
		if host == "" {
			return rec.errorf("empty hostname")
		}
		out = append(out, HostPin{Hostname: host, Location: strings.TrimSpace(rec.str("location"))})
		return nil
	})
	return out, err
}
