// Package parse decodes the raw exports of every source into model records.
// Parsers never touch the filesystem or the database.
package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// LineError reports the line of the input that could not be decoded.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Line returns the line number carried by err, or 0.
func Line(err error) int {
	var le *LineError
	if errors.As(err, &le) {
		return le.Line
	}
	return 0
}

// record is a CSV row addressed by header name.
type record struct {
	columns map[string]int
	fields  []string
	line    int
}

func (r *record) has(name string) bool {
	_, ok := r.columns[name]
	return ok
}

func (r *record) str(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r *record) number(name string) (float64, error) {
	s := strings.TrimSpace(r.str(name))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, r.errorf("column %s: %w", name, err)
	}
	return v, nil
}

func (r *record) integer(name string) (int64, error) {
	v, err := r.number(name)
	return int64(v), err
}

func (r *record) boolean(name string) (bool, error) {
	s := strings.TrimSpace(r.str(name))
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, r.errorf("column %s: %w", name, err)
	}
	return v, nil
}

func (r *record) timestamp(name string) (time.Time, error) {
	t, err := Timestamp(r.str(name))
	if err != nil {
		return time.Time{}, r.errorf("column %s: %w", name, err)
	}
	return t, nil
}

func (r *record) errorf(format string, args ...any) error {
	return &LineError{Line: r.line, Err: fmt.Errorf(format, args...)}
}

// readTable reads a headed CSV and calls fn for every data row.
// required lists columns that must be present in the header.
func readTable(r io.Reader, required []string, fn func(rec *record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return &LineError{Line: 1, Err: err}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return &LineError{Line: 1, Err: fmt.Errorf("missing column %q", name)}
		}
	}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return &LineError{Line: pe.Line, Err: pe.Err}
			}
			return err
		}
		line, _ := cr.FieldPos(0)
		if err := fn(&record{columns: columns, fields: fields, line: line}); err != nil {
			return err
		}
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
}

// Timestamp parses the timestamp formats written by the exporters.
// Zoned values are converted to UTC; naive values are taken as UTC.
func Timestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
