package sqrt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch is returned when rows do not fit the warehouse layout.
// It aborts the whole batch.
var ErrSchemaMismatch = errors.New("schema mismatch")

// TransientSourceError wraps network or disk failures reading a source.
// The source job is aborted and retried on the next run.
type TransientSourceError struct {
	Source string
	Err    error
}

func (e *TransientSourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *TransientSourceError) Unwrap() error { return e.Err }

// ParseError means a resource could not be decoded. Its hash is not advanced.
type ParseError struct {
	Resource string
	Line     int // 0 when unknown
	Err      error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing %s line %d: %v", e.Resource, e.Line, e.Err)
	}
	return fmt.Sprintf("parsing %s: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReferentialGapError means some records referenced entities that do not
// exist. The other records were written but the resource hash is withheld.
type ReferentialGapError struct {
	Resource string
	Missing  []string
}

func (e *ReferentialGapError) Error() string {
	const shown = 5
	missing := e.Missing
	suffix := ""
	if len(missing) > shown {
		suffix = fmt.Sprintf(" and %d more", len(missing)-shown)
		missing = missing[:shown]
	}
	return fmt.Sprintf("%s references %d missing entities: %s%s", e.Resource, len(e.Missing), strings.Join(missing, ", "), suffix)
}

// isFatal reports whether err must stop a batch instead of being recorded
// against a single resource.
func isFatal(err error) bool {
	var transient *TransientSourceError
	return errors.Is(err, ErrSchemaMismatch) || errors.As(err, &transient)
}
