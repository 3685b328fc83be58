package sqrt

import (
	"context"
	"errors"
	"fmt"
)

// Importer loads one resource into the warehouse.
type Importer interface {
	Import(ctx context.Context, res *Resource) error
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(ctx context.Context, res *Resource) error

func (f ImporterFunc) Import(ctx context.Context, res *Resource) error { return f(ctx, res) }

// ResourceFailure is a per-resource error recorded by IncrementalSync.
type ResourceFailure struct {
	ResourceID string
	Err        error
}

// SyncReport summarizes one IncrementalSync run.
type SyncReport struct {
	Source   string
	Examined int
	Skipped  int // unchanged since the last successful import
	Imported int
	Failures []ResourceFailure
}

// Err joins the per-resource failures, or returns nil if there were none.
func (r *SyncReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.ResourceID, f.Err))
	}
	return errors.Join(errs...)
}

// IncrementalSync imports the resources whose content changed since their
// last successful import and advances their hash only on full success.
type IncrementalSync struct {
	hasher *ContentHasher
	logger Logger
}

// NewIncrementalSync creates an IncrementalSync backed by hasher.
func NewIncrementalSync(hasher *ContentHasher, logger Logger) *IncrementalSync {
	return &IncrementalSync{hasher: hasher, logger: logger}
}

// Run imports every updated resource with imp. A failing resource is logged
// and recorded in the report and the batch continues; its hash is left as
// it was. Schema mismatches, transient source errors and cancellation abort
// the batch and are returned together with the partial report.
func (s *IncrementalSync) Run(ctx context.Context, source string, resources []*Resource, imp Importer) (*SyncReport, error) {
	report := &SyncReport{Source: source}

	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Examined++

		hash, updated, err := s.hasher.check(ctx, res)
		if err != nil {
			s.fail(report, res, err)
			continue
		}
		if !updated {
			report.Skipped++
			continue
		}

		if err := imp.Import(ctx, res); err != nil {
			if isFatal(err) || ctx.Err() != nil {
				s.logger.Error("sync aborted", "source", source, "resource", res.ID(), "error", err)
				return report, fmt.Errorf("importing %s: %w", res.ID(), err)
			}
			s.fail(report, res, err)
			continue
		}

		if err := s.hasher.store(ctx, res, hash); err != nil {
			s.fail(report, res, err)
			continue
		}
		report.Imported++
		s.logger.Info("resource imported", "source", source, "resource", res.ID())
	}

	return report, nil
}

func (s *IncrementalSync) fail(report *SyncReport, res *Resource, err error) {
	var gap *ReferentialGapError
	if errors.As(err, &gap) {
		s.logger.Warn("resource partially imported, hash withheld", "resource", res.ID(), "missing", len(gap.Missing))
	} else {
		s.logger.Error("resource import failed", "resource", res.ID(), "error", err)
	}
	report.Failures = append(report.Failures, ResourceFailure{ResourceID: res.ID(), Err: err})
}
