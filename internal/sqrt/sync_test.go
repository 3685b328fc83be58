package sqrt_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sqrt-go/internal/sqrt"
)

func newSync(env *testEnv) *sqrt.IncrementalSync {
	return sqrt.NewIncrementalSync(env.svc.Hasher(), sqrt.NewNopLogger())
}

func addResources(t *testing.T, env *testEnv, contents map[string]string) []*sqrt.Resource {
	t.Helper()
	for p, c := range contents {
		env.fsmgr.AddFile(p, []byte(c))
	}
	resources, err := env.fsmgr.FindFiles("/data/in", "*.csv", false)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}
	return resources
}

func TestIncrementalSync_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("imports each changed resource once", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resources := addResources(t, env, map[string]string{
			"/data/in/a.csv": "a",
			"/data/in/b.csv": "b",
		})

		imported := map[string]int{}
		imp := sqrt.ImporterFunc(func(ctx context.Context, res *sqrt.Resource) error {
			imported[res.ID()]++
			return nil
		})

		report, err := newSync(env).Run(ctx, "test", resources, imp)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if report.Examined != 2 || report.Imported != 2 || report.Skipped != 0 {
			t.Errorf("first report = %+v", report)
		}

		report, err = newSync(env).Run(ctx, "test", resources, imp)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if report.Imported != 0 || report.Skipped != 2 || report.Err() != nil {
			t.Errorf("second report = %+v", report)
		}
		for id, n := range imported {
			if n != 1 {
				t.Errorf("%s imported %d times, want 1", id, n)
			}
		}
	})

	t.Run("failed resource keeps its previous hash and the batch continues", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resources := addResources(t, env, map[string]string{
			"/data/in/a.csv": "a",
			"/data/in/b.csv": "b",
		})
		// A stale hash from an earlier import of a.
		if err := env.db.PutResourceHash(ctx, "/data/in/a.csv", "stale"); err != nil {
			t.Fatalf("PutResourceHash() error = %v", err)
		}

		imp := sqrt.ImporterFunc(func(ctx context.Context, res *sqrt.Resource) error {
			if res.Name() == "a.csv" {
				return &sqrt.ParseError{Resource: res.ID(), Line: 3, Err: errors.New("bad row")}
			}
			return nil
		})

		report, err := newSync(env).Run(ctx, "test", resources, imp)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if report.Imported != 1 || len(report.Failures) != 1 || report.Failures[0].ResourceID != "/data/in/a.csv" {
			t.Fatalf("report = %+v", report)
		}
		var pe *sqrt.ParseError
		if !errors.As(report.Err(), &pe) || pe.Line != 3 {
			t.Errorf("report.Err() = %v, want ParseError at line 3", report.Err())
		}

		stored, _ := env.db.GetResourceHash(ctx, "/data/in/a.csv")
		if stored == nil || stored.ContentHash != "stale" {
			t.Errorf("hash of failed resource = %+v, want unchanged", stored)
		}
		if updated, _ := env.svc.Hasher().IsUpdated(ctx, env.resolve(t, "/data/in/b.csv")); updated {
			t.Error("imported resource should not be updated")
		}
	})

	t.Run("referential gap withholds the hash", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resources := addResources(t, env, map[string]string{"/data/in/log.csv": "x"})

		imp := sqrt.ImporterFunc(func(ctx context.Context, res *sqrt.Resource) error {
			return &sqrt.ReferentialGapError{Resource: res.ID(), Missing: []string{"song.flac"}}
		})

		report, err := newSync(env).Run(ctx, "test", resources, imp)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		var gap *sqrt.ReferentialGapError
		if !errors.As(report.Err(), &gap) {
			t.Fatalf("report.Err() = %v, want ReferentialGapError", report.Err())
		}
		if stored, _ := env.db.GetResourceHash(ctx, "/data/in/log.csv"); stored != nil {
			t.Errorf("hash saved despite gap: %+v", stored)
		}
	})

	abortTests := []struct {
		name string
		err  error
	}{
		{"transient source error aborts", &sqrt.TransientSourceError{Source: "test", Err: errors.New("disk gone")}},
		{"schema mismatch aborts", fmt.Errorf("ingesting: %w", sqrt.ErrSchemaMismatch)},
	}
	for _, tt := range abortTests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			resources := addResources(t, env, map[string]string{
				"/data/in/a.csv": "a",
				"/data/in/b.csv": "b",
			})

			calls := 0
			imp := sqrt.ImporterFunc(func(ctx context.Context, res *sqrt.Resource) error {
				calls++
				return tt.err
			})

			report, err := newSync(env).Run(ctx, "test", resources, imp)
			if err == nil {
				t.Fatal("Run() expected error")
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Run() error = %v, want wrapping %v", err, tt.err)
			}
			if calls != 1 || report.Examined != 1 {
				t.Errorf("calls = %d, examined = %d, want 1, 1", calls, report.Examined)
			}
			hashes, _ := env.db.ListResourceHashes(ctx)
			if len(hashes) != 0 {
				t.Errorf("%d hashes saved, want 0", len(hashes))
			}
		})
	}

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resources := addResources(t, env, map[string]string{"/data/in/a.csv": "a"})

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newSync(env).Run(cctx, "test", resources, sqrt.ImporterFunc(func(context.Context, *sqrt.Resource) error {
			t.Error("importer called after cancel")
			return nil
		}))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	})

	t.Run("renamed copy with identical content is a distinct resource", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resources := addResources(t, env, map[string]string{
			"/data/in/a.csv":      "same bytes",
			"/data/in/a-copy.csv": "same bytes",
		})

		imp := sqrt.ImporterFunc(func(context.Context, *sqrt.Resource) error { return nil })
		report, err := newSync(env).Run(ctx, "test", resources, imp)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if report.Imported != 2 {
			t.Errorf("first run imported %d, want 2", report.Imported)
		}

		for _, res := range resources {
			if updated, _ := env.svc.Hasher().IsUpdated(ctx, res); updated {
				t.Errorf("%s updated after first sync", res.ID())
			}
		}
	})
}

func TestIncrementalSync_StoresHashOfImportedContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	resources := addResources(t, env, map[string]string{"/data/in/live.csv": "first line\n"})

	// The file grows while it is being imported.
	imp := sqrt.ImporterFunc(func(ctx context.Context, res *sqrt.Resource) error {
		env.fsmgr.AddFile(res.ID(), []byte("first line\nsecond line\n"))
		return nil
	})
	if _, err := newSync(env).Run(ctx, "test", resources, imp); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	updated, err := env.svc.Hasher().IsUpdated(ctx, env.resolve(t, "/data/in/live.csv"))
	if err != nil {
		t.Fatalf("IsUpdated() error = %v", err)
	}
	if !updated {
		t.Error("appended content would never be imported")
	}
}
