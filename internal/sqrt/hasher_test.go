package sqrt_test

import (
	"context"
	"testing"

	"sqrt-go/internal/sqrt"
	"sqrt-go/internal/testutil"
)

func TestContentHasher_Hash(t *testing.T) {
	env := newTestEnv(t, nil)
	content := []byte("timestamp,duration,status\n")
	env.fsmgr.AddFile("/data/aw/logs/a.csv", content)

	got, err := env.svc.Hasher().Hash(env.resolve(t, "/data/aw/logs/a.csv"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if want := testutil.SHA256Hex(content); got != want {
		t.Errorf("Hash() = %s, want %s", got, want)
	}
}

func TestContentHasher_IsUpdated(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown resource is updated and nothing is stored", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.fsmgr.AddFile("/data/a.csv", []byte("a"))
		res := env.resolve(t, "/data/a.csv")
		h := env.svc.Hasher()

		for i := range 2 {
			updated, err := h.IsUpdated(ctx, res)
			if err != nil {
				t.Fatalf("IsUpdated() #%d error = %v", i, err)
			}
			if !updated {
				t.Errorf("IsUpdated() #%d = false, want true", i)
			}
		}
		stored, err := env.db.GetResourceHash(ctx, res.ID())
		if err != nil {
			t.Fatalf("GetResourceHash() error = %v", err)
		}
		if stored != nil {
			t.Errorf("IsUpdated() stored a hash: %+v", stored)
		}
	})

	t.Run("saved resource is unchanged until its content changes", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.fsmgr.AddFile("/data/a.csv", []byte("a"))
		h := env.svc.Hasher()

		if err := h.SaveHash(ctx, env.resolve(t, "/data/a.csv")); err != nil {
			t.Fatalf("SaveHash() error = %v", err)
		}
		if updated, err := h.IsUpdated(ctx, env.resolve(t, "/data/a.csv")); err != nil || updated {
			t.Fatalf("IsUpdated() after save = %v, %v, want false, nil", updated, err)
		}

		env.fsmgr.AddFile("/data/a.csv", []byte("a, appended"))
		if updated, err := h.IsUpdated(ctx, env.resolve(t, "/data/a.csv")); err != nil || !updated {
			t.Errorf("IsUpdated() after change = %v, %v, want true, nil", updated, err)
		}
	})
}

func TestContentHasher_ToggleHash(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.fsmgr.AddFile("/data/a.csv", []byte("a"))
	res := env.resolve(t, "/data/a.csv")
	h := env.svc.Hasher()

	if err := h.SaveHash(ctx, res); err != nil {
		t.Fatalf("SaveHash() error = %v", err)
	}

	updated, err := h.ToggleHash(ctx, res)
	if err != nil {
		t.Fatalf("ToggleHash() error = %v", err)
	}
	if !updated {
		t.Error("ToggleHash() of processed resource = false, want true")
	}
	stored, _ := env.db.GetResourceHash(ctx, res.ID())
	if stored == nil || stored.ContentHash != sqrt.ForceHash {
		t.Errorf("stored hash = %+v, want %q", stored, sqrt.ForceHash)
	}
	if content, _ := env.fsmgr.Content(res.ID()); string(content) != "a" {
		t.Errorf("ToggleHash() touched the resource: %q", content)
	}

	updated, err = h.ToggleHash(ctx, res)
	if err != nil {
		t.Fatalf("second ToggleHash() error = %v", err)
	}
	if updated {
		t.Error("second ToggleHash() = true, want false")
	}
	if isUpdated, _ := h.IsUpdated(ctx, res); isUpdated {
		t.Error("resource should be processed after toggling back")
	}
}

func TestContentHasher_StatusesAndCleanup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	h := env.svc.Hasher()

	for _, p := range []string{"/data/a.csv", "/data/b.csv", "/data/c.csv"} {
		env.fsmgr.AddFile(p, []byte(p))
		if err := h.SaveHash(ctx, env.resolve(t, p)); err != nil {
			t.Fatalf("SaveHash(%s) error = %v", p, err)
		}
	}
	env.fsmgr.AddFile("/data/b.csv", []byte("changed"))
	if err := env.fsmgr.Remove(env.resolve(t, "/data/c.csv")); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	statuses, err := h.Statuses(ctx)
	if err != nil {
		t.Fatalf("Statuses() error = %v", err)
	}
	want := []sqrt.HashStatus{
		{ResourceID: "/data/a.csv", State: sqrt.HashUnchanged},
		{ResourceID: "/data/b.csv", State: sqrt.HashUpdated},
		{ResourceID: "/data/c.csv", State: sqrt.HashDeleted},
	}
	if len(statuses) != len(want) {
		t.Fatalf("got %d statuses, want %d", len(statuses), len(want))
	}
	for i, s := range statuses {
		if *s != want[i] {
			t.Errorf("status[%d] = %+v, want %+v", i, *s, want[i])
		}
	}

	removed, err := h.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	hashes, _ := env.db.ListResourceHashes(ctx)
	if len(hashes) != 2 {
		t.Errorf("%d hashes left, want 2", len(hashes))
	}

	if removed, _ := h.Cleanup(ctx); removed != 0 {
		t.Errorf("second Cleanup() = %d, want 0", removed)
	}
}
