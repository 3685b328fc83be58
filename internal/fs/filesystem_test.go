package fs

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func ids(t *testing.T, root string, m *OSFilesystemManager, pattern string, recursive bool) []string {
	t.Helper()
	found, err := m.FindFiles(root, pattern, recursive)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}
	var out []string
	for _, res := range found {
		rel, err := filepath.Rel(root, res.ID())
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystemManager(nil)
	path := filepath.Join(dir, "a.csv")
	writeFile(t, path, "x,y\n")

	res, err := m.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.ID() != path {
		t.Errorf("ID() = %s, want %s", res.ID(), path)
	}
	if res.Info().Size() != 4 {
		t.Errorf("Size = %d, want 4", res.Info().Size())
	}

	if _, err := m.Resolve(dir); err == nil {
		t.Error("expected error resolving a directory")
	}
	if _, err := m.Resolve(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error resolving a missing file")
	}
}

func TestOSFilesystemManager_Exists(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystemManager(nil)
	path := filepath.Join(dir, "a.csv")
	writeFile(t, path, "")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"regular file", path, true},
		{"missing file", filepath.Join(dir, "b.csv"), false},
		{"directory", dir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Exists(tt.path)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystemManager(nil)
	writeFile(t, filepath.Join(dir, "b.csv"), "")
	writeFile(t, filepath.Join(dir, "a.csv"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "sub", "c.csv"), "")

	t.Run("flat is sorted and skips subdirectories", func(t *testing.T) {
		got := ids(t, dir, m, "*.csv", false)
		want := []string{"a.csv", "b.csv"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("recursive descends", func(t *testing.T) {
		got := ids(t, dir, m, "*.csv", true)
		want := []string{"a.csv", "b.csv", "sub/c.csv"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("missing directory yields nothing", func(t *testing.T) {
		found, err := m.FindFiles(filepath.Join(dir, "nope"), "*", true)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(found) != 0 {
			t.Errorf("expected no files, got %d", len(found))
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		if _, err := m.FindFiles(dir, "[", false); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})
}

func TestOSFilesystemManager_FindFiles_SymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	writeFile(t, filepath.Join(real, "a.csv"), "")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	m := NewOSFilesystemManager(nil)
	found, err := m.FindFiles(link, "*.csv", false)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 file, got %d", len(found))
	}
	if want := filepath.Join(link, "a.csv"); found[0].ID() != want {
		t.Errorf("ID() = %s, want %s", found[0].ID(), want)
	}
}

func TestOSFilesystemManager_IsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, IgnoreFileName), "*.bak\n!keep.bak\n")
	writeFile(t, filepath.Join(dir, "a.csv"), "")
	writeFile(t, filepath.Join(dir, "old.bak"), "")
	writeFile(t, filepath.Join(dir, "keep.bak"), "")
	writeFile(t, filepath.Join(dir, "scratch.tmp"), "")
	writeFile(t, filepath.Join(dir, "mpd", "secret.csv"), "")

	m := NewOSFilesystemManager([]string{"mpd/secret.csv"})

	tests := []struct {
		name string
		want bool
	}{
		{"a.csv", false},
		{"old.bak", true},
		{"keep.bak", false},
		{"scratch.tmp", true},
		{IgnoreFileName, true},
		{"mpd/secret.csv", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Resolve(filepath.Join(dir, filepath.FromSlash(tt.name)))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			got, err := m.IsIgnored(res, dir)
			if err != nil {
				t.Fatalf("IsIgnored() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsIgnored(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	t.Run("outside root", func(t *testing.T) {
		res, err := m.Resolve(filepath.Join(dir, "a.csv"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if _, err := m.IsIgnored(res, filepath.Join(dir, "mpd")); err == nil {
			t.Error("expected error for resource outside root")
		}
	})
}

func TestOSFilesystemManager_CreateAndRemove(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystemManager(nil)
	path := filepath.Join(dir, "waka", "dump.json")

	res, err := m.Create(path, strings.NewReader(`{"days":[]}`))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.ID() != path {
		t.Errorf("ID() = %s, want %s", res.ID(), path)
	}

	rc, err := m.Open(res)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"days":[]}` {
		t.Errorf("content = %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the created file, got %d entries", len(entries))
	}

	if err := m.Remove(res); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if ok, _ := m.Exists(path); ok {
		t.Error("file still exists after Remove")
	}
	if err := m.Remove(res); err == nil {
		t.Error("expected error removing twice")
	}
}
