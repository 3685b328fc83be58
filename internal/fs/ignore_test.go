package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log", "!", "/"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].glob != "*.log" {
			t.Errorf("expected *.log, got %s", m.patterns[0].glob)
		}
	})

	t.Run("classifies patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.log", "aw/old.csv", "tmp/", "!keep.log"})
		want := []patternKind{matchBase, matchPath, matchDir, matchBase}
		for i, kind := range want {
			if m.patterns[i].kind != kind {
				t.Errorf("pattern %d kind = %v, want %v", i, m.patterns[i].kind, kind)
			}
		}
		if !m.patterns[3].negate || m.patterns[3].glob != "keep.log" {
			t.Errorf("negated pattern parsed as %+v", m.patterns[3])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob matches file in root", []string{"*.log"}, "app.log", true},
		{"basename glob matches file in subdirectory", []string{"*.log"}, filepath.Join("sub", "app.log"), true},
		{"basename glob does not match different extension", []string{"*.log"}, "app.txt", false},
		{"exact basename match", []string{".sqrtignore"}, ".sqrtignore", true},
		{"path pattern matches exact relative path", []string{"aw/old.csv"}, filepath.Join("aw", "old.csv"), true},
		{"path pattern does not match wrong path", []string{"aw/old.csv"}, filepath.Join("mpd", "old.csv"), false},
		{"leading slash is relative to the root", []string{"/aw/*.csv"}, filepath.Join("aw", "a.csv"), true},
		{"path pattern with glob", []string{"sleep/*.bak"}, filepath.Join("sleep", "export.bak"), true},
		{"directory pattern matches nested file", []string{"tmp/"}, filepath.Join("aw", "tmp", "a.csv"), true},
		{"directory pattern does not match file name", []string{"tmp/"}, filepath.Join("aw", "tmp"), false},
		{"question mark wildcard", []string{"?.txt"}, "a.txt", true},
		{"question mark does not match multiple chars", []string{"?.txt"}, "ab.txt", false},
		{"character class", []string{"*.[oa]"}, "main.o", true},
		{"negation re-includes", []string{"*.log", "!keep.log"}, "keep.log", false},
		{"later rule wins over negation", []string{"!keep.log", "*.log"}, "keep.log", true},
		{"no patterns matches nothing", nil, "anything.txt", false},
		{"empty string path", []string{"*.log"}, "", false},
		{"invalid pattern never matches", []string{"[", "*.tmp"}, "data.tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			got := m.Match(tt.relativePath)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, IgnoreFileName)
		content := "*.log\n# comment\n\n*.tmp\naw/old.csv\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		lines, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		// Raw lines are returned; NewIgnoreMatcher drops blanks and comments.
		if len(lines) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(lines))
		}
		if m := NewIgnoreMatcher(lines); len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		lines, err := ParseIgnoreFile("/nonexistent/" + IgnoreFileName)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if lines != nil {
			t.Errorf("expected nil, got %v", lines)
		}
	})
}
