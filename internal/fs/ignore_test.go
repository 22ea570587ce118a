package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log"})
		if got, want := len(m.patterns), len(defaultIgnorePatterns)+1; got != want {
			t.Fatalf("expected %d patterns, got %d", want, got)
		}
		if last := m.patterns[len(m.patterns)-1]; last.pattern != "*.log" {
			t.Errorf("expected *.log, got %s", last.pattern)
		}
	})

	t.Run("classifies path, basename and directory patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.log", "build/output", "cache/"})
		n := len(defaultIgnorePatterns)
		if m.patterns[n].matchPath || m.patterns[n].dirOnly {
			t.Error("*.log should be a plain basename pattern")
		}
		if !m.patterns[n+1].matchPath {
			t.Error("build/output should be a path pattern")
		}
		if p := m.patterns[n+2]; !p.dirOnly || p.matchPath || p.pattern != "cache" {
			t.Errorf("cache/ parsed as %+v, want basename directory pattern", p)
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		dir          bool
		want         bool
	}{
		{"basename glob matches file in root", []string{"*.log"}, "app.log", false, true},
		{"basename glob matches file in subdirectory", []string{"*.log"}, filepath.Join("sub", "app.log"), false, true},
		{"basename glob does not match different extension", []string{"*.log"}, "app.txt", false, false},
		{"default ignore file is skipped", nil, IgnoreFileName, false, true},
		{"default finder metadata is skipped in subdirectory", nil, filepath.Join("Music", ".DS_Store"), false, true},
		{"path pattern matches exact relative path", []string{"build/output"}, filepath.Join("build", "output"), false, true},
		{"path pattern does not match wrong path", []string{"build/output"}, filepath.Join("src", "output"), false, false},
		{"path pattern with glob", []string{"Music/*.m3u"}, filepath.Join("Music", "mix.m3u"), false, true},
		{"question mark does not match multiple chars", []string{"?.txt"}, "ab.txt", false, false},
		{"directory pattern matches directory", []string{"@eaDir/"}, filepath.Join("Photos", "@eaDir"), true, true},
		{"directory pattern ignores files", []string{"@eaDir/"}, "@eaDir", false, false},
		{"file pattern also matches directories", []string{"tmp"}, "tmp", true, true},
		{"no patterns matches nothing", nil, "anything.txt", false, false},
		{"empty string path", []string{"*"}, "", false, false},
		{"multiple patterns second matches", []string{"*.log", "*.tmp"}, "data.tmp", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			got := m.Match(tt.relativePath)
			if tt.dir {
				got = m.MatchDir(tt.relativePath)
			}
			if got != tt.want {
				t.Errorf("match(%q, dir=%v) = %v, want %v", tt.relativePath, tt.dir, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.log\n# comment\n\n*.tmp\nbuild/output\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}

		m := NewIgnoreMatcher(patterns)
		if got := len(m.patterns) - len(defaultIgnorePatterns); got != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", got)
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
