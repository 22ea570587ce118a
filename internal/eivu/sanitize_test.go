package eivu_test

import (
	"strings"
	"testing"

	"eivu-go/internal/eivu"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain name", "song.mp3", "song.mp3"},
		{"spaces become underscores", "my song.mp3", "my_song.mp3"},
		{"keeps plus dash underscore", "a+b-c_d.flac", "a+b-c_d.flac"},
		{"strips unix directories", "Music/Rock/song.mp3", "song.mp3"},
		{"strips windows directories", `C:\Music\song.mp3`, "song.mp3"},
		{"traversal collapses to base name", "../../etc/passwd", "passwd"},
		{"trailing slash uses last real segment", "Music/Rock/", "Rock"},
		{"empty", "", "unnamed"},
		{"only separators", "///", "unnamed"},
		{"dots only", "...", "_..."},
		{"double dot", "..", "_.."},
		{"composed accent is one rune", "café.mp3", "caf_.mp3"},
		{"decomposed accent normalizes first", "cafe\u0301.mp3", "caf_.mp3"},
		{"non latin", "日本.mp3", "__.mp3"},
		{"control characters", "a\x00b\tc", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eivu.Sanitize(tt.raw); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func FuzzSanitize(f *testing.F) {
	for _, seed := range []string{"", "...", "a/b\\c", "Music/Rock/song.mp3", "日本", "\xff\xfe", " . "} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		got := eivu.Sanitize(raw)
		if got == "" {
			t.Fatalf("Sanitize(%q) returned empty string", raw)
		}
		if strings.ContainsAny(got, `/\`) {
			t.Fatalf("Sanitize(%q) = %q contains a separator", raw, got)
		}
		for _, r := range got {
			allowed := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
				r == '.' || r == '-' || r == '+' || r == '_'
			if !allowed {
				t.Fatalf("Sanitize(%q) = %q contains %q", raw, got, r)
			}
		}
		if strings.Trim(got, ".") == "" {
			t.Fatalf("Sanitize(%q) = %q is dots only", raw, got)
		}
		if eivu.Sanitize(got) != got {
			t.Fatalf("Sanitize is not idempotent on %q", got)
		}
	})
}
