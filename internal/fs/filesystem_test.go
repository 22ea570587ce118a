package fs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Music")
	writeFile(t, filepath.Join(root, "Rock", "70s", "song.mp3"), "a")
	writeFile(t, filepath.Join(root, "cover.jpg"), "b")
	writeFile(t, filepath.Join(root, "Rock", "notes.log"), "c")
	writeFile(t, filepath.Join(root, "Rock", ".DS_Store"), "d")
	writeFile(t, filepath.Join(root, "cache", "thumb.jpg"), "e")
	writeFile(t, filepath.Join(root, IgnoreFileName), "cache/\n")

	m := NewOSFilesystemManager([]string{"*.log"})
	resolved, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	files, err := m.FindFiles(resolved)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}

	var got []string
	for _, f := range files {
		got = append(got, f.RelativePath)
	}
	want := "Music/Rock/70s/song.mp3,Music/cover.jpg"
	if strings.Join(got, ",") != want {
		t.Errorf("FindFiles() = %v, want %s", got, want)
	}
	if files[0].Size != 1 || !filepath.IsAbs(files[0].Path) {
		t.Errorf("FindFiles()[0] = %+v", files[0])
	}
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "song.mp3")
	writeFile(t, file, "a")

	m := NewOSFilesystemManager(nil)
	if _, err := m.Resolve(file); err == nil {
		t.Error("Resolve(file) expected error, got nil")
	}
	if _, err := m.Resolve(filepath.Join(dir, "missing")); err == nil {
		t.Error("Resolve(missing) expected error, got nil")
	}
	got, err := m.Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve(dir) error = %v", err)
	}
	if got != dir {
		t.Errorf("Resolve(dir) = %q, want %q", got, dir)
	}
}

func TestDigestReader(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		wantMD5  string
		wantType string
		wantSize int64
	}{
		{
			name:     "plain text",
			content:  []byte("hello world"),
			wantMD5:  "5eb63bbbe01eeed093cb22bb8f5acdc3",
			wantType: "text/plain",
			wantSize: 11,
		},
		{
			name:     "empty",
			content:  nil,
			wantMD5:  "d41d8cd98f00b204e9800998ecf8427e",
			wantSize: 0,
		},
		{
			name:     "png header beyond the sniff window",
			content:  append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 8192)...),
			wantType: "image/png",
			wantSize: 8200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DigestReader(bytes.NewReader(tt.content))
			if err != nil {
				t.Fatalf("DigestReader() error = %v", err)
			}
			if tt.wantMD5 != "" && got.MD5 != tt.wantMD5 {
				t.Errorf("MD5 = %s, want %s", got.MD5, tt.wantMD5)
			}
			if len(got.MD5) != 32 {
				t.Errorf("MD5 %q is not 32 hex characters", got.MD5)
			}
			if !strings.HasPrefix(got.ContentType, tt.wantType) {
				t.Errorf("ContentType = %q, want prefix %q", got.ContentType, tt.wantType)
			}
			if got.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", got.Size, tt.wantSize)
			}
		})
	}
}
