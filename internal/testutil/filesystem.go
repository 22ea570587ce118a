package testutil

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"eivu-go/internal/fs"
)

// MockFilesystemManager is an in-memory drive for testing local ingestion.
// Directories exist implicitly when a file lives under them.
type MockFilesystemManager struct {
	files   map[string][]byte
	modTime time.Time
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:   make(map[string][]byte),
		modTime: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

// AddFile adds a file at the absolute path.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.files[filepath.Clean(path)] = content
}

// Resolve returns path if it names a directory holding at least one file.
func (m *MockFilesystemManager) Resolve(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", err
	}
	if _, ok := m.files[absPath]; ok {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}
	prefix := absPath + string(filepath.Separator)
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return absPath, nil
		}
	}
	return "", fmt.Errorf("directory not found: %s", absPath)
}

// FindFiles returns every file under root, sorted by relative path.
func (m *MockFilesystemManager) FindFiles(root string) ([]fs.LocalFile, error) {
	prefix := root + string(filepath.Separator)
	base := filepath.Dir(root)

	var files []fs.LocalFile
	for p, content := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return nil, err
		}
		files = append(files, fs.LocalFile{
			Path:         p,
			RelativePath: filepath.ToSlash(rel),
			Size:         int64(len(content)),
			ModTime:      m.modTime,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	return files, nil
}

// Open returns a reader over the file's content.
func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	content, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
