package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LocalFile is a regular file found under a scan root.
type LocalFile struct {
	Path string // absolute path on disk
	// RelativePath is slash separated and relative to the parent of the scan
	// root, so the root directory itself is its first segment.
	RelativePath string
	Size         int64
	ModTime      time.Time
}

// OSFilesystemManager scans local drives for media files.
type OSFilesystemManager struct {
	patterns []string
}

// NewOSFilesystemManager creates a manager that skips paths matching
// patterns in addition to the root's own ignore file.
func NewOSFilesystemManager(patterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{patterns: patterns}
}

// Resolve returns the absolute path of rawPath, which must be a directory.
func (m *OSFilesystemManager) Resolve(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return "", fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}
	return absPath, nil
}

// FindFiles walks root recursively and returns its regular files sorted by
// relative path. Ignored directories are not descended into.
func (m *OSFilesystemManager) FindFiles(root string) ([]LocalFile, error) {
	own, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	ignore := NewIgnoreMatcher(append(append([]string{}, m.patterns...), own...))
	base := filepath.Dir(root)

	var files []LocalFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		underRoot, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && ignore.MatchDir(underRoot) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignore.Match(underRoot) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		files = append(files, LocalFile{
			Path:         p,
			RelativePath: filepath.ToSlash(rel),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	return files, nil
}

// Open opens the file at path for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
