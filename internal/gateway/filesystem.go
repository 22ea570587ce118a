package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"eivu-go/internal/eivu"
)

// FileSystemGateway stores objects as files in a directory tree:
//
//	<root>/
//	  <bucket>/
//	    <remote key>
type FileSystemGateway struct {
	root string
}

// NewFileSystemGateway creates a gateway rooted at root, creating it if needed.
func NewFileSystemGateway(root string) (*FileSystemGateway, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gateway root: %w", err)
	}
	return &FileSystemGateway{root: root}, nil
}

func (g *FileSystemGateway) objectPath(loc eivu.Location, key string) (string, error) {
	rel := filepath.Join(loc.BucketName, filepath.FromSlash(key))
	if loc.BucketName == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid object path %q in bucket %q", key, loc.BucketName)
	}
	return filepath.Join(g.root, rel), nil
}

// PutObject writes the content of r under key using an atomic rename.
func (g *FileSystemGateway) PutObject(ctx context.Context, loc eivu.Location, key string, r io.Reader, size int64, contentType string) error {
	destPath, err := g.objectPath(loc, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// GetObject copies the object stored under key to w.
func (g *FileSystemGateway) GetObject(ctx context.Context, loc eivu.Location, key string, w io.Writer) error {
	srcPath, err := g.objectPath(loc, key)
	if err != nil {
		return err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object not found: %s/%s", loc.BucketName, key)
		}
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

// DeleteObject removes the file stored under key. Missing files are ignored.
func (g *FileSystemGateway) DeleteObject(ctx context.Context, loc eivu.Location, key string) error {
	path, err := g.objectPath(loc, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the root is an accessible directory.
func (g *FileSystemGateway) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(g.root)
	if err != nil {
		return fmt.Errorf("gateway root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("gateway root is not a directory: %s", g.root)
	}
	return nil
}

var _ eivu.RemoteGateway = (*FileSystemGateway)(nil)
