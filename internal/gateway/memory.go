package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"eivu-go/internal/eivu"
)

// MemoryGateway is an in-memory object store, useful for testing.
// This implementation is safe for concurrent use.
type MemoryGateway struct {
	mu        sync.RWMutex
	objects   map[string][]byte // "bucket/key" -> content
	deleteErr error
	deletes   int
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{objects: make(map[string][]byte)}
}

func objectKey(loc eivu.Location, key string) string {
	return loc.BucketName + "/" + key
}

// PutObject stores the content of r under key.
func (m *MemoryGateway) PutObject(ctx context.Context, loc eivu.Location, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey(loc, key)] = data
	return nil
}

// GetObject writes the object stored under key to w.
func (m *MemoryGateway) GetObject(ctx context.Context, loc eivu.Location, key string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[objectKey(loc, key)]
	if !ok {
		return fmt.Errorf("object not found: %s", objectKey(loc, key))
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// DeleteObject removes key. Missing keys are ignored.
func (m *MemoryGateway) DeleteObject(ctx context.Context, loc eivu.Location, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, objectKey(loc, key))
	return nil
}

// FailDeletes makes every later DeleteObject return err. A nil err restores
// normal behavior.
func (m *MemoryGateway) FailDeletes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// Has reports whether key is stored in the bucket at loc.
func (m *MemoryGateway) Has(loc eivu.Location, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectKey(loc, key)]
	return ok
}

// Deletes returns how many DeleteObject calls were made.
func (m *MemoryGateway) Deletes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deletes
}

// ValidateSetup always succeeds for the in-memory gateway.
func (m *MemoryGateway) ValidateSetup(ctx context.Context) error {
	return nil
}

var _ eivu.RemoteGateway = (*MemoryGateway)(nil)
