package eivu

import (
	"context"
	"io"
)

// RemoteGateway moves bytes to and from the remote object store. The core
// only ever deletes; uploads are orchestrated by callers before Transfer.
type RemoteGateway interface {
	// DeleteObject removes key from the bucket at loc. Deleting a missing
	// key is not an error.
	DeleteObject(ctx context.Context, loc Location, key string) error

	// PutObject stores size bytes read from r under key.
	PutObject(ctx context.Context, loc Location, key string, r io.Reader, size int64, contentType string) error

	// ValidateSetup verifies the gateway is usable.
	ValidateSetup(ctx context.Context) error
}
