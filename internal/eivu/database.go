package eivu

import (
	"context"
	"time"

	"eivu-go/internal/model"
)

// Lookups return (nil, nil) when the record does not exist.

// BucketStore persists regions and buckets.
type BucketStore interface {
	CreateRegion(ctx context.Context, region *model.Region) error
	FindRegion(ctx context.Context, id string) (*model.Region, error)
	FindRegionByName(ctx context.Context, name string) (*model.Region, error)
	ListRegions(ctx context.Context) ([]*model.Region, error)

	CreateBucket(ctx context.Context, bucket *model.Bucket) error
	FindBucket(ctx context.Context, id string) (*model.Bucket, error)
	FindBucketByName(ctx context.Context, name string) (*model.Bucket, error)
	ListBuckets(ctx context.Context) ([]*model.Bucket, error)
}

// FolderStore persists the folder hierarchy.
type FolderStore interface {
	FindFolder(ctx context.Context, id string) (*model.Folder, error)

	// FindFolderByName looks up the sibling named name under ancestry.
	FindFolderByName(ctx context.Context, bucketID, ancestry, name string) (*model.Folder, error)

	// InsertFolderIfAbsent inserts folder unless a folder with the same
	// (bucket, ancestry, name) exists. It reports whether a row was inserted.
	InsertFolderIfAbsent(ctx context.Context, folder *model.Folder) (bool, error)

	// AdjustFolderCounts adds the deltas to files_count and subfolders_count.
	AdjustFolderCounts(ctx context.Context, folderID string, filesDelta, subfoldersDelta int64, at time.Time) error

	ListFolders(ctx context.Context, bucketID string) ([]*model.Folder, error)

	// ListFoldersUnder returns every folder whose ancestry is ancestry or
	// starts with ancestry + "/".
	ListFoldersUnder(ctx context.Context, bucketID, ancestry string) ([]*model.Folder, error)

	// RecountFolders recomputes both aggregate counts of every folder in the
	// bucket from live rows and returns how many folders changed.
	RecountFolders(ctx context.Context, bucketID string, at time.Time) (int64, error)
}

// FileStore persists file records.
type FileStore interface {
	// InsertFile returns an error wrapping ErrDuplicateContent when the
	// (content hash, bucket) pair already exists.
	InsertFile(ctx context.Context, file *model.File) error
	FindFile(ctx context.Context, id string) (*model.File, error)

	// ContentExists reports whether hash is stored in the bucket. A nil
	// folderID matches any folder.
	ContentExists(ctx context.Context, hash, bucketID string, folderID *string) (bool, error)

	// UpdateFile writes every mutable column of file, but only if the stored
	// row is still in state from. It reports whether the row was written.
	UpdateFile(ctx context.Context, file *model.File, from model.FileState) (bool, error)

	DeleteFile(ctx context.Context, id string) error
	ListFilesByFolder(ctx context.Context, folderID string) ([]*model.File, error)
}

// Store is the full metadata store, either bound to a connection or to a
// running transaction.
type Store interface {
	BucketStore
	FolderStore
	FileStore
}

// Database is a Store that can open transactions.
type Database interface {
	Store

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. fn must only use tx.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	Close() error
}
