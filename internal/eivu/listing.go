package eivu

import (
	"context"
	"fmt"

	"eivu-go/internal/model"
)

// FolderListing returns the bucket's folder hierarchy as nested nodes.
func (s *IngestService) FolderListing(ctx context.Context, bucketID string, filter FolderFilter) ([]*FolderNode, error) {
	bucket, err := s.requireBucket(ctx, s.database, bucketID)
	if err != nil {
		return nil, err
	}
	folders, err := s.database.ListFolders(ctx, bucket.ID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return BuildFolderTree(folders, filter), nil
}

// FolderFiles returns the files bound to a folder.
func (s *IngestService) FolderFiles(ctx context.Context, folderID string) ([]*model.File, error) {
	files, err := s.database.ListFilesByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// Descendants returns every folder below folderID.
func (s *IngestService) Descendants(ctx context.Context, folderID string) ([]*model.Folder, error) {
	return NewFolderTree(s.database, s.clock, s.idgen).Descendants(ctx, folderID)
}

// Recount repairs the aggregate counts of every folder in the bucket.
func (s *IngestService) Recount(ctx context.Context, bucketID string) (int64, error) {
	bucket, err := s.requireBucket(ctx, s.database, bucketID)
	if err != nil {
		return 0, err
	}

	unlock := s.bucketLocks.Lock(bucket.ID)
	defer unlock()

	n, err := NewFolderTree(s.database, s.clock, s.idgen).Recount(ctx, bucket.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("folders recounted", "bucket", bucket.Name, "corrected", n)
	return n, nil
}
