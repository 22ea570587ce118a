package eivu

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"eivu-go/internal/model"
)

// Classification carries the content flags passed down from the ingesting
// caller.
type Classification struct {
	Peepy bool `json:"peepy"`
	Nsfw  bool `json:"nsfw"`
}

// FolderTree maintains the per-bucket folder hierarchy on top of a
// FolderStore. Bind it to a transaction-scoped store when the resolution
// must be atomic with other writes.
type FolderTree struct {
	store FolderStore
	clock Clock
	idgen IDGenerator
}

func NewFolderTree(store FolderStore, clock Clock, idgen IDGenerator) *FolderTree {
	return &FolderTree{store: store, clock: clock, idgen: idgen}
}

// ResolveResult is the outcome of FolderTree.Resolve.
type ResolveResult struct {
	// FolderID is the owning folder, or "" when the path names no folder.
	FolderID string
	// Created is the number of folders inserted by this call.
	Created int
}

// FolderSegments returns the folder names of a relative file path: segments
// split on "/" (or "\"), empties discarded, the trailing file name dropped.
func FolderSegments(relativePath string) []string {
	if strings.TrimSpace(relativePath) == "" {
		return nil
	}
	normalized := strings.ReplaceAll(relativePath, `\`, "/")

	var segments []string
	for _, s := range strings.Split(normalized, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return nil
	}
	return segments[:len(segments)-1]
}

// Resolve finds or creates the folder chain for relativePath in bucketID and
// returns the folder the file belongs to. New folders take class; existing
// folders keep the flags they were created with.
func (t *FolderTree) Resolve(ctx context.Context, bucketID, relativePath string, class Classification) (ResolveResult, error) {
	var result ResolveResult
	var parent *model.Folder

	for _, name := range FolderSegments(relativePath) {
		folder, created, err := t.findOrCreate(ctx, bucketID, parent, name, class)
		if err != nil {
			return ResolveResult{}, err
		}
		if created {
			result.Created++
		}
		parent = folder
	}

	if parent != nil {
		result.FolderID = parent.ID
	}
	return result, nil
}

// findOrCreate is the atomic unit of resolution: look up the sibling, insert
// it if absent, and bump the parent's subfolder count only when this call
// inserted the row.
func (t *FolderTree) findOrCreate(ctx context.Context, bucketID string, parent *model.Folder, name string, class Classification) (*model.Folder, bool, error) {
	ancestry := ""
	var parentID sql.NullString
	if parent != nil {
		ancestry = parent.ChildAncestry()
		parentID = sql.NullString{String: parent.ID, Valid: true}
	}

	existing, err := t.store.FindFolderByName(ctx, bucketID, ancestry, name)
	if err != nil {
		return nil, false, fmt.Errorf("finding folder %q: %w", name, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	now := t.clock.Now()
	folder := &model.Folder{
		ID:        t.idgen.New(),
		BucketID:  bucketID,
		ParentID:  parentID,
		Ancestry:  ancestry,
		Name:      name,
		Peepy:     class.Peepy,
		Nsfw:      class.Nsfw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := t.store.InsertFolderIfAbsent(ctx, folder)
	if err != nil {
		return nil, false, fmt.Errorf("creating folder %q: %w", name, err)
	}
	if !inserted {
		// Lost a race with another writer; its row is the folder.
		existing, err := t.store.FindFolderByName(ctx, bucketID, ancestry, name)
		if err != nil {
			return nil, false, fmt.Errorf("finding folder %q: %w", name, err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("%w: %q under %q", ErrFolderConflict, name, ancestry)
		}
		return existing, false, nil
	}

	if parent != nil {
		if err := t.store.AdjustFolderCounts(ctx, parent.ID, 0, 1, now); err != nil {
			return nil, false, fmt.Errorf("counting subfolder of %s: %w", parent.ID, err)
		}
		parent.SubfoldersCount++
	}
	return folder, true, nil
}

// IncrementFileCount adds delta to the folder's files_count.
func (t *FolderTree) IncrementFileCount(ctx context.Context, folderID string, delta int64) error {
	if err := t.store.AdjustFolderCounts(ctx, folderID, delta, 0, t.clock.Now()); err != nil {
		return fmt.Errorf("incrementing file count of %s: %w", folderID, err)
	}
	return nil
}

// DecrementFileCount subtracts delta from the folder's files_count. The
// count never goes below zero; when it would have, the clamped update is
// still applied and ErrCountDrift is returned.
func (t *FolderTree) DecrementFileCount(ctx context.Context, folderID string, delta int64) error {
	folder, err := t.store.FindFolder(ctx, folderID)
	if err != nil {
		return fmt.Errorf("finding folder: %w", err)
	}
	if folder == nil {
		return fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
	}
	if err := t.store.AdjustFolderCounts(ctx, folderID, -delta, 0, t.clock.Now()); err != nil {
		return fmt.Errorf("decrementing file count of %s: %w", folderID, err)
	}
	if folder.FilesCount < delta {
		return fmt.Errorf("%w: folder %s had files_count %d, decremented by %d",
			ErrCountDrift, folderID, folder.FilesCount, delta)
	}
	return nil
}

// Descendants returns every folder below folderID, at any depth.
func (t *FolderTree) Descendants(ctx context.Context, folderID string) ([]*model.Folder, error) {
	folder, err := t.store.FindFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}
	return t.store.ListFoldersUnder(ctx, folder.BucketID, folder.ChildAncestry())
}

// Recount rebuilds files_count and subfolders_count for every folder in the
// bucket from live rows. It returns the number of folders corrected.
func (t *FolderTree) Recount(ctx context.Context, bucketID string) (int64, error) {
	n, err := t.store.RecountFolders(ctx, bucketID, t.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("recounting folders: %w", err)
	}
	return n, nil
}
