package eivu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eivu-go/internal/model"
)

// Exists reports whether hash is already stored in the bucket, optionally
// restricted to one folder. It never mutates anything.
func (s *IngestService) Exists(ctx context.Context, hash, bucketID string, folderID *string) (bool, error) {
	bucket, err := s.requireBucket(ctx, s.database, bucketID)
	if err != nil {
		return false, err
	}
	if _, err := s.locate(ctx, s.database, bucket); err != nil {
		return false, err
	}

	exists, err := s.database.ContentExists(ctx, strings.ToLower(hash), bucket.ID, folderID)
	if err != nil {
		return false, fmt.Errorf("checking for existing content: %w", err)
	}
	return exists, nil
}

// Reserve creates a file record in state reserved. It fails with
// ErrDuplicateContent when the hash is already in the bucket.
func (s *IngestService) Reserve(ctx context.Context, req ReserveRequest) (*model.File, error) {
	start := s.clock.Now()
	file, err := s.reserve(ctx, req)
	s.observe(EventReserve, start, err)
	return file, err
}

func (s *IngestService) reserve(ctx context.Context, req ReserveRequest) (*model.File, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	hash := strings.ToLower(req.ContentHash)

	unlock := s.bucketLocks.Lock(req.BucketID)
	defer unlock()

	exists, err := s.Exists(ctx, hash, req.BucketID, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s in bucket %s", ErrDuplicateContent, hash, req.BucketID)
	}

	now := s.clock.Now()
	file := &model.File{
		ID:          s.idgen.New(),
		BucketID:    req.BucketID,
		ContentHash: hash,
		State:       model.StateEmpty,
		Name:        req.Name,
		Peepy:       req.Peepy,
		Nsfw:        req.Nsfw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if file.State, err = nextState(file.ID, file.State, EventReserve); err != nil {
		return nil, err
	}

	if err := s.database.InsertFile(ctx, file); err != nil {
		return nil, fmt.Errorf("reserving file: %w", err)
	}

	s.logger.Info("file reserved", "file", file.ID, "bucket", file.BucketID, "hash", hash)
	return file, nil
}

// Transfer records the byte-transfer attributes of a reserved file and moves
// it to transferred. The folder tree is not touched.
func (s *IngestService) Transfer(ctx context.Context, fileID string, attrs TransferAttributes) (*model.File, error) {
	start := s.clock.Now()
	file, err := s.transfer(ctx, fileID, attrs)
	s.observe(EventTransfer, start, err)
	return file, err
}

func (s *IngestService) transfer(ctx context.Context, fileID string, attrs TransferAttributes) (*model.File, error) {
	if err := validateRequest(attrs); err != nil {
		return nil, err
	}

	unlock := s.fileLocks.Lock(fileID)
	defer unlock()

	file, err := s.requireFile(ctx, s.database, fileID)
	if err != nil {
		return nil, err
	}
	from := file.State
	to, err := nextState(file.ID, from, EventTransfer)
	if err != nil {
		return nil, err
	}

	if attrs.Asset != "" {
		file.Asset = attrs.Asset
	}
	if attrs.ContentType != "" {
		file.ContentType = attrs.ContentType
	}
	file.Filesize = attrs.Filesize
	file.RemoteKey = RemoteKey(file)
	file.State = to
	file.UpdatedAt = s.clock.Now()

	ok, err := s.database.UpdateFile(ctx, file, from)
	if err != nil {
		return nil, fmt.Errorf("recording transfer: %w", err)
	}
	if !ok {
		return nil, s.staleTransition(ctx, fileID, EventTransfer)
	}

	s.logger.Info("file transferred", "file", file.ID, "key", file.RemoteKey, "size", file.Filesize)
	return file, nil
}

// Complete resolves the file's folder chain from params.RelativePath, binds
// the folder, applies the remaining metadata and moves the file to
// completed. Everything happens in one transaction: either all of it is
// visible afterwards or none of it is.
func (s *IngestService) Complete(ctx context.Context, fileID string, params CompletionParams) (*model.File, error) {
	start := s.clock.Now()
	file, err := s.complete(ctx, fileID, params)
	s.observe(EventComplete, start, err)
	return file, err
}

func (s *IngestService) complete(ctx context.Context, fileID string, params CompletionParams) (*model.File, error) {
	if err := validateRequest(params); err != nil {
		return nil, err
	}

	unlockFile := s.fileLocks.Lock(fileID)
	defer unlockFile()

	file, err := s.requireFile(ctx, s.database, fileID)
	if err != nil {
		return nil, err
	}
	if _, err := nextState(file.ID, file.State, EventComplete); err != nil {
		return nil, err
	}

	unlockBucket := s.bucketLocks.Lock(file.BucketID)
	defer unlockBucket()

	var completed *model.File
	var created int
	err = s.database.WithTx(ctx, func(tx Store) error {
		current, err := s.requireFile(ctx, tx, fileID)
		if err != nil {
			return err
		}
		from := current.State
		to, err := nextState(current.ID, from, EventComplete)
		if err != nil {
			return err
		}

		tree := NewFolderTree(tx, s.clock, s.idgen)
		res, err := tree.Resolve(ctx, current.BucketID, params.RelativePath, params.Folder)
		if err != nil {
			return fmt.Errorf("resolving folder: %w", err)
		}

		current.FolderID = sql.NullString{}
		if res.FolderID != "" {
			current.FolderID = sql.NullString{String: res.FolderID, Valid: true}
		}
		params.Attributes.apply(current)
		current.State = to
		current.UpdatedAt = s.clock.Now()

		ok, err := tx.UpdateFile(ctx, current, from)
		if err != nil {
			return fmt.Errorf("recording completion: %w", err)
		}
		if !ok {
			return &TransitionError{FileID: fileID, Event: EventComplete, From: from}
		}

		if res.FolderID != "" {
			if err := tree.IncrementFileCount(ctx, res.FolderID, 1); err != nil {
				return err
			}
		}

		completed = current
		created = res.Created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created > 0 {
		s.metrics.FoldersCreated(created)
	}
	s.logger.Info("file completed", "file", completed.ID, "folder", completed.FolderID.String, "folders_created", created)
	return completed, nil
}

// staleTransition builds the error for a compare-and-set that found the file
// already moved by someone else.
func (s *IngestService) staleTransition(ctx context.Context, fileID string, ev Event) error {
	current, err := s.requireFile(ctx, s.database, fileID)
	if err != nil {
		return err
	}
	return &TransitionError{FileID: fileID, Event: ev, From: current.State}
}

// FindFile returns a file by id.
func (s *IngestService) FindFile(ctx context.Context, fileID string) (*model.File, error) {
	return s.requireFile(ctx, s.database, fileID)
}

// Remove deletes a file record. A completed file's folder loses one from its
// files_count in the same transaction. Folders are never removed and the
// remote object is left alone; see DeleteRemote.
func (s *IngestService) Remove(ctx context.Context, fileID string) error {
	unlockFile := s.fileLocks.Lock(fileID)
	defer unlockFile()

	file, err := s.requireFile(ctx, s.database, fileID)
	if err != nil {
		return err
	}

	unlockBucket := s.bucketLocks.Lock(file.BucketID)
	defer unlockBucket()

	var drift error
	err = s.database.WithTx(ctx, func(tx Store) error {
		current, err := s.requireFile(ctx, tx, fileID)
		if err != nil {
			return err
		}
		if err := tx.DeleteFile(ctx, current.ID); err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}
		if current.State == model.StateCompleted && current.FolderID.Valid {
			tree := NewFolderTree(tx, s.clock, s.idgen)
			err := tree.DecrementFileCount(ctx, current.FolderID.String, 1)
			if errors.Is(err, ErrCountDrift) {
				drift = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if drift != nil {
		s.logger.Warn("folder counts out of sync, run recount", "file", fileID, "error", drift)
	}

	s.logger.Info("file removed", "file", fileID)
	return nil
}

// DeleteRemote deletes the file's object from the remote store. Failures
// wrap ErrRemoteGateway and are not retried.
func (s *IngestService) DeleteRemote(ctx context.Context, fileID string) error {
	if s.gateway == nil {
		return fmt.Errorf("%w: no gateway configured", ErrRemoteGateway)
	}

	file, err := s.requireFile(ctx, s.database, fileID)
	if err != nil {
		return err
	}
	bucket, err := s.requireBucket(ctx, s.database, file.BucketID)
	if err != nil {
		return err
	}
	loc, err := s.locate(ctx, s.database, bucket)
	if err != nil {
		return err
	}

	key := ObjectKey(file)
	if err := s.gateway.DeleteObject(ctx, loc, key); err != nil {
		s.metrics.RemoteDelete(ResultError)
		return fmt.Errorf("%w: deleting %s from %s: %w", ErrRemoteGateway, key, loc.BucketName, err)
	}

	s.metrics.RemoteDelete(ResultOK)
	s.logger.Info("remote object deleted", "file", file.ID, "bucket", loc.BucketName, "key", key)
	return nil
}

// FileURL returns the public address of a file's remote object.
func (s *IngestService) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := s.requireFile(ctx, s.database, fileID)
	if err != nil {
		return "", err
	}
	bucket, err := s.requireBucket(ctx, s.database, file.BucketID)
	if err != nil {
		return "", err
	}
	loc, err := s.locate(ctx, s.database, bucket)
	if err != nil {
		return "", err
	}
	return URL(loc, file), nil
}
