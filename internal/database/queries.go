package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"eivu-go/internal/eivu"
	"eivu-go/internal/model"
)

const (
	regionColumns = `id, name, endpoint, created_at`
	bucketColumns = `id, name, region_id, created_at`
	folderColumns = `id, bucket_id, parent_id, ancestry, name, peepy, nsfw,
		files_count, subfolders_count, created_at, updated_at`
	fileColumns = `id, bucket_id, folder_id, content_hash, state, name, asset,
		content_type, remote_key, filesize, description, rating, duration, info_url, year,
		ext_id, peepy, nsfw, created_at, updated_at`
)

// queries implements eivu.Store over either the connection or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

var _ eivu.Store = (*queries)(nil)

// get scans one row into dest and reports whether a row was found.
func (q *queries) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, q.ext, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Region operations

func (q *queries) CreateRegion(ctx context.Context, region *model.Region) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO regions (`+regionColumns+`) VALUES (:id, :name, :endpoint, :created_at)`, region)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: region %q already exists", eivu.ErrInvalidInput, region.Name)
		}
		return fmt.Errorf("inserting region: %w", err)
	}
	return nil
}

func (q *queries) FindRegion(ctx context.Context, id string) (*model.Region, error) {
	var region model.Region
	found, err := q.get(ctx, &region, `SELECT `+regionColumns+` FROM regions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding region: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &region, nil
}

func (q *queries) FindRegionByName(ctx context.Context, name string) (*model.Region, error) {
	var region model.Region
	found, err := q.get(ctx, &region, `SELECT `+regionColumns+` FROM regions WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("finding region by name: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &region, nil
}

func (q *queries) ListRegions(ctx context.Context) ([]*model.Region, error) {
	var regions []*model.Region
	if err := sqlx.SelectContext(ctx, q.ext, &regions, `SELECT `+regionColumns+` FROM regions ORDER BY name`); err != nil {
		return nil, fmt.Errorf("listing regions: %w", err)
	}
	return regions, nil
}

// Bucket operations

func (q *queries) CreateBucket(ctx context.Context, bucket *model.Bucket) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO buckets (`+bucketColumns+`) VALUES (:id, :name, :region_id, :created_at)`, bucket)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: bucket %q already exists", eivu.ErrInvalidInput, bucket.Name)
		}
		return fmt.Errorf("inserting bucket: %w", err)
	}
	return nil
}

func (q *queries) FindBucket(ctx context.Context, id string) (*model.Bucket, error) {
	var bucket model.Bucket
	found, err := q.get(ctx, &bucket, `SELECT `+bucketColumns+` FROM buckets WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding bucket: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &bucket, nil
}

func (q *queries) FindBucketByName(ctx context.Context, name string) (*model.Bucket, error) {
	var bucket model.Bucket
	found, err := q.get(ctx, &bucket, `SELECT `+bucketColumns+` FROM buckets WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("finding bucket by name: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &bucket, nil
}

func (q *queries) ListBuckets(ctx context.Context) ([]*model.Bucket, error) {
	var buckets []*model.Bucket
	if err := sqlx.SelectContext(ctx, q.ext, &buckets, `SELECT `+bucketColumns+` FROM buckets ORDER BY name`); err != nil {
		return nil, fmt.Errorf("listing buckets: %w", err)
	}
	return buckets, nil
}

// Folder operations

func (q *queries) FindFolder(ctx context.Context, id string) (*model.Folder, error) {
	var folder model.Folder
	found, err := q.get(ctx, &folder, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &folder, nil
}

func (q *queries) FindFolderByName(ctx context.Context, bucketID, ancestry, name string) (*model.Folder, error) {
	var folder model.Folder
	found, err := q.get(ctx, &folder,
		`SELECT `+folderColumns+` FROM folders WHERE bucket_id = ? AND ancestry = ? AND name = ?`,
		bucketID, ancestry, name)
	if err != nil {
		return nil, fmt.Errorf("finding folder by name: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &folder, nil
}

func (q *queries) InsertFolderIfAbsent(ctx context.Context, folder *model.Folder) (bool, error) {
	res, err := sqlx.NamedExecContext(ctx, q.ext, `
		INSERT INTO folders (`+folderColumns+`)
		VALUES (:id, :bucket_id, :parent_id, :ancestry, :name, :peepy, :nsfw,
			:files_count, :subfolders_count, :created_at, :updated_at)
		ON CONFLICT (bucket_id, ancestry, name) DO NOTHING`, folder)
	if err != nil {
		return false, fmt.Errorf("inserting folder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting folder: %w", err)
	}
	return n == 1, nil
}

func (q *queries) AdjustFolderCounts(ctx context.Context, folderID string, filesDelta, subfoldersDelta int64, at time.Time) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE folders
		SET files_count = MAX(files_count + ?, 0),
		    subfolders_count = MAX(subfolders_count + ?, 0),
		    updated_at = ?
		WHERE id = ?`, filesDelta, subfoldersDelta, at, folderID)
	if err != nil {
		return fmt.Errorf("adjusting folder counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting folder counts: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: folder %s", eivu.ErrNotFound, folderID)
	}
	return nil
}

func (q *queries) ListFolders(ctx context.Context, bucketID string) ([]*model.Folder, error) {
	var folders []*model.Folder
	err := sqlx.SelectContext(ctx, q.ext, &folders,
		`SELECT `+folderColumns+` FROM folders WHERE bucket_id = ? ORDER BY ancestry, name`, bucketID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

func (q *queries) ListFoldersUnder(ctx context.Context, bucketID, ancestry string) ([]*model.Folder, error) {
	var folders []*model.Folder
	err := sqlx.SelectContext(ctx, q.ext, &folders, `
		SELECT `+folderColumns+` FROM folders
		WHERE bucket_id = ? AND (ancestry = ? OR ancestry LIKE ? ESCAPE '\')
		ORDER BY ancestry, name`, bucketID, ancestry, escapeLike(ancestry)+"/%")
	if err != nil {
		return nil, fmt.Errorf("listing folders under %q: %w", ancestry, err)
	}
	return folders, nil
}

func (q *queries) RecountFolders(ctx context.Context, bucketID string, at time.Time) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `
		WITH live AS (
			SELECT f.id,
			       (SELECT COUNT(*) FROM files
			         WHERE files.folder_id = f.id AND files.state = ?) AS files_count,
			       (SELECT COUNT(*) FROM folders AS c
			         WHERE c.parent_id = f.id) AS subfolders_count
			FROM folders AS f
			WHERE f.bucket_id = ?
		)
		UPDATE folders
		SET files_count = (SELECT live.files_count FROM live WHERE live.id = folders.id),
		    subfolders_count = (SELECT live.subfolders_count FROM live WHERE live.id = folders.id),
		    updated_at = ?
		WHERE id IN (
			SELECT live.id FROM live JOIN folders AS cur ON cur.id = live.id
			WHERE cur.files_count != live.files_count
			   OR cur.subfolders_count != live.subfolders_count
		)`, model.StateCompleted, bucketID, at)
	if err != nil {
		return 0, fmt.Errorf("recounting folders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recounting folders: %w", err)
	}
	return n, nil
}

// File operations

func (q *queries) InsertFile(ctx context.Context, file *model.File) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (:id, :bucket_id, :folder_id, :content_hash, :state, :name, :asset,
			:content_type, :remote_key, :filesize, :description, :rating, :duration, :info_url, :year,
			:ext_id, :peepy, :nsfw, :created_at, :updated_at)`, file)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s in bucket %s", eivu.ErrDuplicateContent, file.ContentHash, file.BucketID)
		}
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (q *queries) FindFile(ctx context.Context, id string) (*model.File, error) {
	var file model.File
	found, err := q.get(ctx, &file, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &file, nil
}

func (q *queries) ContentExists(ctx context.Context, hash, bucketID string, folderID *string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM files WHERE content_hash = ? AND bucket_id = ?`
	args := []any{hash, bucketID}
	if folderID != nil {
		query += ` AND folder_id = ?`
		args = append(args, *folderID)
	}
	query += `)`

	var exists bool
	if err := sqlx.GetContext(ctx, q.ext, &exists, query, args...); err != nil {
		return false, fmt.Errorf("checking content: %w", err)
	}
	return exists, nil
}

func (q *queries) UpdateFile(ctx context.Context, file *model.File, from model.FileState) (bool, error) {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE files
		SET folder_id = ?, state = ?, name = ?, asset = ?, content_type = ?,
		    remote_key = ?, filesize = ?, description = ?, rating = ?, duration = ?, info_url = ?,
		    year = ?, ext_id = ?, peepy = ?, nsfw = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		file.FolderID, file.State, file.Name, file.Asset, file.ContentType,
		file.RemoteKey, file.Filesize, file.Description, file.Rating, file.Duration, file.InfoURL,
		file.Year, file.ExtID, file.Peepy, file.Nsfw, file.UpdatedAt,
		file.ID, from)
	if err != nil {
		return false, fmt.Errorf("updating file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating file: %w", err)
	}
	return n == 1, nil
}

func (q *queries) DeleteFile(ctx context.Context, id string) error {
	if _, err := q.ext.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

func (q *queries) ListFilesByFolder(ctx context.Context, folderID string) ([]*model.File, error) {
	var files []*model.File
	err := sqlx.SelectContext(ctx, q.ext, &files,
		`SELECT `+fileColumns+` FROM files WHERE folder_id = ? ORDER BY name, id`, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
