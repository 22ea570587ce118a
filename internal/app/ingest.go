package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"eivu-go/internal/eivu"
	"eivu-go/internal/fs"
	"eivu-go/internal/model"
)

// Filesystem is the part of a local drive the ingester reads.
type Filesystem interface {
	Resolve(rawPath string) (string, error)
	FindFiles(root string) ([]fs.LocalFile, error)
	Open(path string) (io.ReadCloser, error)
}

// UploadRecorder counts bytes sent to the remote store.
type UploadRecorder interface {
	RecordUpload(bytes int64)
}

// Ingester walks a local directory and takes every file through
// reserve, upload, transfer and complete.
type Ingester struct {
	service *eivu.IngestService
	gateway eivu.RemoteGateway
	fsmgr   Filesystem
	logger  eivu.Logger
	clock   eivu.Clock
	uploads UploadRecorder
}

// NewIngester creates an Ingester. uploads may be nil.
func NewIngester(service *eivu.IngestService, gateway eivu.RemoteGateway, fsmgr Filesystem, logger eivu.Logger, clock eivu.Clock, uploads UploadRecorder) *Ingester {
	if logger == nil {
		logger = eivu.NewNopLogger()
	}
	if clock == nil {
		clock = eivu.RealClock{}
	}
	return &Ingester{
		service: service,
		gateway: gateway,
		fsmgr:   fsmgr,
		logger:  logger,
		clock:   clock,
		uploads: uploads,
	}
}

// IngestOptions select the target bucket and the flags new content and
// folders get.
type IngestOptions struct {
	Bucket string
	Folder eivu.Classification
}

// IngestDirectory ingests every file under rawPath. Content already in the
// bucket is skipped. A file that fails is logged and counted and the walk
// goes on; the returned error is reserved for problems that stop the whole
// run.
func (i *Ingester) IngestDirectory(ctx context.Context, rawPath string, opts IngestOptions) (*IngestRun, error) {
	if i.gateway == nil {
		return nil, fmt.Errorf("%w: no gateway configured", eivu.ErrRemoteGateway)
	}

	root, err := i.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	bucket, err := i.service.FindBucketByName(ctx, opts.Bucket)
	if err != nil {
		return nil, err
	}
	loc, err := i.service.Locate(ctx, bucket)
	if err != nil {
		return nil, err
	}

	files, err := i.fsmgr.FindFiles(root)
	if err != nil {
		return nil, fmt.Errorf("finding files: %w", err)
	}

	run := NewIngestRun(root, bucket.Name, i.clock.Now())
	i.logger.Info("ingest started", "run", run.ID, "root", root, "bucket", bucket.Name, "files", len(files))

	for _, lf := range files {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		file, err := i.ingestFile(ctx, bucket, loc, lf, opts.Folder)
		switch {
		case errors.Is(err, eivu.ErrDuplicateContent):
			run.recordDuplicate()
			i.logger.Info("skipping duplicate", "path", lf.RelativePath)
		case err != nil:
			run.recordFailure()
			i.logger.Error("ingest failed", "path", lf.RelativePath, "error", err)
		default:
			run.recordCompleted(file.ID, file.Filesize)
		}
	}

	i.logger.Info("ingest finished", "run", run.ID, "completed", len(run.Completed),
		"duplicates", run.Duplicates, "failed", run.Failed, "bytes", run.Bytes)
	return run, nil
}

func (i *Ingester) ingestFile(ctx context.Context, bucket *model.Bucket, loc eivu.Location, lf fs.LocalFile, class eivu.Classification) (*model.File, error) {
	digest, err := i.digest(lf.Path)
	if err != nil {
		return nil, err
	}

	name := eivu.Sanitize(path.Base(lf.RelativePath))
	file, err := i.service.Reserve(ctx, eivu.ReserveRequest{
		BucketID:    bucket.ID,
		ContentHash: digest.MD5,
		Name:        name,
		Peepy:       class.Peepy,
		Nsfw:        class.Nsfw,
	})
	if err != nil {
		return nil, err
	}

	// The key is derived from the attributes Transfer is about to record.
	file.Asset = name
	file.ContentType = digest.ContentType
	key := eivu.RemoteKey(file)

	if err := i.upload(ctx, loc, key, lf.Path, digest); err != nil {
		i.release(ctx, file.ID)
		return nil, err
	}
	if i.uploads != nil {
		i.uploads.RecordUpload(digest.Size)
	}

	if _, err := i.service.Transfer(ctx, file.ID, eivu.TransferAttributes{
		Asset:       name,
		ContentType: digest.ContentType,
		Filesize:    digest.Size,
	}); err != nil {
		return nil, err
	}

	return i.service.Complete(ctx, file.ID, eivu.CompletionParams{
		RelativePath: lf.RelativePath,
		Folder:       class,
	})
}

func (i *Ingester) digest(p string) (fs.Digest, error) {
	r, err := i.fsmgr.Open(p)
	if err != nil {
		return fs.Digest{}, fmt.Errorf("opening %s: %w", p, err)
	}
	defer r.Close()

	d, err := fs.DigestReader(r)
	if err != nil {
		return fs.Digest{}, fmt.Errorf("reading %s: %w", p, err)
	}
	return d, nil
}

func (i *Ingester) upload(ctx context.Context, loc eivu.Location, key, p string, d fs.Digest) error {
	r, err := i.fsmgr.Open(p)
	if err != nil {
		return fmt.Errorf("opening %s: %w", p, err)
	}
	defer r.Close()

	if err := i.gateway.PutObject(ctx, loc, key, r, d.Size, d.ContentType); err != nil {
		return fmt.Errorf("%w: uploading %s: %w", eivu.ErrRemoteGateway, key, err)
	}
	i.logger.Debug("uploaded", "bucket", loc.BucketName, "key", key, "size", d.Size)
	return nil
}

// release drops a reservation whose upload failed so the content can be
// ingested again later.
func (i *Ingester) release(ctx context.Context, fileID string) {
	if err := i.service.Remove(ctx, fileID); err != nil {
		i.logger.Warn("releasing reservation", "file", fileID, "error", err)
	}
}
