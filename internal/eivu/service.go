package eivu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eivu-go/internal/model"
)

// IngestService drives files through the ingestion lifecycle and owns the
// folder tree side effects of completion.
//
// Transitions on one file are serialized by a per-file lock; folder
// resolution is serialized per bucket. Locks are always taken file first,
// bucket second.
type IngestService struct {
	database Database
	gateway  RemoteGateway
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	metrics  Metrics

	fileLocks   *keyedMutex
	bucketLocks *keyedMutex
}

// NewIngestService creates an IngestService. Nil logger, clock, idgen and
// metrics fall back to no-op or real implementations. gateway may be nil
// when remote deletion is not needed.
func NewIngestService(database Database, gateway RemoteGateway, logger Logger, clock Clock, idgen IDGenerator, metrics Metrics) *IngestService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &IngestService{
		database:    database,
		gateway:     gateway,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		metrics:     metrics,
		fileLocks:   newKeyedMutex(),
		bucketLocks: newKeyedMutex(),
	}
}

// CreateRegion registers a remote region.
func (s *IngestService) CreateRegion(ctx context.Context, name, endpoint string) (*model.Region, error) {
	name = strings.TrimSpace(name)
	endpoint = strings.TrimSpace(endpoint)
	if name == "" || endpoint == "" {
		return nil, fmt.Errorf("%w: region name and endpoint are required", ErrInvalidInput)
	}

	region := &model.Region{
		ID:        s.idgen.New(),
		Name:      name,
		Endpoint:  endpoint,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.CreateRegion(ctx, region); err != nil {
		return nil, fmt.Errorf("creating region: %w", err)
	}
	s.logger.Info("region created", "name", name, "endpoint", endpoint)
	return region, nil
}

// ListRegions returns every region.
func (s *IngestService) ListRegions(ctx context.Context) ([]*model.Region, error) {
	return s.database.ListRegions(ctx)
}

// CreateBucket registers a bucket. regionName may be empty, leaving the
// bucket without a remote endpoint.
func (s *IngestService) CreateBucket(ctx context.Context, name, regionName string) (*model.Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: bucket name is required", ErrInvalidInput)
	}

	bucket := &model.Bucket{
		ID:        s.idgen.New(),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if regionName != "" {
		region, err := s.database.FindRegionByName(ctx, regionName)
		if err != nil {
			return nil, fmt.Errorf("finding region: %w", err)
		}
		if region == nil {
			return nil, fmt.Errorf("region %q: %w", regionName, ErrNotFound)
		}
		bucket.RegionID = sql.NullString{String: region.ID, Valid: true}
	}

	if err := s.database.CreateBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	s.logger.Info("bucket created", "name", name, "region", regionName)
	return bucket, nil
}

// FindBucket returns a bucket by id.
func (s *IngestService) FindBucket(ctx context.Context, id string) (*model.Bucket, error) {
	return s.requireBucket(ctx, s.database, id)
}

// FindBucketByName returns a bucket by name.
func (s *IngestService) FindBucketByName(ctx context.Context, name string) (*model.Bucket, error) {
	bucket, err := s.database.FindBucketByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding bucket: %w", err)
	}
	if bucket == nil {
		return nil, fmt.Errorf("bucket %q: %w", name, ErrNotFound)
	}
	return bucket, nil
}

// ListBuckets returns every bucket.
func (s *IngestService) ListBuckets(ctx context.Context) ([]*model.Bucket, error) {
	return s.database.ListBuckets(ctx)
}

// Locate returns the remote location of a bucket.
func (s *IngestService) Locate(ctx context.Context, bucket *model.Bucket) (Location, error) {
	return s.locate(ctx, s.database, bucket)
}

func (s *IngestService) locate(ctx context.Context, store Store, bucket *model.Bucket) (Location, error) {
	if !bucket.RegionID.Valid {
		return LocationFor(bucket, nil)
	}
	region, err := store.FindRegion(ctx, bucket.RegionID.String)
	if err != nil {
		return Location{}, fmt.Errorf("finding region: %w", err)
	}
	return LocationFor(bucket, region)
}

func (s *IngestService) requireBucket(ctx context.Context, store Store, id string) (*model.Bucket, error) {
	bucket, err := store.FindBucket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding bucket: %w", err)
	}
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s: %w", id, ErrNotFound)
	}
	return bucket, nil
}

func (s *IngestService) requireFile(ctx context.Context, store Store, id string) (*model.File, error) {
	file, err := store.FindFile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return file, nil
}

// observe reports a finished transition to the metrics sink.
func (s *IngestService) observe(ev Event, start time.Time, err error) {
	result := ResultOK
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateContent):
		result = ResultDuplicate
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound):
		result = ResultRejected
	default:
		result = ResultError
	}
	s.metrics.ObserveTransition(ev, result, s.clock.Now().Sub(start))
}
