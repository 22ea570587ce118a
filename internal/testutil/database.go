package testutil

import (
	"context"
	"testing"

	"eivu-go/internal/database"
	"eivu-go/internal/eivu"
	"eivu-go/internal/model"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// TestEndpoint is the endpoint of the region created by SeedBucket.
const TestEndpoint = "s3.us-east-2.amazonaws.com"

// SeedBucket creates a bucket named name bound to a "us-east-2" region,
// creating the region on first use.
func SeedBucket(t *testing.T, svc *eivu.IngestService, name string) *model.Bucket {
	t.Helper()
	ctx := context.Background()

	regions, err := svc.ListRegions(ctx)
	if err != nil {
		t.Fatalf("ListRegions() error = %v", err)
	}
	if len(regions) == 0 {
		if _, err := svc.CreateRegion(ctx, "us-east-2", TestEndpoint); err != nil {
			t.Fatalf("CreateRegion() error = %v", err)
		}
	}

	bucket, err := svc.CreateBucket(ctx, name, "us-east-2")
	if err != nil {
		t.Fatalf("CreateBucket(%q) error = %v", name, err)
	}
	return bucket
}

// SeedRegionlessBucket creates a bucket with no region.
func SeedRegionlessBucket(t *testing.T, svc *eivu.IngestService, name string) *model.Bucket {
	t.Helper()
	bucket, err := svc.CreateBucket(context.Background(), name, "")
	if err != nil {
		t.Fatalf("CreateBucket(%q) error = %v", name, err)
	}
	return bucket
}
