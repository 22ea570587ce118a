package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"eivu-go/internal/eivu"
	"eivu-go/internal/gateway"
	"eivu-go/internal/model"
	"eivu-go/internal/testutil"
)

type ingestFixture struct {
	svc     *eivu.IngestService
	gw      *gateway.MemoryGateway
	fsmgr   *testutil.MockFilesystemManager
	bucket  *model.Bucket
	uploads *uploadCounter
}

type uploadCounter struct {
	bytes int64
	calls int
}

func (u *uploadCounter) RecordUpload(n int64) {
	u.bytes += n
	u.calls++
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	gw := testutil.NewTestGateway()
	svc := eivu.NewIngestService(db, gw, nil, testutil.FixedClock(), testutil.NewStubIDGenerator(), nil)
	return &ingestFixture{
		svc:     svc,
		gw:      gw,
		fsmgr:   testutil.NewMockFilesystemManager(),
		bucket:  testutil.SeedBucket(t, svc, "media"),
		uploads: &uploadCounter{},
	}
}

func (f *ingestFixture) ingester(gw eivu.RemoteGateway) *Ingester {
	return NewIngester(f.svc, gw, f.fsmgr, nil, testutil.FixedClock(), f.uploads)
}

func TestIngester_IngestDirectory(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)

	f.fsmgr.AddFile("/drive/Music/Rock/a.mp3", []byte("rock song"))
	f.fsmgr.AddFile("/drive/Music/b.mp3", []byte("other song"))
	f.fsmgr.AddFile("/drive/Music/copy.mp3", []byte("rock song"))

	run, err := f.ingester(f.gw).IngestDirectory(ctx, "/drive", IngestOptions{Bucket: "media"})
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}

	if len(run.Completed) != 2 || run.Duplicates != 1 || run.Failed != 0 {
		t.Errorf("run = completed %d, duplicates %d, failed %d; want 2, 1, 0",
			len(run.Completed), run.Duplicates, run.Failed)
	}
	if run.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", run.Status, StatusSuccess)
	}
	if run.Bytes != int64(len("rock song")+len("other song")) {
		t.Errorf("Bytes = %d", run.Bytes)
	}
	if f.uploads.calls != 2 || f.uploads.bytes != run.Bytes {
		t.Errorf("uploads recorded = %d calls, %d bytes", f.uploads.calls, f.uploads.bytes)
	}

	loc, err := f.svc.Locate(ctx, f.bucket)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	for _, id := range run.Completed {
		file, err := f.svc.FindFile(ctx, id)
		if err != nil {
			t.Fatalf("FindFile() error = %v", err)
		}
		if file.State != model.StateCompleted {
			t.Errorf("file %s state = %q", file.Name, file.State)
		}
		if !f.gw.Has(loc, eivu.RemoteKey(file)) {
			t.Errorf("object for %s not uploaded at %s", file.Name, eivu.RemoteKey(file))
		}
		if file.ContentHash != testutil.MD5Hex([]byte("rock song")) && file.ContentHash != testutil.MD5Hex([]byte("other song")) {
			t.Errorf("unexpected hash %s", file.ContentHash)
		}
	}

	// The scan root is the first folder of the chain.
	nodes, err := f.svc.FolderListing(ctx, f.bucket.ID, eivu.FolderFilter{})
	if err != nil {
		t.Fatalf("FolderListing() error = %v", err)
	}
	if len(nodes) != 1 || nodes[0].Name != "drive" {
		t.Fatalf("root folders = %v, want [drive]", nodes)
	}
}

func TestIngester_IngestDirectory_Classification(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.fsmgr.AddFile("/drive/clip.bin", []byte("restricted"))

	run, err := f.ingester(f.gw).IngestDirectory(ctx, "/drive", IngestOptions{
		Bucket: "media",
		Folder: eivu.Classification{Peepy: true, Nsfw: true},
	})
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}
	if len(run.Completed) != 1 {
		t.Fatalf("completed = %d, want 1", len(run.Completed))
	}

	file, err := f.svc.FindFile(ctx, run.Completed[0])
	if err != nil {
		t.Fatalf("FindFile() error = %v", err)
	}
	if !file.Peepy || !file.Nsfw {
		t.Errorf("file flags = peepy %v nsfw %v, want both", file.Peepy, file.Nsfw)
	}
	if mt := eivu.MediaType(file.ContentType, file.Peepy); !strings.HasSuffix(mt, "_peepshow") {
		t.Errorf("media type = %q, want restricted marker", mt)
	}
}

type failingGateway struct {
	*gateway.MemoryGateway
	err error
}

func (g *failingGateway) PutObject(ctx context.Context, loc eivu.Location, key string, r io.Reader, size int64, contentType string) error {
	return g.err
}

func TestIngester_IngestDirectory_UploadFailure(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	content := []byte("unlucky")
	f.fsmgr.AddFile("/drive/a.mp3", content)

	refused := errors.New("connection refused")
	gw := &failingGateway{MemoryGateway: f.gw, err: refused}

	run, err := f.ingester(gw).IngestDirectory(ctx, "/drive", IngestOptions{Bucket: "media"})
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}
	if run.Failed != 1 || run.Status != StatusError {
		t.Errorf("run = failed %d status %q, want 1 and error", run.Failed, run.Status)
	}
	if f.uploads.calls != 0 {
		t.Errorf("uploads recorded after failure = %d", f.uploads.calls)
	}

	exists, err := f.svc.Exists(ctx, testutil.MD5Hex(content), f.bucket.ID, nil)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("reservation kept after failed upload")
	}

	// A later run with a working gateway picks the file up.
	run, err = f.ingester(f.gw).IngestDirectory(ctx, "/drive", IngestOptions{Bucket: "media"})
	if err != nil {
		t.Fatalf("second IngestDirectory() error = %v", err)
	}
	if len(run.Completed) != 1 {
		t.Errorf("second run completed = %d, want 1", len(run.Completed))
	}
}

func TestIngester_IngestDirectory_Errors(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.fsmgr.AddFile("/drive/a.mp3", []byte("a"))
	testutil.SeedRegionlessBucket(t, f.svc, "orphan")

	tests := []struct {
		name string
		gw   eivu.RemoteGateway
		path string
		opts IngestOptions
		want error
	}{
		{"unknown bucket", f.gw, "/drive", IngestOptions{Bucket: "nope"}, eivu.ErrNotFound},
		{"bucket without region", f.gw, "/drive", IngestOptions{Bucket: "orphan"}, eivu.ErrMissingRegion},
		{"no gateway", nil, "/drive", IngestOptions{Bucket: "media"}, eivu.ErrRemoteGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ingester(tt.gw).IngestDirectory(ctx, tt.path, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("IngestDirectory() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("missing directory", func(t *testing.T) {
		if _, err := f.ingester(f.gw).IngestDirectory(ctx, "/elsewhere", IngestOptions{Bucket: "media"}); err == nil {
			t.Error("IngestDirectory() expected error for missing directory")
		}
	})
}
