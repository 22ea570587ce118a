package eivu_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"eivu-go/internal/database"
	"eivu-go/internal/eivu"
	"eivu-go/internal/gateway"
	"eivu-go/internal/model"
	"eivu-go/internal/testutil"
)

// recordingMetrics captures what the service reports.
type recordingMetrics struct {
	mu             sync.Mutex
	transitions    map[string]int // "event/result" -> count
	foldersCreated int
	deletes        map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{transitions: map[string]int{}, deletes: map[string]int{}}
}

func (m *recordingMetrics) ObserveTransition(ev eivu.Event, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[string(ev)+"/"+result]++
}

func (m *recordingMetrics) FoldersCreated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foldersCreated += n
}

func (m *recordingMetrics) RemoteDelete(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes[status]++
}

func (m *recordingMetrics) count(ev eivu.Event, result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[string(ev)+"/"+result]
}

type fixture struct {
	svc     *eivu.IngestService
	db      *database.SQLiteDatabase
	gw      *gateway.MemoryGateway
	clock   *testutil.StubClock
	metrics *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:      testutil.NewTestDatabase(t),
		gw:      testutil.NewTestGateway(),
		clock:   testutil.FixedClock(),
		metrics: newRecordingMetrics(),
	}
	f.svc = eivu.NewIngestService(f.db, f.gw, nil, f.clock, testutil.NewStubIDGenerator(), f.metrics)
	return f
}

func (f *fixture) reserve(t *testing.T, bucketID, hash, name string) *model.File {
	t.Helper()
	file, err := f.svc.Reserve(context.Background(), eivu.ReserveRequest{BucketID: bucketID, ContentHash: hash, Name: name})
	if err != nil {
		t.Fatalf("Reserve(%s) error = %v", hash, err)
	}
	return file
}

// transferred returns a file that has been reserved and transferred.
func (f *fixture) transferred(t *testing.T, bucketID, hash, name string) *model.File {
	t.Helper()
	file := f.reserve(t, bucketID, hash, name)
	file, err := f.svc.Transfer(context.Background(), file.ID, eivu.TransferAttributes{
		Asset:       name,
		ContentType: "audio/mpeg",
		Filesize:    1024,
	})
	if err != nil {
		t.Fatalf("Transfer(%s) error = %v", file.ID, err)
	}
	return file
}

// completed returns a file that went through the whole lifecycle.
func (f *fixture) completed(t *testing.T, bucketID, hash, relativePath string) *model.File {
	t.Helper()
	file := f.transferred(t, bucketID, hash, eivu.Sanitize(relativePath))
	file, err := f.svc.Complete(context.Background(), file.ID, eivu.CompletionParams{RelativePath: relativePath})
	if err != nil {
		t.Fatalf("Complete(%s) error = %v", relativePath, err)
	}
	return file
}

func (f *fixture) folderByPath(t *testing.T, bucketID string, names ...string) *model.Folder {
	t.Helper()
	ctx := context.Background()
	ancestry := ""
	var folder *model.Folder
	for _, name := range names {
		var err error
		folder, err = f.db.FindFolderByName(ctx, bucketID, ancestry, name)
		if err != nil {
			t.Fatalf("FindFolderByName(%q) error = %v", name, err)
		}
		if folder == nil {
			t.Fatalf("folder %q not found under %q", name, ancestry)
		}
		ancestry = folder.ChildAncestry()
	}
	return folder
}

// assertCountsConsistent checks that every folder's cached counts match the
// live rows referencing it.
func (f *fixture) assertCountsConsistent(t *testing.T, bucketID string) {
	t.Helper()
	ctx := context.Background()

	folders, err := f.db.ListFolders(ctx, bucketID)
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	children := map[string]int64{}
	for _, folder := range folders {
		if folder.ParentID.Valid {
			children[folder.ParentID.String]++
		}
	}
	for _, folder := range folders {
		files, err := f.db.ListFilesByFolder(ctx, folder.ID)
		if err != nil {
			t.Fatalf("ListFilesByFolder() error = %v", err)
		}
		var completed int64
		for _, file := range files {
			if file.State == model.StateCompleted {
				completed++
			}
		}
		if folder.FilesCount != completed {
			t.Errorf("folder %s files_count = %d, live = %d", folder.Name, folder.FilesCount, completed)
		}
		if folder.SubfoldersCount != children[folder.ID] {
			t.Errorf("folder %s subfolders_count = %d, live = %d", folder.Name, folder.SubfoldersCount, children[folder.ID])
		}
	}
}
