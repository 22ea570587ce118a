package eivu_test

import (
	"context"
	"errors"
	"testing"

	"eivu-go/internal/eivu"
	"eivu-go/internal/model"
	"eivu-go/internal/testutil"
)

func TestFolderSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"song.mp3", []string{}},
		{"Music/song.mp3", []string{"Music"}},
		{"Music/Rock/song.mp3", []string{"Music", "Rock"}},
		{`Music\Rock\song.mp3`, []string{"Music", "Rock"}},
		{"/Music//Rock/song.mp3", []string{"Music", "Rock"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := eivu.FolderSegments(tt.path)
			if len(got) != len(tt.want) {
				t.Fatalf("FolderSegments(%q) = %v, want %v", tt.path, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FolderSegments(%q) = %v, want %v", tt.path, got, tt.want)
				}
			}
		})
	}
}

func TestFolderTree_ResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := testutil.SeedBucket(t, f.svc, "media")
	tree := eivu.NewFolderTree(f.db, f.clock, testutil.NewPrefixedIDGenerator("tree"))

	first, err := tree.Resolve(ctx, b.ID, "Music/Rock/song.mp3", eivu.Classification{Nsfw: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first.Created != 2 || first.FolderID == "" {
		t.Fatalf("first Resolve() = %+v, want 2 folders created", first)
	}

	again, err := tree.Resolve(ctx, b.ID, "Music/Rock/other.mp3", eivu.Classification{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if again.Created != 0 || again.FolderID != first.FolderID {
		t.Errorf("second Resolve() = %+v, want same folder and nothing created", again)
	}

	rock := f.folderByPath(t, b.ID, "Music", "Rock")
	if !rock.Nsfw {
		t.Error("folder lost the classification it was created with")
	}
	if music := f.folderByPath(t, b.ID, "Music"); music.SubfoldersCount != 1 {
		t.Errorf("Music subfolders_count = %d, want 1", music.SubfoldersCount)
	}

	none, err := tree.Resolve(ctx, b.ID, "song.mp3", eivu.Classification{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if none.FolderID != "" || none.Created != 0 {
		t.Errorf("Resolve(no directory) = %+v, want empty result", none)
	}
}

// racingStore hides existing folders from the first lookups, as if another
// writer inserted them in between.
type racingStore struct {
	eivu.FolderStore
	hide int // lookups to answer with nil; negative hides forever
}

func (s *racingStore) FindFolderByName(ctx context.Context, bucketID, ancestry, name string) (*model.Folder, error) {
	if s.hide != 0 {
		s.hide--
		return nil, nil
	}
	return s.FolderStore.FindFolderByName(ctx, bucketID, ancestry, name)
}

func TestFolderTree_LostRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := testutil.SeedBucket(t, f.svc, "media")
	winner := f.completed(t, b.ID, "aa01", "Music/a.mp3")

	store := &racingStore{FolderStore: f.db, hide: 1}
	tree := eivu.NewFolderTree(store, f.clock, testutil.NewPrefixedIDGenerator("tree"))

	res, err := tree.Resolve(ctx, b.ID, "Music/b.mp3", eivu.Classification{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Created != 0 || res.FolderID != winner.FolderID.String {
		t.Errorf("Resolve() = %+v, want the existing folder %s", res, winner.FolderID.String)
	}
	f.assertCountsConsistent(t, b.ID)
}

func TestFolderTree_Conflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := testutil.SeedBucket(t, f.svc, "media")
	f.completed(t, b.ID, "aa01", "Music/a.mp3")

	store := &racingStore{FolderStore: f.db, hide: -1}
	tree := eivu.NewFolderTree(store, f.clock, testutil.NewPrefixedIDGenerator("tree"))

	_, err := tree.Resolve(ctx, b.ID, "Music/b.mp3", eivu.Classification{})
	if !errors.Is(err, eivu.ErrFolderConflict) {
		t.Errorf("Resolve() error = %v, want ErrFolderConflict", err)
	}
}

func TestFolderTree_DecrementFileCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := testutil.SeedBucket(t, f.svc, "media")
	f.completed(t, b.ID, "aa01", "Music/a.mp3")
	music := f.folderByPath(t, b.ID, "Music")
	tree := eivu.NewFolderTree(f.db, f.clock, testutil.NewPrefixedIDGenerator("tree"))

	if err := tree.DecrementFileCount(ctx, music.ID, 1); err != nil {
		t.Fatalf("DecrementFileCount() error = %v", err)
	}
	if got := f.folderByPath(t, b.ID, "Music").FilesCount; got != 0 {
		t.Fatalf("files_count = %d, want 0", got)
	}

	err := tree.DecrementFileCount(ctx, music.ID, 1)
	if !errors.Is(err, eivu.ErrCountDrift) {
		t.Errorf("DecrementFileCount() below zero error = %v, want ErrCountDrift", err)
	}
	if got := f.folderByPath(t, b.ID, "Music").FilesCount; got != 0 {
		t.Errorf("files_count = %d, want clamped at 0", got)
	}

	if err := tree.DecrementFileCount(ctx, "missing", 1); !errors.Is(err, eivu.ErrNotFound) {
		t.Errorf("DecrementFileCount(missing) error = %v, want ErrNotFound", err)
	}
}
