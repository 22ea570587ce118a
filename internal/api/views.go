package api

import (
	"time"

	"eivu-go/internal/eivu"
	"eivu-go/internal/model"
)

type fileView struct {
	ID          string          `json:"id"`
	BucketID    string          `json:"bucket_id"`
	FolderID    *string         `json:"folder_id"`
	ContentHash string          `json:"content_hash"`
	State       model.FileState `json:"state"`
	Name        string          `json:"name"`
	Asset       string          `json:"asset"`
	ContentType string          `json:"content_type"`
	RemoteKey   string          `json:"remote_key,omitempty"`
	Filesize    int64           `json:"filesize"`
	Description string          `json:"description,omitempty"`
	Rating      *float64        `json:"rating"`
	Duration    int64           `json:"duration"`
	InfoURL     string          `json:"info_url,omitempty"`
	Year        *int64          `json:"year"`
	ExtID       string          `json:"ext_id,omitempty"`
	Peepy       bool            `json:"peepy"`
	Nsfw        bool            `json:"nsfw"`
	URL         string          `json:"url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newFileView(f *model.File) *fileView {
	v := &fileView{
		ID:          f.ID,
		BucketID:    f.BucketID,
		ContentHash: f.ContentHash,
		State:       f.State,
		Name:        f.DisplayName(),
		Asset:       f.Asset,
		ContentType: f.ContentType,
		RemoteKey:   f.RemoteKey,
		Filesize:    f.Filesize,
		Description: f.Description,
		Duration:    f.Duration,
		InfoURL:     f.InfoURL,
		ExtID:       f.ExtID,
		Peepy:       f.Peepy,
		Nsfw:        f.Nsfw,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if f.FolderID.Valid {
		v.FolderID = &f.FolderID.String
	}
	if f.Rating.Valid {
		v.Rating = &f.Rating.Float64
	}
	if f.Year.Valid {
		v.Year = &f.Year.Int64
	}
	return v
}

func newFileViews(files []*model.File) []*fileView {
	views := make([]*fileView, 0, len(files))
	for _, f := range files {
		views = append(views, newFileView(f))
	}
	return views
}

// bucketTree is one bucket's entry in the all-buckets folder listing.
type bucketTree struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Folders []*eivu.FolderNode `json:"folders"`
}
